package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"focusboard/internal/models"
	"focusboard/internal/stats"
	"focusboard/internal/storage"
	"focusboard/internal/timeutil"
)

// PomodoroJSON is the wire form of a focus session.
type PomodoroJSON struct {
	ID           int64   `json:"id"`
	TaskID       *int64  `json:"task_id"`
	UserID       int64   `json:"user_id"`
	StartTime    string  `json:"start_time"`
	EndTime      *string `json:"end_time"`
	StartTimeIST string  `json:"start_time_ist"`
	EndTimeIST   *string `json:"end_time_ist"`
	Duration     *int64  `json:"duration"`
}

func pomodoroJSON(p *models.PomodoroSession) PomodoroJSON {
	return PomodoroJSON{
		ID:           p.ID,
		TaskID:       p.TaskID,
		UserID:       p.UserID,
		StartTime:    timeutil.UTCString(p.StartTime),
		EndTime:      timeutil.UTCStringOrNil(p.EndTime),
		StartTimeIST: timeutil.ISTString(p.StartTime),
		EndTimeIST:   timeutil.ISTStringOrNil(p.EndTime),
		Duration:     p.Duration,
	}
}

// StartPomodoro opens a focus session, optionally attached to one of the
// user's tasks.
func (h *Handlers) StartPomodoro(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var payload struct {
		TaskID *int64 `json:"task_id"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.TaskID != nil {
		if _, err := h.db.GetTask(*payload.TaskID, user.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, http.StatusBadRequest, "Invalid task")
				return
			}
			log.Printf("GetTask error: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	session, err := h.db.StartPomodoro(user.ID, payload.TaskID)
	if err != nil {
		log.Printf("StartPomodoro error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	details := models.Details{"session_id": session.ID, "task_id": payload.TaskID}
	if err := h.track(r, "pomodoro_started", "Started Pomodoro session", details); err != nil {
		log.Printf("track error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"start_time": timeutil.UTCString(session.StartTime),
	})
}

// EndPomodoro closes a running focus session. A duration supplied by the
// client is stored verbatim; otherwise the elapsed whole seconds are used.
func (h *Handlers) EndPomodoro(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var payload struct {
		Duration *int64 `json:"duration"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.db.EndPomodoro(id, user.ID, payload.Duration)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Session not found")
		return
	case errors.Is(err, storage.ErrSessionEnded):
		writeError(w, http.StatusBadRequest, "Session already ended")
		return
	case err != nil:
		log.Printf("EndPomodoro error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	details := models.Details{
		"session_id": session.ID,
		"task_id":    session.TaskID,
		"duration":   session.Duration,
	}
	if err := h.track(r, "pomodoro_completed", "Completed Pomodoro session", details); err != nil {
		log.Printf("track error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, pomodoroJSON(session))
}

// PomodoroStats serves the user's trailing 7-day per-day totals.
func (h *Handlers) PomodoroStats(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	dayStats, err := stats.RecentStats(h.db, &user.ID, 7)
	if err != nil {
		log.Printf("RecentStats error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, dayStats)
}

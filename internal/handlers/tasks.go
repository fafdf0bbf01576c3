package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"focusboard/internal/models"
	"focusboard/internal/stats"
	"focusboard/internal/storage"
	"focusboard/internal/timeutil"
)

// TaskJSON is the wire form of a task.
type TaskJSON struct {
	ID           int64  `json:"id"`
	UserID       int64  `json:"user_id"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	CreatedAtIST string `json:"created_at_ist"`
}

func taskJSON(t *models.Task) TaskJSON {
	return TaskJSON{
		ID:           t.ID,
		UserID:       t.UserID,
		Title:        t.Title,
		Status:       t.Status,
		CreatedAt:    timeutil.UTCString(t.CreatedAt),
		CreatedAtIST: timeutil.ISTString(t.CreatedAt),
	}
}

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	User                 *models.User
	Tasks                []TaskJSON
	Stats                []stats.DayStat
	WorkDurationMinutes  int
	BreakDurationMinutes int
}

// Dashboard renders the main page: today's open tasks and the 7-day
// Pomodoro chart. Admins are sent to the admin panel instead.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	if user.IsAdmin {
		http.Redirect(w, r, "/admin", http.StatusFound)
		return
	}

	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	tasks, err := h.db.ListOpenTasksSince(user.ID, todayStart)
	if err != nil {
		log.Printf("ListOpenTasksSince error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	dayStats, err := stats.RecentStats(h.db, &user.ID, 7)
	if err != nil {
		log.Printf("RecentStats error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.track(r, "view_dashboard", "Viewed dashboard", nil); err != nil {
		log.Printf("track error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	items := make([]TaskJSON, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskJSON(&tasks[i]))
	}
	h.render(w, r, "dashboard.html", DashboardViewModel{
		User:                 user,
		Tasks:                items,
		Stats:                dayStats,
		WorkDurationMinutes:  25,
		BreakDurationMinutes: 5,
	})
}

// ListTasks returns the user's open tasks as JSON, newest first.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	tasks, err := h.db.ListOpenTasks(user.ID)
	if err != nil {
		log.Printf("ListOpenTasks error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	items := make([]TaskJSON, 0, len(tasks))
	for i := range tasks {
		items = append(items, taskJSON(&tasks[i]))
	}
	writeJSON(w, http.StatusOK, items)
}

type taskPayload struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

// AddTask creates a task for the user.
func (h *Handlers) AddTask(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	var payload taskPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	title := ""
	if payload.Title != nil {
		title = strings.TrimSpace(*payload.Title)
	}
	if title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	status := "pending"
	if payload.Status != nil && *payload.Status != "" {
		status = *payload.Status
	}

	task, err := h.db.CreateTask(user.ID, title, status)
	if err != nil {
		log.Printf("CreateTask error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.track(r, "task_created", "Created task '"+title+"'", models.Details{"task_id": task.ID}); err != nil {
		log.Printf("track error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, taskJSON(task))
}

// UpdateTask mutates a task's title and/or status.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	task, err := h.db.GetTask(id, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		log.Printf("GetTask error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var payload taskPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if payload.Title != nil {
		title := strings.TrimSpace(*payload.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "Title cannot be empty")
			return
		}
		task.Title = title
	}
	if payload.Status != nil {
		task.Status = *payload.Status
	}

	if err := h.db.UpdateTask(task); err != nil {
		log.Printf("UpdateTask error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	details := models.Details{"task_id": task.ID, "status": task.Status}
	if err := h.track(r, "task_updated", "Updated task '"+task.Title+"'", details); err != nil {
		log.Printf("track error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, taskJSON(task))
}

// DeleteTask removes a task (and, via cascade, its Pomodoro sessions).
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	task, err := h.db.GetTask(id, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		log.Printf("GetTask error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.db.DeleteTask(id, user.ID); err != nil {
		log.Printf("DeleteTask error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.track(r, "task_deleted", "Deleted task '"+task.Title+"'", models.Details{"task_id": task.ID}); err != nil {
		log.Printf("track error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CompletedViewModel is the data passed to the completed-tasks template.
type CompletedViewModel struct {
	User    *models.User
	Grouped *stats.CompletedGroups
}

// CompletedTasksPage renders the month/day history of completed tasks.
func (h *Handlers) CompletedTasksPage(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	grouped, err := stats.CompletedTasksGrouped(h.db, user.ID)
	if err != nil {
		log.Printf("CompletedTasksGrouped error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "completed_tasks.html", CompletedViewModel{User: user, Grouped: grouped})
}

// CompletedTasksAPI serves the same grouping as the page, as JSON.
func (h *Handlers) CompletedTasksAPI(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	grouped, err := stats.CompletedTasksGrouped(h.db, user.ID)
	if err != nil {
		log.Printf("CompletedTasksGrouped error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, grouped)
}

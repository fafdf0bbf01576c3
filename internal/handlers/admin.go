package handlers

import (
	"log"
	"net/http"
	"strconv"

	"focusboard/internal/models"
	"focusboard/internal/stats"
	"focusboard/internal/timeutil"
)

// AdminViewModel is the data passed to the admin panel template.
type AdminViewModel struct {
	User *models.User
}

// AdminPanel renders the admin dashboard shell; the feed and summary are
// fetched by the page over JSON.
func (h *Handlers) AdminPanel(w http.ResponseWriter, r *http.Request) {
	if err := h.track(r, "view_admin_panel", "Viewed admin panel", nil); err != nil {
		log.Printf("track error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "admin.html", AdminViewModel{User: GetUserFromContext(r)})
}

// ActivityItemJSON is one row of the admin activity feed.
type ActivityItemJSON struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	Action       string         `json:"action"`
	Description  *string        `json:"description"`
	Details      models.Details `json:"details"`
	CreatedAt    string         `json:"created_at"`
	CreatedAtIST string         `json:"created_at_ist"`
	Username     string         `json:"username"`
}

// AdminActivityFeed serves recent non-routine activity of non-admin users,
// newest first. Supports ?limit= (capped at 200) and ?user_id=.
func (h *Handlers) AdminActivityFeed(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}

	var userFilter *int64
	if s := r.URL.Query().Get("user_id"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			userFilter = &id
		}
	}

	entries, err := h.db.ListRecentActivity(limit, userFilter)
	if err != nil {
		log.Printf("ListRecentActivity error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	payload := make([]ActivityItemJSON, 0, len(entries))
	for _, e := range entries {
		payload = append(payload, ActivityItemJSON{
			ID:           e.ID,
			UserID:       e.UserID,
			Action:       e.Action,
			Description:  e.Description,
			Details:      e.Details,
			CreatedAt:    timeutil.UTCString(e.CreatedAt),
			CreatedAtIST: timeutil.ISTString(e.CreatedAt),
			Username:     e.Username,
		})
	}
	writeJSON(w, http.StatusOK, payload)
}

// AdminSummary serves one aggregate row per non-admin user.
func (h *Handlers) AdminSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := stats.AdminSummary(h.db)
	if err != nil {
		log.Printf("AdminSummary error: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ProfileViewModel is the data passed to the profile template.
type ProfileViewModel struct {
	User        *models.User
	JoinedAtIST string
	Counts      *stats.Counts
}

// Profile renders the user's own productivity totals.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	counts, err := stats.UserCounts(h.db, user.ID)
	if err != nil {
		log.Printf("UserCounts error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "profile.html", ProfileViewModel{
		User:        user,
		JoinedAtIST: timeutil.ISTString(user.CreatedAt),
		Counts:      counts,
	})
}

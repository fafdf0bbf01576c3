package models

import "time"

// Task represents a single to-do item owned by one user.
type Task struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusDone is the status value that marks a task completed.
const StatusDone = "done"

// PomodoroSession represents one focus-timer interval. TaskID is a weak
// reference: it may be nil, and sessions are removed when their task is
// deleted. EndTime and Duration stay nil until the session is ended.
type PomodoroSession struct {
	ID        int64      `json:"id"`
	TaskID    *int64     `json:"task_id"`
	UserID    int64      `json:"user_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Duration  *int64     `json:"duration"` // seconds
}

// User represents an account. LastActiveAt is touched on nearly every
// authenticated interaction; LastLoginAt only at successful login.
type User struct {
	ID           int64      `json:"id"`
	Email        *string    `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
	LastActiveAt *time.Time `json:"last_active_at"`
}

// Details holds event-specific structured data for an activity log entry.
// Values must stay JSON-compatible (strings, numbers, booleans, nil, slices,
// string-keyed maps); it is persisted as a JSON text column.
type Details map[string]any

// ActivityLog is an append-only record of a user action. Rows are never
// mutated; they disappear only when their user is deleted.
type ActivityLog struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Action      string    `json:"action"`
	Description *string   `json:"description"`
	Details     Details   `json:"details"`
	CreatedAt   time.Time `json:"created_at"`
}

// Session represents a browser login session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"focusboard/internal/models"
)

// routineActions are high-frequency navigation events that only refresh the
// liveness timestamp and never produce a log row.
var routineActions = map[string]bool{
	"view_dashboard":   true,
	"view_admin_panel": true,
}

// IsRoutineAction reports whether an action code is filtered out of the
// persisted activity log.
func IsRoutineAction(action string) bool {
	return routineActions[action]
}

// RecordActivity appends an activity log entry for a user and refreshes the
// user's last_active_at, in one transaction. Routine actions commit only the
// liveness update. A nil details map is persisted as an empty object.
func (db *DB) RecordActivity(userID int64, action string, description *string, details models.Details) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"UPDATE users SET last_active_at = ? WHERE id = ?",
		formatTime(nowUTC()), userID,
	); err != nil {
		return err
	}

	if !IsRoutineAction(action) {
		if details == nil {
			details = models.Details{}
		}
		encoded, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode activity details: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO activity_logs (user_id, action, description, details, created_at) VALUES (?, ?, ?, ?, ?)",
			userID, action, description, string(encoded), formatTime(nowUTC()),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ActivityEntry is an activity log row annotated with its user's name, as
// served by the admin feed.
type ActivityEntry struct {
	models.ActivityLog
	Username string
}

// ListRecentActivity returns non-routine log entries of non-admin users,
// newest first. userFilter nil means all users.
func (db *DB) ListRecentActivity(limit int, userFilter *int64) ([]ActivityEntry, error) {
	query := `SELECT a.id, a.user_id, a.action, a.description, a.details, a.created_at, u.username
		FROM activity_logs a
		JOIN users u ON a.user_id = u.id
		WHERE u.is_admin = 0 AND a.action NOT IN ('view_dashboard', 'view_admin_panel')`
	var args []any
	if userFilter != nil {
		query += " AND a.user_id = ?"
		args = append(args, *userFilter)
	}
	query += " ORDER BY a.created_at DESC, a.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var description sql.NullString
		var details, createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &description, &details, &createdAt, &e.Username); err != nil {
			return nil, err
		}
		if description.Valid {
			e.Description = &description.String
		}
		e.Details = models.Details{}
		if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
			return nil, fmt.Errorf("decode activity details: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountActivityLogs returns the number of persisted log rows for a user.
func (db *DB) CountActivityLogs(userID int64) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM activity_logs WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

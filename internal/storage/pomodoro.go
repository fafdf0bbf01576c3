package storage

import (
	"database/sql"
	"errors"
	"time"

	"focusboard/internal/models"
)

const pomodoroColumns = "id, task_id, user_id, start_time, end_time, duration"

func scanPomodoro(row interface{ Scan(...any) error }) (*models.PomodoroSession, error) {
	var p models.PomodoroSession
	var taskID sql.NullInt64
	var startTime string
	var endTime sql.NullString
	var duration sql.NullInt64
	if err := row.Scan(&p.ID, &taskID, &p.UserID, &startTime, &endTime, &duration); err != nil {
		return nil, err
	}
	if taskID.Valid {
		p.TaskID = &taskID.Int64
	}
	var err error
	if p.StartTime, err = parseTime(startTime); err != nil {
		return nil, err
	}
	if p.EndTime, err = parseNullTime(endTime); err != nil {
		return nil, err
	}
	if duration.Valid {
		p.Duration = &duration.Int64
	}
	return &p, nil
}

// StartPomodoro opens a new focus session for a user. TaskID may be nil;
// ownership of a non-nil task is the caller's concern.
func (db *DB) StartPomodoro(userID int64, taskID *int64) (*models.PomodoroSession, error) {
	result, err := db.conn.Exec(
		"INSERT INTO pomodoro_sessions (task_id, user_id, start_time) VALUES (?, ?, ?)",
		taskID, userID, formatTime(nowUTC()),
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetPomodoro(id, userID)
}

// GetPomodoro retrieves a session by ID, scoped to its owner.
func (db *DB) GetPomodoro(id, userID int64) (*models.PomodoroSession, error) {
	row := db.conn.QueryRow(
		"SELECT "+pomodoroColumns+" FROM pomodoro_sessions WHERE id = ? AND user_id = ?",
		id, userID,
	)
	p, err := scanPomodoro(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// EndPomodoro closes a running session. An explicit non-nil duration is
// trusted verbatim; otherwise the duration is the whole-second difference
// between end and start. Ending an already-ended session is a validation
// error (ErrSessionEnded), not an update.
func (db *DB) EndPomodoro(id, userID int64, explicitDuration *int64) (*models.PomodoroSession, error) {
	p, err := db.GetPomodoro(id, userID)
	if err != nil {
		return nil, err
	}
	if p.EndTime != nil {
		return nil, ErrSessionEnded
	}

	end := nowUTC()
	var duration int64
	if explicitDuration != nil {
		duration = *explicitDuration
	} else {
		duration = int64(end.Sub(p.StartTime).Seconds())
	}

	_, err = db.conn.Exec(
		"UPDATE pomodoro_sessions SET end_time = ?, duration = ? WHERE id = ? AND user_id = ?",
		formatTime(end), duration, id, userID,
	)
	if err != nil {
		return nil, err
	}
	return db.GetPomodoro(id, userID)
}

// CountPomodoros returns the total number of sessions for a user.
func (db *DB) CountPomodoros(userID int64) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM pomodoro_sessions WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

// SumFocusSeconds returns the total recorded focus time for a user in
// seconds, with a NULL sum reading as zero.
func (db *DB) SumFocusSeconds(userID int64) (int64, error) {
	var total int64
	err := db.conn.QueryRow(
		"SELECT COALESCE(SUM(duration), 0) FROM pomodoro_sessions WHERE user_id = ?",
		userID,
	).Scan(&total)
	return total, err
}

// PomodoroDayTotal is one per-calendar-day aggregate row. DateKey is the
// date portion of the stored UTC start_time, "YYYY-MM-DD".
type PomodoroDayTotal struct {
	DateKey       string
	Sessions      int
	TotalDuration int64
}

// PomodoroDayTotals aggregates finished sessions started at or after the
// given UTC instant, grouped by the raw stored calendar date of start_time,
// ascending. userID nil means all users.
func (db *DB) PomodoroDayTotals(userID *int64, since time.Time) ([]PomodoroDayTotal, error) {
	query := `SELECT date(start_time), COUNT(id), COALESCE(SUM(duration), 0)
		FROM pomodoro_sessions
		WHERE start_time >= ? AND duration IS NOT NULL`
	args := []any{formatTime(since)}
	if userID != nil {
		query += " AND user_id = ?"
		args = append(args, *userID)
	}
	query += " GROUP BY date(start_time) ORDER BY date(start_time)"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []PomodoroDayTotal
	for rows.Next() {
		var t PomodoroDayTotal
		if err := rows.Scan(&t.DateKey, &t.Sessions, &t.TotalDuration); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

package storage

import (
	"database/sql"
	"errors"
	"time"

	"focusboard/internal/models"
)

const taskColumns = "id, user_id, title, status, created_at"

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var t models.Task
	var createdAt string
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Status, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts a new task for a user.
func (db *DB) CreateTask(userID int64, title, status string) (*models.Task, error) {
	result, err := db.conn.Exec(
		"INSERT INTO tasks (user_id, title, status, created_at) VALUES (?, ?, ?, ?)",
		userID, title, status, formatTime(nowUTC()),
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetTask(id, userID)
}

// GetTask retrieves a task by ID, scoped to its owner. Returns ErrNotFound
// for unknown or non-owned IDs.
func (db *DB) GetTask(id, userID int64) (*models.Task, error) {
	row := db.conn.QueryRow(
		"SELECT "+taskColumns+" FROM tasks WHERE id = ? AND user_id = ?",
		id, userID,
	)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// UpdateTask writes a task's title and status back to the database.
func (db *DB) UpdateTask(t *models.Task) error {
	_, err := db.conn.Exec(
		"UPDATE tasks SET title = ?, status = ? WHERE id = ? AND user_id = ?",
		t.Title, t.Status, t.ID, t.UserID,
	)
	return err
}

// DeleteTask removes a task; its Pomodoro sessions go with it via the
// foreign key cascade. Returns ErrNotFound for unknown or non-owned IDs.
func (db *DB) DeleteTask(id, userID int64) error {
	result, err := db.conn.Exec("DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOpenTasks returns a user's not-yet-done tasks, newest first.
func (db *DB) ListOpenTasks(userID int64) ([]models.Task, error) {
	return db.queryTasks(
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND status != ? ORDER BY created_at DESC, id DESC",
		userID, models.StatusDone,
	)
}

// ListOpenTasksSince returns a user's not-yet-done tasks created at or after
// the given UTC instant, newest first. Used for the dashboard's today view.
func (db *DB) ListOpenTasksSince(userID int64, since time.Time) ([]models.Task, error) {
	return db.queryTasks(
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND status != ? AND created_at >= ? ORDER BY created_at DESC, id DESC",
		userID, models.StatusDone, formatTime(since),
	)
}

// ListCompletedTasks returns a user's done tasks, newest first.
func (db *DB) ListCompletedTasks(userID int64) ([]models.Task, error) {
	return db.queryTasks(
		"SELECT "+taskColumns+" FROM tasks WHERE user_id = ? AND status = ? ORDER BY created_at DESC, id DESC",
		userID, models.StatusDone,
	)
}

func (db *DB) queryTasks(query string, args ...any) ([]models.Task, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// CountTasks returns the total number of tasks for a user.
func (db *DB) CountTasks(userID int64) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM tasks WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

// CountCompletedTasks returns the number of done tasks for a user.
func (db *DB) CountCompletedTasks(userID int64) (int, error) {
	var count int
	err := db.conn.QueryRow(
		"SELECT COUNT(*) FROM tasks WHERE user_id = ? AND status = ?",
		userID, models.StatusDone,
	).Scan(&count)
	return count, err
}

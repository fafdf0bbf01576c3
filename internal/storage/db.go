package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"focusboard/internal/models"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// Sentinel errors mapped to HTTP statuses at the handler boundary.
var (
	// ErrNotFound means the row does not exist or is not owned by the
	// requesting user.
	ErrNotFound = errors.New("not found")
	// ErrSessionEnded means a Pomodoro session was already ended.
	ErrSessionEnded = errors.New("session already ended")
)

// timeFormat is how all timestamps are persisted: RFC3339 in UTC. Text
// storage keeps SQLite date() grouping and lexical range comparisons exact.
const timeFormat = time.RFC3339

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	// Single connection: serializes writers and keeps :memory: databases
	// from being duplicated per pooled connection.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			last_login_at TEXT,
			last_active_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at TEXT NOT NULL,
			last_activity TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id)`,
		`CREATE TABLE IF NOT EXISTS pomodoro_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id INTEGER REFERENCES tasks(id) ON DELETE CASCADE,
			user_id INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT,
			duration INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pomodoro_user ON pomodoro_sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pomodoro_start ON pomodoro_sessions(start_time)`,
		`CREATE TABLE IF NOT EXISTS activity_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			description TEXT,
			details TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_user ON activity_logs(user_id)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const userColumns = "id, email, username, password_hash, is_admin, created_at, last_login_at, last_active_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var email sql.NullString
	var createdAt string
	var lastLogin, lastActive sql.NullString
	if err := row.Scan(&u.ID, &email, &u.Username, &u.PasswordHash, &u.IsAdmin, &createdAt, &lastLogin, &lastActive); err != nil {
		return nil, err
	}
	if email.Valid {
		u.Email = &email.String
	}
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.LastLoginAt, err = parseNullTime(lastLogin); err != nil {
		return nil, err
	}
	if u.LastActiveAt, err = parseNullTime(lastActive); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser creates a new user. Email may be nil.
func (db *DB) CreateUser(username string, email *string, passwordHash string, isAdmin bool) (*models.User, error) {
	result, err := db.conn.Exec(
		"INSERT INTO users (username, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)",
		username, email, passwordHash, isAdmin, formatTime(nowUTC()),
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	row := db.conn.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	row := db.conn.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// GetUserByEmail retrieves a user by email.
func (db *DB) GetUserByEmail(email string) (*models.User, error) {
	row := db.conn.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// ListNonAdminUsers returns all regular accounts, oldest first.
func (db *DB) ListNonAdminUsers() ([]models.User, error) {
	rows, err := db.conn.Query("SELECT " + userColumns + " FROM users WHERE is_admin = 0 ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetLastLogin records a successful login, which also counts as activity.
func (db *DB) SetLastLogin(userID int64, at time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE users SET last_login_at = ?, last_active_at = ? WHERE id = ?",
		formatTime(at), formatTime(at), userID,
	)
	return err
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateSession creates a new login session for a user.
func (db *DB) CreateSession(token string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, formatTime(expiresAt), formatTime(nowUTC()),
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the associated user.
func (db *DB) ValidateSession(token string) (*models.User, error) {
	info, err := db.ValidateSessionWithInfo(token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and returns session details.
func (db *DB) ValidateSessionWithInfo(token string) (*SessionInfo, error) {
	row := db.conn.QueryRow(`
		SELECT u.id, u.email, u.username, u.password_hash, u.is_admin, u.created_at, u.last_login_at, u.last_active_at,
		       s.last_activity, s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, formatTime(nowUTC()))

	var u models.User
	var email sql.NullString
	var createdAt, lastActivity, expiresAt string
	var lastLogin, lastActive sql.NullString
	if err := row.Scan(&u.ID, &email, &u.Username, &u.PasswordHash, &u.IsAdmin, &createdAt, &lastLogin, &lastActive, &lastActivity, &expiresAt); err != nil {
		return nil, err
	}
	if email.Valid {
		u.Email = &email.String
	}
	var err error
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.LastLoginAt, err = parseNullTime(lastLogin); err != nil {
		return nil, err
	}
	if u.LastActiveAt, err = parseNullTime(lastActive); err != nil {
		return nil, err
	}

	info := &SessionInfo{User: &u}
	if info.LastActivity, err = parseTime(lastActivity); err != nil {
		return nil, err
	}
	if info.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	return info, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(token string, newExpiresAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		formatTime(nowUTC()), formatTime(newExpiresAt), token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions() error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= ?", formatTime(nowUTC()))
	return err
}

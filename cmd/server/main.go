package main

import (
	"errors"
	"log"
	"net/http"
	"os"

	"focusboard/internal/auth"
	"focusboard/internal/handlers"
	"focusboard/internal/storage"
)

func main() {
	port := getenv("PORT", "8080")
	dbPath := getenv("DB_PATH", "focusboard.db")
	templateDir := getenv("TEMPLATE_DIR", "web/templates")
	staticDir := getenv("STATIC_DIR", "web/static")
	secureCookies := os.Getenv("SECURE_COOKIES") == "true"

	db, err := storage.NewDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := ensureAdminUser(db); err != nil {
		log.Fatalf("Failed to ensure admin user: %v", err)
	}

	if err := db.CleanExpiredSessions(); err != nil {
		log.Printf("Failed to clean expired sessions: %v", err)
	}

	h := handlers.NewHandlers(db, templateDir, secureCookies)
	mux := setupRouter(h, staticDir)

	log.Printf("Listening on :%s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ensureAdminUser creates the admin account from ADMIN_USER/ADMIN_PASSWORD
// if it does not exist yet. Without ADMIN_PASSWORD set, a missing admin is
// left missing.
func ensureAdminUser(db *storage.DB) error {
	username := getenv("ADMIN_USER", "admin")
	password := os.Getenv("ADMIN_PASSWORD")

	if _, err := db.GetUserByUsername(username); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if password == "" {
		log.Printf("ADMIN_PASSWORD not set; skipping admin bootstrap")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := db.CreateUser(username, nil, hash, true); err != nil {
		return err
	}
	log.Printf("Created admin user %q", username)
	return nil
}

func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /signup", h.SignupForm)
	mux.HandleFunc("POST /signup", h.Signup)
	mux.HandleFunc("POST /logout", h.Logout)

	// Pages
	mux.Handle("GET /{$}", h.RequireAuth(http.HandlerFunc(h.Dashboard)))
	mux.Handle("GET /completed", h.RequireAuth(http.HandlerFunc(h.CompletedTasksPage)))
	mux.Handle("GET /completed-tasks", h.RequireAuth(http.HandlerFunc(h.CompletedTasksPage)))
	mux.Handle("GET /profile", h.RequireAuth(http.HandlerFunc(h.Profile)))
	mux.Handle("GET /admin", h.RequireAuth(h.RequireAdmin(http.HandlerFunc(h.AdminPanel))))

	// Task API
	mux.Handle("GET /tasks", h.RequireAuthJSON(http.HandlerFunc(h.ListTasks)))
	mux.Handle("POST /add", h.RequireAuthJSON(http.HandlerFunc(h.AddTask)))
	mux.Handle("POST /update/{id}", h.RequireAuthJSON(http.HandlerFunc(h.UpdateTask)))
	mux.Handle("POST /delete/{id}", h.RequireAuthJSON(http.HandlerFunc(h.DeleteTask)))
	mux.Handle("GET /api/tasks/completed", h.RequireAuthJSON(http.HandlerFunc(h.CompletedTasksAPI)))

	// Pomodoro API
	mux.Handle("POST /api/pomodoro/start", h.RequireAuthJSON(http.HandlerFunc(h.StartPomodoro)))
	mux.Handle("POST /api/pomodoro/end/{id}", h.RequireAuthJSON(http.HandlerFunc(h.EndPomodoro)))
	mux.Handle("GET /api/pomodoro/stats", h.RequireAuthJSON(http.HandlerFunc(h.PomodoroStats)))

	// Admin API
	mux.Handle("GET /admin/activity", h.RequireAuthJSON(h.RequireAdmin(http.HandlerFunc(h.AdminActivityFeed))))
	mux.Handle("GET /admin/summary", h.RequireAuthJSON(h.RequireAdmin(http.HandlerFunc(h.AdminSummary))))

	return mux
}

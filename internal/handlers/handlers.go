package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"focusboard/internal/auth"
	"focusboard/internal/models"
	"focusboard/internal/storage"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// SessionDuration is how long sessions last (30 days).
	SessionDuration = 30 * 24 * time.Hour
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db           *storage.DB
	templateDir  string
	secureCookie bool
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, templateDir string, secureCookie bool) *Handlers {
	return &Handlers{db: db, templateDir: templateDir, secureCookie: secureCookie}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// resolveUser validates the session cookie and returns the logged-in user,
// renewing the session when it is past the halfway point of its lifetime.
func (h *Handlers) resolveUser(w http.ResponseWriter, r *http.Request) *models.User {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sessionInfo, err := h.db.ValidateSessionWithInfo(cookie.Value)
	if err != nil {
		h.clearSessionCookie(w)
		return nil
	}

	// Rolling session: renew if past halfway point. Keeps active users
	// logged in while still expiring inactive sessions.
	now := time.Now()
	if sessionInfo.ExpiresAt.Sub(now) < SessionDuration/2 {
		newExpiresAt := now.Add(SessionDuration)
		if err := h.db.RenewSession(cookie.Value, newExpiresAt); err == nil {
			h.setSessionCookie(w, cookie.Value)
		}
		// If renewal fails, just continue with the current session.
	}

	return sessionInfo.User
}

// RequireAuth wraps page handlers to require authentication, redirecting
// anonymous requests to the login page.
func (h *Handlers) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveUser(w, r)
		if user == nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuthJSON wraps API handlers to require authentication, rejecting
// anonymous requests with a 401 JSON body.
func (h *Handlers) RequireAuthJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := h.resolveUser(w, r)
		if user == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects non-admin users. Must run inside RequireAuth or
// RequireAuthJSON.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r)
		if user == nil || !user.IsAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// track records an activity for the request's user. It is a no-op without an
// authenticated user. Storage failures are returned for the handler to turn
// into a generic failure response.
func (h *Handlers) track(r *http.Request, action, description string, details models.Details) error {
	user := GetUserFromContext(r)
	if user == nil {
		return nil
	}
	return h.db.RecordActivity(user.ID, action, &description, details)
}

// LoginViewModel holds data for the login and signup pages.
type LoginViewModel struct {
	Error string
}

// LoginForm renders the login page.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	// If already logged in, go straight to the dashboard.
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.db.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}
	h.render(w, r, "login.html", LoginViewModel{})
}

// Login handles the login form submission. The identifier field accepts a
// username or an email address.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "login.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	identifier := strings.TrimSpace(r.FormValue("identifier"))
	password := r.FormValue("password")

	if identifier == "" || password == "" {
		h.render(w, r, "login.html", LoginViewModel{Error: "Username and password are required"})
		return
	}

	var user *models.User
	var err error
	if strings.Contains(identifier, "@") {
		user, err = h.db.GetUserByEmail(strings.ToLower(identifier))
	} else {
		user, err = h.db.GetUserByUsername(strings.ToLower(identifier))
	}
	if err != nil || !auth.CheckPassword(password, user.PasswordHash) {
		h.render(w, r, "login.html", LoginViewModel{Error: "Invalid credentials"})
		return
	}

	if err := h.startSession(w, user); err != nil {
		log.Printf("Failed to start session: %v", err)
		h.render(w, r, "login.html", LoginViewModel{Error: "An error occurred. Please try again."})
		return
	}

	if err := h.db.SetLastLogin(user.ID, time.Now().UTC()); err != nil {
		log.Printf("SetLastLogin error: %v", err)
	}
	description := "User signed in"
	if err := h.db.RecordActivity(user.ID, "login", &description, nil); err != nil {
		log.Printf("RecordActivity error: %v", err)
	}

	next := r.URL.Query().Get("next")
	if next == "" || !strings.HasPrefix(next, "/") {
		if user.IsAdmin {
			next = "/admin"
		} else {
			next = "/"
		}
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// SignupForm renders the signup page.
func (h *Handlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.db.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}
	h.render(w, r, "signup.html", LoginViewModel{})
}

// Signup handles account creation and logs the new user in.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, "signup.html", LoginViewModel{Error: "Invalid form submission"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	password := r.FormValue("password")

	if email == "" || username == "" || password == "" {
		h.render(w, r, "signup.html", LoginViewModel{Error: "Email, username, and password are required"})
		return
	}
	if _, err := h.db.GetUserByEmail(email); err == nil {
		h.render(w, r, "signup.html", LoginViewModel{Error: "An account with that email already exists"})
		return
	}
	if _, err := h.db.GetUserByUsername(username); err == nil {
		h.render(w, r, "signup.html", LoginViewModel{Error: "Username is already taken"})
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Printf("HashPassword error: %v", err)
		h.render(w, r, "signup.html", LoginViewModel{Error: "An error occurred. Please try again."})
		return
	}

	user, err := h.db.CreateUser(username, &email, hash, false)
	if err != nil {
		log.Printf("CreateUser error: %v", err)
		h.render(w, r, "signup.html", LoginViewModel{Error: "An error occurred. Please try again."})
		return
	}

	if err := h.startSession(w, user); err != nil {
		log.Printf("Failed to start session: %v", err)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err := h.db.SetLastLogin(user.ID, time.Now().UTC()); err != nil {
		log.Printf("SetLastLogin error: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Logout records the sign-out and ends the session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if user, err := h.db.ValidateSession(cookie.Value); err == nil {
			description := "User signed out"
			if err := h.db.RecordActivity(user.ID, "logout", &description, nil); err != nil {
				log.Printf("RecordActivity error: %v", err)
			}
		}
		if err := h.db.DeleteSession(cookie.Value); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) startSession(w http.ResponseWriter, user *models.User) error {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return err
	}
	if err := h.db.CreateSession(token, user.ID, time.Now().Add(SessionDuration)); err != nil {
		return err
	}
	h.setSessionCookie(w, token)
	return nil
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data any) {
	tmpl, err := template.ParseFiles(filepath.Join(h.templateDir, "base.html"), filepath.Join(h.templateDir, viewName))
	if err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Template execution error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into dst. A missing or empty body
// is not an error; endpoints with optional payloads rely on that.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// internal/auth/handlers.go
package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	httpserver "github.com/mrmoe28/solarscheduler-sub001/internal/http"
	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/repo"
	"github.com/mrmoe28/solarscheduler-sub001/internal/session"
)

const sessionTTL = 8 * time.Hour

// POST /auth/signup
// Body: { "email": "...", "full_name": "...", "company_name": "...", "password": "..." }
func SignupHandler(r *repo.Repo, sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Email       string `json:"email"`
			FullName    string `json:"full_name"`
			CompanyName string `json:"company_name"`
			Password    string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if len(body.Password) < 8 {
			httpserver.JSON(w, http.StatusBadRequest, map[string]string{
				"error":   "weak_password",
				"message": "Password must be at least 8 characters.",
			})
			return
		}

		phc, err := HashPassword(body.Password, DefaultArgonParams())
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}

		u, err := r.CreateUser(req.Context(), models.User{
			Email:       strings.TrimSpace(body.Email),
			FullName:    strings.TrimSpace(body.FullName),
			CompanyName: strings.TrimSpace(body.CompanyName),
		}, phc)
		if err != nil {
			slog.DebugContext(req.Context(), "signup rejected", "err", err)
			httpserver.Error(w, err, "signup failed")
			return
		}

		SetSessionCookie(w, sessions, models.Session{
			UserID:   u.ID,
			Provider: "local",
			Expiry:   time.Now().Add(sessionTTL),
		})
		httpserver.JSON(w, http.StatusCreated, map[string]any{"ok": true, "user": u})
	}
}

// POST /auth/login
// Body: { "email": "...", "password": "..." }
func LoginHandler(r *repo.Repo, sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		email := strings.ToLower(strings.TrimSpace(body.Email))
		if email == "" || body.Password == "" {
			http.Error(w, "invalid login", http.StatusUnauthorized)
			return
		}

		u, err := r.UserByEmail(req.Context(), email)
		if err != nil {
			// Same response as a bad password so emails cannot be probed.
			http.Error(w, "invalid login", http.StatusUnauthorized)
			slog.DebugContext(req.Context(), "login unknown email", "email", email)
			return
		}
		if !u.IsActive || !VerifyPassword(body.Password, u.PasswordHash) {
			http.Error(w, "invalid login", http.StatusUnauthorized)
			slog.DebugContext(req.Context(), "login bad password", "email", email)
			return
		}

		if err := r.RecordSignIn(req.Context(), u.ID); err != nil {
			slog.WarnContext(req.Context(), "record sign-in failed", "err", err)
		}

		SetSessionCookie(w, sessions, models.Session{
			UserID:   u.ID,
			Provider: "local",
			Expiry:   time.Now().Add(sessionTTL),
		})
		httpserver.JSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// POST /auth/logout
func LogoutHandler(sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ClearSessionCookie(w, req, sessions)
		w.WriteHeader(http.StatusNoContent)
	}
}

// GET /auth/me (mounted behind RequireAuth)
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		u, ok := UserFromContext(req.Context())
		if !ok || u == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		httpserver.JSON(w, http.StatusOK, u)
	}
}

// PUT /auth/profile
// Body: { "full_name": "...", "company_name": "..." } (fields optional)
func UpdateProfileHandler(r *repo.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sess, ok := SessionFromContext(req.Context())
		if !ok || sess == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var body struct {
			FullName    *string `json:"full_name"`
			CompanyName *string `json:"company_name"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		u, err := r.UpdateUserProfile(req.Context(), sess.UserID, repo.UserPatch{
			FullName:    body.FullName,
			CompanyName: body.CompanyName,
		})
		if err != nil {
			httpserver.Error(w, err, "profile update failed")
			return
		}
		httpserver.JSON(w, http.StatusOK, u)
	}
}

// POST /auth/set-password
// Body: { "password": "..." }
func SetPasswordHandler(r *repo.Repo) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sess, ok := SessionFromContext(req.Context())
		if !ok || sess == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var body struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || len(body.Password) < 8 {
			http.Error(w, "bad json or weak password", http.StatusBadRequest)
			return
		}
		phc, err := HashPassword(body.Password, DefaultArgonParams())
		if err != nil {
			http.Error(w, "hash error", http.StatusInternalServerError)
			return
		}
		if err := r.UpdatePasswordHash(req.Context(), sess.UserID, phc); err != nil {
			httpserver.Error(w, err, "cannot update credential")
			return
		}
		httpserver.JSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

// DELETE /auth/account
// Removes the account and everything it owns, then kills all sessions.
func DeleteAccountHandler(r *repo.Repo, sessions *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		sess, ok := SessionFromContext(req.Context())
		if !ok || sess == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := r.DeleteAccount(req.Context(), sess.UserID); err != nil {
			httpserver.Error(w, err, "account deletion failed")
			return
		}
		sessions.DeleteForUser(sess.UserID)
		ClearSessionCookie(w, req, sessions)
		w.WriteHeader(http.StatusNoContent)
	}
}

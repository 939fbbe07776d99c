package middleware

import (
	"net/http"

	"github.com/mrmoe28/solarscheduler-sub001/internal/auth"
	"github.com/mrmoe28/solarscheduler-sub001/internal/repo"
	"github.com/mrmoe28/solarscheduler-sub001/internal/session"
)

// RequireAuth authenticates using the "session" cookie (auth.ReadSession),
// then loads the user by Session.UserID from the repo and injects both
// session and user into the context.
func RequireAuth(r *repo.Repo, sessions *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s := auth.ReadSession(req, sessions)
			if s == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := r.UserByID(req.Context(), s.UserID)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !user.IsActive {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := auth.WithSession(req.Context(), s)
			ctx = auth.WithUser(ctx, &user)

			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

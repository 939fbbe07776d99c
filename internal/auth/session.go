// internal/auth/session.go
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/session"
)

type ctxKeyUser struct{}
type ctxKeySession struct{}

// cookieSecure controls whether the session cookie is marked Secure.
// Default true; main() should override based on config for local dev.
var cookieSecure = true

// SetCookieSecurity allows main.go to configure whether cookies are Secure.
func SetCookieSecurity(secure bool) { cookieSecure = secure }

var sameSiteMode = http.SameSiteLaxMode

// SetCookieSameSite allows configuring SameSite mode: "lax", "none", "strict".
func SetCookieSameSite(mode string) {
	switch mode {
	case "none":
		sameSiteMode = http.SameSiteNoneMode
	case "strict":
		sameSiteMode = http.SameSiteStrictMode
	default:
		sameSiteMode = http.SameSiteLaxMode
	}
}

// SetSessionCookie stores the session server-side and sets an opaque
// session id cookie. The store is passed explicitly; there is no package
// level default.
func SetSessionCookie(w http.ResponseWriter, sessions *session.Store, s models.Session) {
	sid := sessions.Create(s)
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   cookieSecure,
		SameSite: sameSiteMode,
		Expires:  s.Expiry,
	})
}

// ClearSessionCookie deletes the server-side session (best effort) and
// expires the cookie on the client.
func ClearSessionCookie(w http.ResponseWriter, req *http.Request, sessions *session.Store) {
	if c, err := req.Cookie("session"); err == nil && c.Value != "" {
		sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cookieSecure,
		SameSite: sameSiteMode,
	})
}

func ReadSession(r *http.Request, sessions *session.Store) *models.Session {
	c, err := r.Cookie("session")
	if err != nil || c.Value == "" {
		return nil
	}
	sess, ok := sessions.Get(c.Value)
	if !ok {
		return nil
	}
	if !sess.Expiry.IsZero() && sess.Expiry.Before(time.Now()) {
		return nil
	}
	// Return a copy to avoid mutation of store by callers
	s := sess
	return &s
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser{}, u)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKeyUser{}).(*models.User)
	return u, ok
}

func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, s)
}

func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	s, ok := ctx.Value(ctxKeySession{}).(*models.Session)
	return s, ok
}

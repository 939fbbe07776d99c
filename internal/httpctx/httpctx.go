package httpctx

import (
	"context"

	"github.com/google/uuid"

	"github.com/mrmoe28/solarscheduler-sub001/internal/auth"
	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
)

// Session returns the session from context if available.
func Session(ctx context.Context) (*models.Session, bool) {
	return auth.SessionFromContext(ctx)
}

// User returns the user pointer from context if available.
func User(ctx context.Context) (*models.User, bool) {
	return auth.UserFromContext(ctx)
}

// UserID returns a user id from context from either session or user.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	if s, ok := auth.SessionFromContext(ctx); ok && s != nil {
		return s.UserID, true
	}
	if u, ok := auth.UserFromContext(ctx); ok && u != nil {
		return u.ID, true
	}
	return uuid.Nil, false
}

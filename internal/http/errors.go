package httpserver

import (
	"errors"
	"net/http"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/repo"
)

// DomainError maps a domain-layer error to an HTTP status and response body.
// Unknown errors collapse to 500 with the fallback message so internals
// never leak to clients.
func DomainError(err error, fallback string) (int, any) {
	var vErr *repo.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation_failed",
			"fields": vErr.Result.Errors,
		}
	}

	var brErr *models.BusinessRuleError
	if errors.As(err, &brErr) {
		return http.StatusConflict, map[string]any{
			"error":   brErr.Rule,
			"message": brErr.Message,
		}
	}

	var cErr *models.ConstraintError
	if errors.As(err, &cErr) {
		return http.StatusConflict, map[string]any{
			"error":   cErr.Constraint,
			"message": cErr.Message,
		}
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, map[string]string{"error": "not_found"}
	case errors.Is(err, models.ErrNoActingUser):
		return http.StatusUnauthorized, map[string]string{"error": "unauthorized"}
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, map[string]string{"error": "store_unavailable"}
	}

	return http.StatusInternalServerError, map[string]string{"error": fallback}
}

// Error writes the mapped domain error as JSON.
func Error(w http.ResponseWriter, err error, fallback string) {
	status, body := DomainError(err, fallback)
	JSON(w, status, body)
}

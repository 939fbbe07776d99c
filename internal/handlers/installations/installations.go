// internal/handlers/installations/installations.go
package installations

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpserver "github.com/mrmoe28/solarscheduler-sub001/internal/http"
	"github.com/mrmoe28/solarscheduler-sub001/internal/httpctx"
	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/repo"
	"github.com/mrmoe28/solarscheduler-sub001/internal/stats"
)

type Handler struct {
	repo *repo.Repo
}

func New(r *repo.Repo) *Handler {
	return &Handler{repo: r}
}

// List handles GET /installations with optional status, job_id, from,
// to, q, sort, order and limit query parameters. from/to are RFC 3339.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	q := repo.InstallationQuery{
		Search:  r.URL.Query().Get("q"),
		SortKey: repo.InstallationSortKey(r.URL.Query().Get("sort")),
		Desc:    r.URL.Query().Get("order") == "desc",
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := models.InstallationStatus(v)
		if !st.Valid() {
			httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		q.Status = &st
	}
	if v := r.URL.Query().Get("job_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid job_id"})
			return
		}
		q.JobID = &id
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from date"})
			return
		}
		q.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to date"})
			return
		}
		q.To = &t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}

	installs, err := h.repo.Installations(r.Context(), owner, q)
	if err != nil {
		httpserver.Error(w, err, "failed to list installations")
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": installs})
}

// Create handles POST /installations. The referenced job must belong to
// the acting user.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var body struct {
		JobID                uuid.UUID `json:"job_id"`
		ScheduledDate        time.Time `json:"scheduled_date"`
		EstimatedDurationSec int64     `json:"estimated_duration_sec"`
		CrewMembers          string    `json:"crew_members"`
		Status               string    `json:"status"`
		Notes                string    `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	inst, err := h.repo.CreateInstallation(r.Context(), owner, models.Installation{
		JobID:                body.JobID,
		ScheduledDate:        body.ScheduledDate,
		EstimatedDurationSec: body.EstimatedDurationSec,
		CrewMembers:          body.CrewMembers,
		Status:               models.InstallationStatus(body.Status),
		Notes:                body.Notes,
	})
	if err != nil {
		httpserver.Error(w, err, "failed to create installation")
		return
	}
	httpserver.JSON(w, http.StatusCreated, inst)
}

// Get handles GET /installations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	inst, err := h.repo.Installation(r.Context(), owner, id)
	if err != nil {
		httpserver.Error(w, err, "failed to load installation")
		return
	}
	httpserver.JSON(w, http.StatusOK, inst)
}

// Update handles PATCH /installations/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var body struct {
		ScheduledDate        *time.Time `json:"scheduled_date"`
		EstimatedDurationSec *int64     `json:"estimated_duration_sec"`
		CrewMembers          *string    `json:"crew_members"`
		Status               *string    `json:"status"`
		Notes                *string    `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	patch := repo.InstallationPatch{
		ScheduledDate:        body.ScheduledDate,
		EstimatedDurationSec: body.EstimatedDurationSec,
		CrewMembers:          body.CrewMembers,
		Notes:                body.Notes,
	}
	if body.Status != nil {
		st := models.InstallationStatus(*body.Status)
		patch.Status = &st
	}

	inst, err := h.repo.UpdateInstallation(r.Context(), owner, id, patch)
	if err != nil {
		httpserver.Error(w, err, "failed to update installation")
		return
	}
	httpserver.JSON(w, http.StatusOK, inst)
}

// Delete handles DELETE /installations/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := h.repo.DeleteInstallation(r.Context(), owner, id); err != nil {
		httpserver.Error(w, err, "failed to delete installation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /installations/search?q=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	installs, err := h.repo.SearchInstallations(r.Context(), owner, r.URL.Query().Get("q"))
	if err != nil {
		httpserver.Error(w, err, "failed to search installations")
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": installs})
}

// Stats handles GET /installations/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	installs, err := h.repo.Installations(r.Context(), owner, repo.InstallationQuery{})
	if err != nil {
		httpserver.Error(w, err, "failed to load installations")
		return
	}
	httpserver.JSON(w, http.StatusOK, stats.Installations(installs, time.Now()))
}

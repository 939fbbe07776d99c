// internal/handlers/jobs/jobs.go
package jobs

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

// List handles GET /jobs with optional status, customer_id, q, sort,
// order and limit query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	q := repo.JobQuery{
		Search:  r.URL.Query().Get("q"),
		SortKey: repo.JobSortKey(r.URL.Query().Get("sort")),
		Desc:    r.URL.Query().Get("order") == "desc",
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st := models.JobStatus(v)
		if !st.Valid() {
			httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		q.Status = &st
	}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid customer_id"})
			return
		}
		q.CustomerID = &id
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}

	jobs, err := h.repo.Jobs(r.Context(), owner, q)
	if err != nil {
		httpserver.Error(w, err, "failed to list jobs")
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": jobs})
}

// Create handles POST /jobs.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var body struct {
		CustomerName     string     `json:"customer_name"`
		Address          string     `json:"address"`
		SystemSize       float64    `json:"system_size"`
		EstimatedRevenue float64    `json:"estimated_revenue"`
		Status           string     `json:"status"`
		ScheduledDate    *time.Time `json:"scheduled_date"`
		Notes            string     `json:"notes"`
		CustomerID       *uuid.UUID `json:"customer_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	job, err := h.repo.CreateJob(r.Context(), owner, models.Job{
		CustomerID:       body.CustomerID,
		CustomerName:     body.CustomerName,
		Address:          body.Address,
		SystemSize:       body.SystemSize,
		EstimatedRevenue: body.EstimatedRevenue,
		Status:           models.JobStatus(body.Status),
		ScheduledDate:    body.ScheduledDate,
		Notes:            body.Notes,
	})
	if err != nil {
		httpserver.Error(w, err, "failed to create job")
		return
	}
	httpserver.JSON(w, http.StatusCreated, job)
}

// Get handles GET /jobs/{id}.
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
	job, err := h.repo.Job(r.Context(), owner, id)
	if err != nil {
		httpserver.Error(w, err, "failed to load job")
		return
	}
	httpserver.JSON(w, http.StatusOK, job)
}

// Update handles PATCH /jobs/{id}. Status is not patchable here; use
// the dedicated status endpoint so transitions stay checked.
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
		CustomerName       *string    `json:"customer_name"`
		Address            *string    `json:"address"`
		SystemSize         *float64   `json:"system_size"`
		EstimatedRevenue   *float64   `json:"estimated_revenue"`
		ScheduledDate      *time.Time `json:"scheduled_date"`
		ClearScheduledDate bool       `json:"clear_scheduled_date"`
		Notes              *string    `json:"notes"`
		CustomerID         *uuid.UUID `json:"customer_id"`
		ClearCustomer      bool       `json:"clear_customer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	job, err := h.repo.UpdateJob(r.Context(), owner, id, repo.JobPatch{
		CustomerName:       body.CustomerName,
		Address:            body.Address,
		SystemSize:         body.SystemSize,
		EstimatedRevenue:   body.EstimatedRevenue,
		ScheduledDate:      body.ScheduledDate,
		ClearScheduledDate: body.ClearScheduledDate,
		Notes:              body.Notes,
		CustomerID:         body.CustomerID,
		ClearCustomer:      body.ClearCustomer,
	})
	if err != nil {
		httpserver.Error(w, err, "failed to update job")
		return
	}
	httpserver.JSON(w, http.StatusOK, job)
}

// UpdateStatus handles POST /jobs/{id}/status with body { "status": "..." }.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	job, err := h.repo.UpdateJobStatus(r.Context(), owner, id, models.JobStatus(body.Status))
	if err != nil {
		httpserver.Error(w, err, "failed to update job status")
		return
	}
	httpserver.JSON(w, http.StatusOK, job)
}

// Delete handles DELETE /jobs/{id}.
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
	if err := h.repo.DeleteJob(r.Context(), owner, id); err != nil {
		httpserver.Error(w, err, "failed to delete job")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /jobs/search?q=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	jobs, err := h.repo.SearchJobs(r.Context(), owner, r.URL.Query().Get("q"))
	if err != nil {
		httpserver.Error(w, err, "failed to search jobs")
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": jobs})
}

// Stats handles GET /jobs/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	jobs, err := h.repo.Jobs(r.Context(), owner, repo.JobQuery{})
	if err != nil {
		httpserver.Error(w, err, "failed to load jobs")
		return
	}
	httpserver.JSON(w, http.StatusOK, stats.Jobs(jobs))
}

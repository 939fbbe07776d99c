// internal/handlers/customers/customers.go
package customers

import (
	"encoding/json"
	"net/http"
	"strconv"

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

// List handles GET /customers with optional lead_status, q, sort, order
// and limit query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	q := repo.CustomerQuery{
		Search:  r.URL.Query().Get("q"),
		SortKey: repo.CustomerSortKey(r.URL.Query().Get("sort")),
		Desc:    r.URL.Query().Get("order") == "desc",
	}
	if v := r.URL.Query().Get("lead_status"); v != "" {
		st := models.LeadStatus(v)
		if !st.Valid() {
			httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid lead_status"})
			return
		}
		q.LeadStatus = &st
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}

	customers, err := h.repo.Customers(r.Context(), owner, q)
	if err != nil {
		httpserver.Error(w, err, "failed to list customers")
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": customers})
}

// Create handles POST /customers.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var body struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Address    string `json:"address"`
		LeadStatus string `json:"lead_status"`
		Notes      string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	c, err := h.repo.CreateCustomer(r.Context(), owner, models.Customer{
		Name:       body.Name,
		Email:      body.Email,
		Phone:      body.Phone,
		Address:    body.Address,
		LeadStatus: models.LeadStatus(body.LeadStatus),
		Notes:      body.Notes,
	})
	if err != nil {
		httpserver.Error(w, err, "failed to create customer")
		return
	}
	httpserver.JSON(w, http.StatusCreated, c)
}

// Get handles GET /customers/{id}.
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
	c, err := h.repo.Customer(r.Context(), owner, id)
	if err != nil {
		httpserver.Error(w, err, "failed to load customer")
		return
	}
	httpserver.JSON(w, http.StatusOK, c)
}

// Update handles PATCH /customers/{id}.
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
		Name       *string `json:"name"`
		Email      *string `json:"email"`
		Phone      *string `json:"phone"`
		Address    *string `json:"address"`
		LeadStatus *string `json:"lead_status"`
		Notes      *string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	patch := repo.CustomerPatch{
		Name:    body.Name,
		Email:   body.Email,
		Phone:   body.Phone,
		Address: body.Address,
		Notes:   body.Notes,
	}
	if body.LeadStatus != nil {
		st := models.LeadStatus(*body.LeadStatus)
		patch.LeadStatus = &st
	}

	c, err := h.repo.UpdateCustomer(r.Context(), owner, id, patch)
	if err != nil {
		httpserver.Error(w, err, "failed to update customer")
		return
	}
	httpserver.JSON(w, http.StatusOK, c)
}

// Delete handles DELETE /customers/{id}. Jobs that referenced the
// customer survive with their snapshot fields intact.
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
	if err := h.repo.DeleteCustomer(r.Context(), owner, id); err != nil {
		httpserver.Error(w, err, "failed to delete customer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Jobs handles GET /customers/{id}/jobs.
func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
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
	jobs, err := h.repo.CustomerJobs(r.Context(), owner, id)
	if err != nil {
		httpserver.Error(w, err, "failed to load customer jobs")
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": jobs})
}

// Search handles GET /customers/search?q=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	customers, err := h.repo.SearchCustomers(r.Context(), owner, r.URL.Query().Get("q"))
	if err != nil {
		httpserver.Error(w, err, "failed to search customers")
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": customers})
}

// Stats handles GET /customers/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	customers, err := h.repo.Customers(r.Context(), owner, repo.CustomerQuery{})
	if err != nil {
		httpserver.Error(w, err, "failed to load customers")
		return
	}
	httpserver.JSON(w, http.StatusOK, stats.Customers(customers))
}

// internal/handlers/equipment/equipment.go
package equipment

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

// List handles GET /equipment with optional category, low_stock, q,
// sort, order and limit query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	q := repo.EquipmentQuery{
		LowStockOnly: r.URL.Query().Get("low_stock") == "true",
		Search:       r.URL.Query().Get("q"),
		SortKey:      repo.EquipmentSortKey(r.URL.Query().Get("sort")),
		Desc:         r.URL.Query().Get("order") == "desc",
	}
	if v := r.URL.Query().Get("category"); v != "" {
		cat := models.EquipmentCategory(v)
		if !cat.Valid() {
			httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category"})
			return
		}
		q.Category = &cat
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			q.Limit = n
		}
	}

	items, err := h.repo.EquipmentList(r.Context(), owner, q)
	if err != nil {
		httpserver.Error(w, err, "failed to list equipment")
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": items})
}

// Create handles POST /equipment.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var body struct {
		Name              string  `json:"name"`
		Category          string  `json:"category"`
		Brand             string  `json:"brand"`
		Model             string  `json:"model"`
		Manufacturer      string  `json:"manufacturer"`
		Quantity          int     `json:"quantity"`
		UnitPrice         float64 `json:"unit_price"`
		UnitCost          float64 `json:"unit_cost"`
		MinimumStock      int     `json:"minimum_stock"`
		LowStockThreshold int     `json:"low_stock_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	item, err := h.repo.CreateEquipment(r.Context(), owner, models.Equipment{
		Name:              body.Name,
		Category:          models.EquipmentCategory(body.Category),
		Brand:             body.Brand,
		Model:             body.Model,
		Manufacturer:      body.Manufacturer,
		Quantity:          body.Quantity,
		UnitPrice:         body.UnitPrice,
		UnitCost:          body.UnitCost,
		MinimumStock:      body.MinimumStock,
		LowStockThreshold: body.LowStockThreshold,
	})
	if err != nil {
		httpserver.Error(w, err, "failed to create equipment")
		return
	}
	httpserver.JSON(w, http.StatusCreated, item)
}

// Get handles GET /equipment/{id}.
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
	item, err := h.repo.Equipment(r.Context(), owner, id)
	if err != nil {
		httpserver.Error(w, err, "failed to load equipment")
		return
	}
	httpserver.JSON(w, http.StatusOK, item)
}

// Update handles PATCH /equipment/{id}. Quantity is not patchable here;
// stock moves through the dedicated stock endpoint.
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
		Name              *string  `json:"name"`
		Category          *string  `json:"category"`
		Brand             *string  `json:"brand"`
		Model             *string  `json:"model"`
		Manufacturer      *string  `json:"manufacturer"`
		UnitPrice         *float64 `json:"unit_price"`
		UnitCost          *float64 `json:"unit_cost"`
		MinimumStock      *int     `json:"minimum_stock"`
		LowStockThreshold *int     `json:"low_stock_threshold"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	patch := repo.EquipmentPatch{
		Name:              body.Name,
		Brand:             body.Brand,
		Model:             body.Model,
		Manufacturer:      body.Manufacturer,
		UnitPrice:         body.UnitPrice,
		UnitCost:          body.UnitCost,
		MinimumStock:      body.MinimumStock,
		LowStockThreshold: body.LowStockThreshold,
	}
	if body.Category != nil {
		cat := models.EquipmentCategory(*body.Category)
		patch.Category = &cat
	}

	item, err := h.repo.UpdateEquipment(r.Context(), owner, id, patch)
	if err != nil {
		httpserver.Error(w, err, "failed to update equipment")
		return
	}
	httpserver.JSON(w, http.StatusOK, item)
}

// AdjustStock handles POST /equipment/{id}/stock with body { "delta": n }.
// Negative deltas consume stock and are refused if they would go below zero.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
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
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpserver.JSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	item, err := h.repo.AdjustStock(r.Context(), owner, id, body.Delta)
	if err != nil {
		httpserver.Error(w, err, "failed to adjust stock")
		return
	}
	httpserver.JSON(w, http.StatusOK, item)
}

// Delete handles DELETE /equipment/{id}.
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
	if err := h.repo.DeleteEquipment(r.Context(), owner, id); err != nil {
		httpserver.Error(w, err, "failed to delete equipment")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /equipment/search?q=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	items, err := h.repo.SearchEquipment(r.Context(), owner, r.URL.Query().Get("q"))
	if err != nil {
		httpserver.Error(w, err, "failed to search equipment")
		return
	}
	httpserver.JSON(w, http.StatusOK, map[string]any{"content": items})
}

// Stats handles GET /equipment/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpctx.UserID(r.Context())
	if !ok {
		httpserver.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	items, err := h.repo.EquipmentList(r.Context(), owner, repo.EquipmentQuery{})
	if err != nil {
		httpserver.Error(w, err, "failed to load equipment")
		return
	}
	httpserver.JSON(w, http.StatusOK, stats.Equipment(items))
}

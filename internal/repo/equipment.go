package repo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/safemath"
	"github.com/mrmoe28/solarscheduler-sub001/internal/store"
	"github.com/mrmoe28/solarscheduler-sub001/internal/validate"
)

// ---------------- Equipment ----------------
//
// Equipment is ownership-scoped like every other entity: each user keeps a
// private catalog. The source design was ambiguous here; scoping uniformly
// is the only policy consistent with tenant isolation.

type EquipmentSortKey string

const (
	EquipmentSortCreatedDate EquipmentSortKey = "created_date"
	EquipmentSortName        EquipmentSortKey = "name"
	EquipmentSortQuantity    EquipmentSortKey = "quantity"
	EquipmentSortCategory    EquipmentSortKey = "category"
	EquipmentSortUnitPrice   EquipmentSortKey = "unit_price"
)

func equipmentSort(key EquipmentSortKey, desc bool) *store.Sort {
	switch key {
	case EquipmentSortCreatedDate:
		return &store.Sort{Field: "created_date", Desc: desc}
	case EquipmentSortName:
		return &store.Sort{Field: "name", Desc: desc}
	case EquipmentSortQuantity:
		return &store.Sort{Field: "quantity", Desc: desc, Numeric: true}
	case EquipmentSortCategory:
		return &store.Sort{Field: "category_ord", Desc: desc, Numeric: true}
	case EquipmentSortUnitPrice:
		return &store.Sort{Field: "unit_price", Desc: desc, Numeric: true}
	}
	return nil
}

var equipmentSearchFields = []string{"name", "brand", "model", "manufacturer"}

type EquipmentQuery struct {
	Category     *models.EquipmentCategory
	LowStockOnly bool
	Search       string
	SortKey      EquipmentSortKey
	Desc         bool
	Limit        int
}

type EquipmentPatch struct {
	Name              *string
	Category          *models.EquipmentCategory
	Brand             *string
	Model             *string
	Manufacturer      *string
	UnitPrice         *float64
	UnitCost          *float64
	MinimumStock      *int
	LowStockThreshold *int
}

func encodeEquipment(e models.Equipment) (map[string]any, error) {
	doc, err := encodeDoc(e)
	if err != nil {
		return nil, err
	}
	doc["category_ord"] = float64(e.Category.Ordinal())
	return doc, nil
}

// CreateEquipment validates and stores a new inventory item.
func (r *Repo) CreateEquipment(ctx context.Context, owner uuid.UUID, in models.Equipment) (models.Equipment, error) {
	if err := requireOwner(owner); err != nil {
		return models.Equipment{}, err
	}
	slog.DebugContext(ctx, "CreateEquipment", "owner_id", owner.String())

	in.ID = uuid.New()
	in.OwnerID = owner
	in.CreatedDate = normalizeTime(r.now())
	if in.Category == "" {
		in.Category = models.CategoryOther
	}
	in.UnitPrice = safemath.Sanitize(in.UnitPrice)
	in.UnitCost = safemath.Sanitize(in.UnitCost)

	if res := validate.Equipment(in, true); !res.Valid() {
		return models.Equipment{}, &ValidationError{Result: res}
	}

	doc, err := encodeEquipment(in)
	if err != nil {
		return models.Equipment{}, err
	}
	if err := r.store.Insert(ctx, collEquipment, in.ID, doc); err != nil {
		slog.ErrorContext(ctx, "CreateEquipment failed", "err", err)
		return models.Equipment{}, storeErr("insert equipment", err)
	}
	return in, nil
}

func (r *Repo) Equipment(ctx context.Context, owner, id uuid.UUID) (models.Equipment, error) {
	if err := requireOwner(owner); err != nil {
		return models.Equipment{}, err
	}
	doc, err := r.store.Get(ctx, collEquipment, id)
	if err != nil {
		return models.Equipment{}, storeErr("get equipment", err)
	}
	var e models.Equipment
	if err := decodeDoc(doc, &e); err != nil {
		return models.Equipment{}, err
	}
	if e.OwnerID != owner {
		return models.Equipment{}, models.ErrNotFound
	}
	return e, nil
}

func (r *Repo) EquipmentList(ctx context.Context, owner uuid.UUID, q EquipmentQuery) ([]models.Equipment, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "EquipmentList", "owner_id", owner.String())

	sq := store.Query{
		Filters: []store.Filter{store.Eq("owner_id", owner.String())},
		Sort:    equipmentSort(q.SortKey, q.Desc),
		Limit:   q.Limit,
	}
	if q.LowStockOnly {
		// The low-stock predicate is applied after decode; a store-side
		// limit would truncate before it and drop matches. Fetch all, then
		// cut to q.Limit below.
		sq.Limit = 0
	}
	if q.Category != nil {
		sq.Filters = append(sq.Filters, store.Eq("category", string(*q.Category)))
	}
	if q.Search != "" {
		sq.Filters = append(sq.Filters, store.MatchAny(q.Search, equipmentSearchFields...))
	}

	docs, err := r.store.List(ctx, collEquipment, sq)
	if err != nil {
		slog.ErrorContext(ctx, "EquipmentList failed", "err", err)
		return nil, storeErr("list equipment", err)
	}
	out := make([]models.Equipment, 0, len(docs))
	for _, doc := range docs {
		var e models.Equipment
		if err := decodeDoc(doc, &e); err != nil {
			return nil, err
		}
		// Low stock compares two fields of the same record; the predicate
		// language is field-vs-value, so this filter applies here.
		if q.LowStockOnly && !e.IsLowStock() {
			continue
		}
		out = append(out, e)
		if q.LowStockOnly && q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (r *Repo) SearchEquipment(ctx context.Context, owner uuid.UUID, query string) ([]models.Equipment, error) {
	return r.EquipmentList(ctx, owner, EquipmentQuery{Search: query})
}

func (r *Repo) UpdateEquipment(ctx context.Context, owner, id uuid.UUID, patch EquipmentPatch) (models.Equipment, error) {
	if err := requireOwner(owner); err != nil {
		return models.Equipment{}, err
	}
	slog.DebugContext(ctx, "UpdateEquipment", "owner_id", owner.String(), "equipment_id", id.String())

	var updated models.Equipment
	err := r.mutate(ctx, collEquipment, func(tx store.Store) error {
		e, err := r.equipmentInTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			e.Name = *patch.Name
		}
		if patch.Category != nil {
			e.Category = *patch.Category
		}
		if patch.Brand != nil {
			e.Brand = *patch.Brand
		}
		if patch.Model != nil {
			e.Model = *patch.Model
		}
		if patch.Manufacturer != nil {
			e.Manufacturer = *patch.Manufacturer
		}
		if patch.UnitPrice != nil {
			e.UnitPrice = safemath.Sanitize(*patch.UnitPrice)
		}
		if patch.UnitCost != nil {
			e.UnitCost = safemath.Sanitize(*patch.UnitCost)
		}
		if patch.MinimumStock != nil {
			e.MinimumStock = *patch.MinimumStock
		}
		if patch.LowStockThreshold != nil {
			e.LowStockThreshold = *patch.LowStockThreshold
		}

		if res := validate.Equipment(e, false); !res.Valid() {
			return &ValidationError{Result: res}
		}

		doc, err := encodeEquipment(e)
		if err != nil {
			return err
		}
		if err := tx.Replace(ctx, collEquipment, id, doc); err != nil {
			return storeErr("update equipment", err)
		}
		updated = e
		return nil
	})
	if err != nil {
		return models.Equipment{}, err
	}
	return updated, nil
}

// AdjustStock applies a signed quantity delta as a serialized
// read-modify-write. A consumption that would go negative is refused, not
// clamped.
func (r *Repo) AdjustStock(ctx context.Context, owner, id uuid.UUID, delta int) (models.Equipment, error) {
	if err := requireOwner(owner); err != nil {
		return models.Equipment{}, err
	}
	slog.DebugContext(ctx, "AdjustStock", "owner_id", owner.String(), "equipment_id", id.String(), "delta", delta)

	var updated models.Equipment
	err := r.mutate(ctx, collEquipment, func(tx store.Store) error {
		e, err := r.equipmentInTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		next := e.Quantity + delta
		if next < 0 {
			return &models.BusinessRuleError{
				Rule:    "insufficient_stock",
				Message: fmt.Sprintf("cannot consume %d units; only %d in stock", -delta, e.Quantity),
			}
		}
		e.Quantity = next

		if res := validate.Equipment(e, false); !res.Valid() {
			return &ValidationError{Result: res}
		}

		doc, err := encodeEquipment(e)
		if err != nil {
			return err
		}
		if err := tx.Replace(ctx, collEquipment, id, doc); err != nil {
			return storeErr("adjust stock", err)
		}
		updated = e
		return nil
	})
	if err != nil {
		return models.Equipment{}, err
	}
	return updated, nil
}

func (r *Repo) DeleteEquipment(ctx context.Context, owner, id uuid.UUID) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	slog.DebugContext(ctx, "DeleteEquipment", "owner_id", owner.String(), "equipment_id", id.String())

	return r.mutate(ctx, collEquipment, func(tx store.Store) error {
		if _, err := r.equipmentInTx(ctx, tx, owner, id); err != nil {
			return err
		}
		return storeErr("delete equipment", tx.Delete(ctx, collEquipment, id))
	})
}

func (r *Repo) equipmentInTx(ctx context.Context, tx store.Store, owner, id uuid.UUID) (models.Equipment, error) {
	doc, err := tx.Get(ctx, collEquipment, id)
	if err != nil {
		return models.Equipment{}, storeErr("get equipment", err)
	}
	var e models.Equipment
	if err := decodeDoc(doc, &e); err != nil {
		return models.Equipment{}, err
	}
	if e.OwnerID != owner {
		return models.Equipment{}, models.ErrNotFound
	}
	return e, nil
}

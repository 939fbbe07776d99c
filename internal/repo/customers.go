package repo

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/store"
	"github.com/mrmoe28/solarscheduler-sub001/internal/validate"
)

// ---------------- Customers ----------------

type CustomerSortKey string

const (
	CustomerSortCreatedDate CustomerSortKey = "created_date"
	CustomerSortName        CustomerSortKey = "name"
	CustomerSortLeadStatus  CustomerSortKey = "lead_status"
)

func customerSort(key CustomerSortKey, desc bool) *store.Sort {
	switch key {
	case CustomerSortCreatedDate:
		return &store.Sort{Field: "created_date", Desc: desc}
	case CustomerSortName:
		return &store.Sort{Field: "name", Desc: desc}
	case CustomerSortLeadStatus:
		return &store.Sort{Field: "lead_status_ord", Desc: desc, Numeric: true}
	}
	return nil
}

var customerSearchFields = []string{"name", "email", "phone", "address", "notes"}

type CustomerQuery struct {
	LeadStatus *models.LeadStatus
	Search     string
	SortKey    CustomerSortKey
	Desc       bool
	Limit      int
}

type CustomerPatch struct {
	Name       *string
	Email      *string
	Phone      *string
	Address    *string
	LeadStatus *models.LeadStatus
	Notes      *string
}

func encodeCustomer(c models.Customer) (map[string]any, error) {
	doc, err := encodeDoc(c)
	if err != nil {
		return nil, err
	}
	doc["lead_status_ord"] = float64(c.LeadStatus.Ordinal())
	return doc, nil
}

// CreateCustomer validates and stores a new customer for the acting user.
// New customers default to the first pipeline stage.
func (r *Repo) CreateCustomer(ctx context.Context, owner uuid.UUID, in models.Customer) (models.Customer, error) {
	if err := requireOwner(owner); err != nil {
		return models.Customer{}, err
	}
	slog.DebugContext(ctx, "CreateCustomer", "owner_id", owner.String())

	in.ID = uuid.New()
	in.OwnerID = owner
	in.CreatedDate = normalizeTime(r.now())
	if in.LeadStatus == "" {
		in.LeadStatus = models.LeadNew
	}

	if res := validate.Customer(in); !res.Valid() {
		return models.Customer{}, &ValidationError{Result: res}
	}

	doc, err := encodeCustomer(in)
	if err != nil {
		return models.Customer{}, err
	}
	if err := r.store.Insert(ctx, collCustomers, in.ID, doc); err != nil {
		slog.ErrorContext(ctx, "CreateCustomer failed", "err", err)
		return models.Customer{}, storeErr("insert customer", err)
	}
	return in, nil
}

func (r *Repo) Customer(ctx context.Context, owner, id uuid.UUID) (models.Customer, error) {
	if err := requireOwner(owner); err != nil {
		return models.Customer{}, err
	}
	doc, err := r.store.Get(ctx, collCustomers, id)
	if err != nil {
		return models.Customer{}, storeErr("get customer", err)
	}
	var c models.Customer
	if err := decodeDoc(doc, &c); err != nil {
		return models.Customer{}, err
	}
	if c.OwnerID != owner {
		return models.Customer{}, models.ErrNotFound
	}
	return c, nil
}

func (r *Repo) Customers(ctx context.Context, owner uuid.UUID, q CustomerQuery) ([]models.Customer, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Customers", "owner_id", owner.String())

	sq := store.Query{
		Filters: []store.Filter{store.Eq("owner_id", owner.String())},
		Sort:    customerSort(q.SortKey, q.Desc),
		Limit:   q.Limit,
	}
	if q.LeadStatus != nil {
		sq.Filters = append(sq.Filters, store.Eq("lead_status", string(*q.LeadStatus)))
	}
	if q.Search != "" {
		sq.Filters = append(sq.Filters, store.MatchAny(q.Search, customerSearchFields...))
	}

	docs, err := r.store.List(ctx, collCustomers, sq)
	if err != nil {
		slog.ErrorContext(ctx, "Customers failed", "err", err)
		return nil, storeErr("list customers", err)
	}
	out := make([]models.Customer, 0, len(docs))
	for _, doc := range docs {
		var c models.Customer
		if err := decodeDoc(doc, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Repo) SearchCustomers(ctx context.Context, owner uuid.UUID, query string) ([]models.Customer, error) {
	return r.Customers(ctx, owner, CustomerQuery{Search: query})
}

// CustomerJobs is the derived back-reference: jobs are scanned by customer
// id on every read instead of keeping a stored inverse collection, so a
// deleted customer can never leave a dangling pointer behind.
func (r *Repo) CustomerJobs(ctx context.Context, owner, customerID uuid.UUID) ([]models.Job, error) {
	if _, err := r.Customer(ctx, owner, customerID); err != nil {
		return nil, err
	}
	return r.Jobs(ctx, owner, JobQuery{CustomerID: &customerID})
}

func (r *Repo) UpdateCustomer(ctx context.Context, owner, id uuid.UUID, patch CustomerPatch) (models.Customer, error) {
	if err := requireOwner(owner); err != nil {
		return models.Customer{}, err
	}
	slog.DebugContext(ctx, "UpdateCustomer", "owner_id", owner.String(), "customer_id", id.String())

	var updated models.Customer
	err := r.mutate(ctx, collCustomers, func(tx store.Store) error {
		c, err := r.customerInTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			c.Name = *patch.Name
		}
		if patch.Email != nil {
			c.Email = *patch.Email
		}
		if patch.Phone != nil {
			c.Phone = *patch.Phone
		}
		if patch.Address != nil {
			c.Address = *patch.Address
		}
		if patch.LeadStatus != nil {
			c.LeadStatus = *patch.LeadStatus
		}
		if patch.Notes != nil {
			c.Notes = *patch.Notes
		}

		if res := validate.Customer(c); !res.Valid() {
			return &ValidationError{Result: res}
		}

		doc, err := encodeCustomer(c)
		if err != nil {
			return err
		}
		if err := tx.Replace(ctx, collCustomers, id, doc); err != nil {
			return storeErr("update customer", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return models.Customer{}, err
	}
	return updated, nil
}

// DeleteCustomer removes a customer only; jobs referencing it survive and
// simply lose the association on read.
func (r *Repo) DeleteCustomer(ctx context.Context, owner, id uuid.UUID) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	slog.DebugContext(ctx, "DeleteCustomer", "owner_id", owner.String(), "customer_id", id.String())

	return r.mutate(ctx, collCustomers, func(tx store.Store) error {
		if _, err := r.customerInTx(ctx, tx, owner, id); err != nil {
			return err
		}
		return storeErr("delete customer", tx.Delete(ctx, collCustomers, id))
	})
}

func (r *Repo) customerInTx(ctx context.Context, tx store.Store, owner, id uuid.UUID) (models.Customer, error) {
	doc, err := tx.Get(ctx, collCustomers, id)
	if err != nil {
		return models.Customer{}, storeErr("get customer", err)
	}
	var c models.Customer
	if err := decodeDoc(doc, &c); err != nil {
		return models.Customer{}, err
	}
	if c.OwnerID != owner {
		return models.Customer{}, models.ErrNotFound
	}
	return c, nil
}

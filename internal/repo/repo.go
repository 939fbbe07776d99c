// internal/repo/repo.go
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/store"
	"github.com/mrmoe28/solarscheduler-sub001/internal/validate"
)

// Collection names in the object store.
const (
	collUsers         = "users"
	collJobs          = "jobs"
	collCustomers     = "customers"
	collEquipment     = "equipment"
	collInstallations = "installations"
)

// collOrder is the canonical lock-acquisition order for multi-collection
// mutations; taking locks out of order could deadlock.
var collOrder = []string{collUsers, collJobs, collCustomers, collEquipment, collInstallations}

// Repo owns entity lifecycle, ownership scoping and business-rule
// enforcement on top of the object store. Every owner-scoped method takes
// the acting user's id explicitly; there is no process-wide session state.
type Repo struct {
	store store.Store
	now   func() time.Time
	muts  map[string]*sync.Mutex
}

// New wraps a store with the production clock.
func New(s store.Store) *Repo { return NewWithClock(s, time.Now) }

// NewWithClock lets tests pin the current time.
func NewWithClock(s store.Store, now func() time.Time) *Repo {
	muts := make(map[string]*sync.Mutex, len(collOrder))
	for _, c := range collOrder {
		muts[c] = &sync.Mutex{}
	}
	return &Repo{store: s, now: now, muts: muts}
}

// mutate runs a read-modify-write transaction under the collection's
// mutation lock. The database transaction alone is not enough: Postgres
// runs at read committed, so two concurrent transactions can both read the
// same quantity and one delta is lost on commit, and the Surreal
// transaction buffers its writes against a pre-transaction snapshot. The
// memory backend serializes inside Tx already; the lock costs nothing extra
// there.
func (r *Repo) mutate(ctx context.Context, coll string, fn func(tx store.Store) error) error {
	mu := r.muts[coll]
	mu.Lock()
	defer mu.Unlock()
	return txErr(r.store.Tx(ctx, fn))
}

// mutateAll takes every mutation lock in canonical order; the account
// cascade writes to all collections.
func (r *Repo) mutateAll(ctx context.Context, fn func(tx store.Store) error) error {
	for _, c := range collOrder {
		mu := r.muts[c]
		mu.Lock()
		defer mu.Unlock()
	}
	return txErr(r.store.Tx(ctx, fn))
}

// txErr catches connection failures surfacing from begin or commit; errors
// from inside the callback are already in domain vocabulary.
func txErr(err error) error {
	if errors.Is(err, store.ErrUnavailable) {
		return models.ErrStoreUnavailable
	}
	return err
}

// ValidationError carries a structured validation result across the error
// boundary; handlers unwrap it back into the field list.
type ValidationError struct {
	Result validate.Result
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Result.Errors))
	for _, fe := range e.Result.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// requireOwner is the precondition every owner-scoped operation shares.
func requireOwner(owner uuid.UUID) error {
	if owner == uuid.Nil {
		return models.ErrNoActingUser
	}
	return nil
}

// storeErr folds store-level failures into the domain error taxonomy
// without masking the cause.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNoRecord):
		return models.ErrNotFound
	case errors.Is(err, store.ErrDuplicateRecord):
		return &models.ConstraintError{Constraint: "unique", Message: "record already exists"}
	case errors.Is(err, store.ErrUnavailable):
		return models.ErrStoreUnavailable
	}
	return &models.StoreError{Op: op, Err: err}
}

// normalizeTime strips sub-second precision and pins UTC so stored date
// strings compare correctly in every backend.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func timeValue(t time.Time) string {
	return normalizeTime(t).Format(time.RFC3339)
}

// encodeDoc and decodeDoc move entities through their JSON shape, the
// common representation all store backends share.
func encodeDoc(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeDoc(doc map[string]any, v any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Package store defines the transactional object-store collaborator the
// repositories are built on. The core issues logical queries (predicates +
// sort descriptor + limit) and expects the backend to execute them; it
// assumes nothing about the on-disk format.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNoRecord is returned by Get/Replace/Delete when the id is absent
	// from the collection.
	ErrNoRecord = errors.New("no such record")

	// ErrDuplicateRecord is returned by Insert when the id already exists.
	ErrDuplicateRecord = errors.New("duplicate record id")

	// ErrUnavailable wraps connection-level backend failures, as opposed
	// to failures of the statement itself.
	ErrUnavailable = errors.New("store unavailable")
)

// Op is a predicate operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
	// OpMatchAny is a case-insensitive substring match OR-combined across
	// Fields; Value is the query string.
	OpMatchAny Op = "match_any"
)

// Filter is one combinable predicate over document fields.
type Filter struct {
	Field  string
	Fields []string // OpMatchAny only
	Op     Op
	Value  any
}

// Sort is a single sort descriptor. Ties are always broken by insertion
// order; every backend must sort stably. Numeric tells SQL-backed stores to
// compare the field as a number rather than text.
type Sort struct {
	Field   string
	Desc    bool
	Numeric bool
}

// Query is a logical fetch: all filters must match (AND), results are
// ordered by Sort then insertion order, and truncated to Limit when > 0.
type Query struct {
	Filters []Filter
	Sort    *Sort
	Limit   int
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// Gte builds a lower-bound filter (inclusive).
func Gte(field string, value any) Filter {
	return Filter{Field: field, Op: OpGte, Value: value}
}

// Lte builds an upper-bound filter (inclusive).
func Lte(field string, value any) Filter {
	return Filter{Field: field, Op: OpLte, Value: value}
}

// MatchAny builds a case-insensitive substring filter across fields.
func MatchAny(query string, fields ...string) Filter {
	return Filter{Fields: fields, Op: OpMatchAny, Value: query}
}

// Store is an abstract transactional object store. Documents are
// JSON-shaped maps: string, float64, bool, nil and nested variants.
// Mutations are serialized per store instance; reads may run concurrently
// and never observe a half-written record.
type Store interface {
	Insert(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error
	Get(ctx context.Context, collection string, id uuid.UUID) (map[string]any, error)
	Replace(ctx context.Context, collection string, id uuid.UUID, doc map[string]any) error
	Delete(ctx context.Context, collection string, id uuid.UUID) error
	List(ctx context.Context, collection string, q Query) ([]map[string]any, error)

	// Tx runs fn against a transactional view; all mutations commit
	// together or not at all. A cancelled context aborts the whole
	// transaction with no partial mutation.
	Tx(ctx context.Context, fn func(tx Store) error) error
}

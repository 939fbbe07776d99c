package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both a missing id and a record owned by another
	// user; the two cases are deliberately indistinguishable to callers.
	ErrNotFound = errors.New("record not found")

	// ErrNoActingUser is returned when an owner-scoped operation runs
	// without a configured acting user. Not retryable until a session is
	// established.
	ErrNoActingUser = errors.New("no acting user configured")

	// ErrStoreUnavailable indicates the underlying store is unreachable.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// BusinessRuleError marks a semantically valid value disallowed by domain
// policy, e.g. an illegal status transition or a stock consumption that
// would go negative. Recoverable by the caller.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s: %s", e.Rule, e.Message)
}

// ConstraintError is a persistence-layer rejection such as a uniqueness
// violation.
type ConstraintError struct {
	Constraint string
	Message    string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s: %s", e.Constraint, e.Message)
}

// StoreError wraps a persistence failure without masking its cause. The
// core never retries these automatically.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

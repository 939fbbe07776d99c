// Package validate implements field-level and business-rule checks for
// every entity kind. Validation never returns a Go error; every check
// produces a Result the caller must branch on.
package validate

import (
	"regexp"
	"time"
)

// Code classifies a single validation failure.
type Code string

const (
	CodeRequired      Code = "required"
	CodeInvalidFormat Code = "invalid_format"
	CodeOutOfRange    Code = "out_of_range"
	CodeBusinessRule  Code = "business_rule"
	CodeDuplicate     Code = "duplicate"
)

// FieldError is one failed check on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

// Result is the outcome of validating one entity. A zero Result is valid.
type Result struct {
	Errors []FieldError `json:"errors,omitempty"`
}

func (r Result) Valid() bool { return len(r.Errors) == 0 }

func (r *Result) add(field string, code Code, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message, Code: code})
}

var emailRE = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether s matches a standard local@domain.tld pattern.
func ValidEmail(s string) bool { return emailRE.MatchString(s) }

// startOfDay truncates t to midnight in its own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

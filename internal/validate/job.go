package validate

import (
	"fmt"
	"time"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
)

// Job checks a job's fields against the business rules. now anchors the
// past-date check to the start of the current calendar day.
func Job(j models.Job, now time.Time) Result {
	var r Result

	switch n := len(j.CustomerName); {
	case n == 0:
		r.add("customer_name", CodeRequired, "customer name is required")
	case n < 2 || n > 100:
		r.add("customer_name", CodeOutOfRange, "customer name must be 2-100 characters")
	}

	switch n := len(j.Address); {
	case n == 0:
		r.add("address", CodeRequired, "address is required")
	case n < 10 || n > 200:
		r.add("address", CodeOutOfRange, "address must be 10-200 characters")
	}

	if j.SystemSize <= 0.1 || j.SystemSize > 1000 {
		r.add("system_size", CodeOutOfRange, "system size must be greater than 0.1 and at most 1000 kW")
	}
	if j.EstimatedRevenue < 0 || j.EstimatedRevenue > 1_000_000 {
		r.add("estimated_revenue", CodeOutOfRange, "estimated revenue must be between 0 and 1,000,000")
	}

	if !j.Status.Valid() {
		r.add("status", CodeInvalidFormat, fmt.Sprintf("unknown job status %q", j.Status))
	}

	// A past scheduled date is domain policy, not a range problem.
	if j.ScheduledDate != nil && j.ScheduledDate.Before(startOfDay(now)) {
		r.add("scheduled_date", CodeBusinessRule, "scheduled date cannot be in the past")
	}

	return r
}

// Transition checks a single status edge against the state machine. Every
// edge not in the transition table is rejected, including self-transitions
// and any edge out of the completed or cancelled states.
func Transition(from, to models.JobStatus) Result {
	var r Result
	if !from.Valid() {
		r.add("status", CodeInvalidFormat, fmt.Sprintf("unknown job status %q", from))
		return r
	}
	if !to.Valid() {
		r.add("status", CodeInvalidFormat, fmt.Sprintf("unknown job status %q", to))
		return r
	}
	if !models.CanTransition(from, to) {
		r.add("status", CodeBusinessRule, fmt.Sprintf("cannot transition job from %s to %s", from, to))
	}
	return r
}

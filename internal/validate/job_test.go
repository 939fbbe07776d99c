package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func validJob() models.Job {
	return models.Job{
		CustomerName:     "Dana Whitfield",
		Address:          "412 Sunview Terrace, Austin TX",
		SystemSize:       8.5,
		EstimatedRevenue: 24000,
		Status:           models.JobPending,
	}
}

func TestJob(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		r := Job(validJob(), testNow)
		assert.True(t, r.Valid(), "expected no errors, got %v", r.Errors)
	})

	t.Run("EmptyCustomerName", func(t *testing.T) {
		j := validJob()
		j.CustomerName = ""
		r := Job(j, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "customer_name", r.Errors[0].Field)
		assert.Equal(t, CodeRequired, r.Errors[0].Code)
	})

	t.Run("ShortCustomerName", func(t *testing.T) {
		j := validJob()
		j.CustomerName = "A"
		r := Job(j, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, CodeOutOfRange, r.Errors[0].Code)
	})

	t.Run("ShortAddress", func(t *testing.T) {
		j := validJob()
		j.Address = "1 Main"
		r := Job(j, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "address", r.Errors[0].Field)
		assert.Equal(t, CodeOutOfRange, r.Errors[0].Code)
	})

	t.Run("SystemSizeBounds", func(t *testing.T) {
		j := validJob()
		j.SystemSize = 0.1 // boundary itself is rejected
		assert.False(t, Job(j, testNow).Valid())

		j.SystemSize = 1000
		assert.True(t, Job(j, testNow).Valid())

		j.SystemSize = 1000.5
		assert.False(t, Job(j, testNow).Valid())
	})

	t.Run("NegativeRevenue", func(t *testing.T) {
		j := validJob()
		j.EstimatedRevenue = -1
		r := Job(j, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "estimated_revenue", r.Errors[0].Field)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		j := validJob()
		j.Status = "paused"
		r := Job(j, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, CodeInvalidFormat, r.Errors[0].Code)
	})

	t.Run("PastScheduledDate", func(t *testing.T) {
		j := validJob()
		past := testNow.AddDate(0, 0, -2)
		j.ScheduledDate = &past
		r := Job(j, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "scheduled_date", r.Errors[0].Field)
		assert.Equal(t, CodeBusinessRule, r.Errors[0].Code)
	})

	t.Run("ScheduledTodayIsFine", func(t *testing.T) {
		j := validJob()
		// Earlier today, before "now" but after midnight.
		today := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
		j.ScheduledDate = &today
		assert.True(t, Job(j, testNow).Valid())
	})

	t.Run("MultipleErrors", func(t *testing.T) {
		r := Job(models.Job{Status: models.JobPending}, testNow)
		fields := make(map[string]bool)
		for _, fe := range r.Errors {
			fields[fe.Field] = true
		}
		assert.True(t, fields["customer_name"])
		assert.True(t, fields["address"])
		assert.True(t, fields["system_size"])
	})
}

func TestTransition(t *testing.T) {
	allowed := map[models.JobStatus][]models.JobStatus{
		models.JobPending:    {models.JobApproved, models.JobCancelled},
		models.JobApproved:   {models.JobInProgress, models.JobOnHold, models.JobCancelled},
		models.JobInProgress: {models.JobCompleted, models.JobOnHold, models.JobCancelled},
		models.JobOnHold:     {models.JobInProgress, models.JobCancelled},
		models.JobCompleted:  {},
		models.JobCancelled:  {},
	}
	all := []models.JobStatus{
		models.JobPending, models.JobApproved, models.JobInProgress,
		models.JobOnHold, models.JobCompleted, models.JobCancelled,
	}

	// Exhaustive edge check, including self-transitions and edges out of
	// the terminal states.
	for _, from := range all {
		for _, to := range all {
			ok := false
			for _, next := range allowed[from] {
				if next == to {
					ok = true
				}
			}
			r := Transition(from, to)
			if ok {
				assert.True(t, r.Valid(), "%s -> %s should be allowed", from, to)
			} else {
				require.Len(t, r.Errors, 1, "%s -> %s should be rejected", from, to)
				assert.Equal(t, CodeBusinessRule, r.Errors[0].Code)
			}
		}
	}

	t.Run("UnknownStatus", func(t *testing.T) {
		r := Transition("bogus", models.JobApproved)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, CodeInvalidFormat, r.Errors[0].Code)

		r = Transition(models.JobPending, "bogus")
		require.Len(t, r.Errors, 1)
		assert.Equal(t, CodeInvalidFormat, r.Errors[0].Code)
	})
}

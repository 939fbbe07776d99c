package validate

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
)

func TestEquipment(t *testing.T) {
	valid := models.Equipment{
		Name:         "Q.PEAK DUO 405W",
		Category:     models.CategoryPanels,
		Quantity:     40,
		UnitPrice:    210,
		UnitCost:     165,
		MinimumStock: 10,
	}

	t.Run("Valid", func(t *testing.T) {
		assert.True(t, Equipment(valid, true).Valid())
	})

	t.Run("MinimumStockAboveQuantityOnCreate", func(t *testing.T) {
		e := valid
		e.MinimumStock = 50
		r := Equipment(e, true)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "minimum_stock", r.Errors[0].Field)
		assert.Equal(t, CodeBusinessRule, r.Errors[0].Code)

		// The same state is tolerated on update; consumption can push
		// quantity below the floor.
		assert.True(t, Equipment(e, false).Valid())
	})

	t.Run("NegativeQuantity", func(t *testing.T) {
		e := valid
		e.Quantity = -1
		assert.False(t, Equipment(e, true).Valid())
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		e := valid
		e.Category = "gadgets"
		r := Equipment(e, true)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, CodeInvalidFormat, r.Errors[0].Code)
	})
}

func TestInstallation(t *testing.T) {
	valid := models.Installation{
		JobID:                uuid.New(),
		ScheduledDate:        testNow.AddDate(0, 1, 0),
		EstimatedDurationSec: int64((6 * time.Hour).Seconds()),
		CrewMembers:          "Ana, Victor, Sam",
		Status:               models.InstallScheduled,
	}

	t.Run("Valid", func(t *testing.T) {
		r := Installation(valid, testNow)
		assert.True(t, r.Valid(), "expected no errors, got %v", r.Errors)
	})

	t.Run("MissingJob", func(t *testing.T) {
		i := valid
		i.JobID = uuid.Nil
		r := Installation(i, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "job_id", r.Errors[0].Field)
		assert.Equal(t, CodeRequired, r.Errors[0].Code)
	})

	t.Run("PastDate", func(t *testing.T) {
		i := valid
		i.ScheduledDate = testNow.AddDate(0, 0, -1)
		r := Installation(i, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, CodeBusinessRule, r.Errors[0].Code)
	})

	t.Run("BeyondOneYear", func(t *testing.T) {
		i := valid
		i.ScheduledDate = testNow.AddDate(1, 0, 2)
		r := Installation(i, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, CodeOutOfRange, r.Errors[0].Code)
	})

	t.Run("DurationBounds", func(t *testing.T) {
		i := valid
		i.EstimatedDurationSec = 0
		assert.False(t, Installation(i, testNow).Valid())

		i.EstimatedDurationSec = int64((31 * 24 * time.Hour).Seconds())
		assert.False(t, Installation(i, testNow).Valid())
	})

	t.Run("CrewSize", func(t *testing.T) {
		i := valid
		i.CrewMembers = "  ,  , "
		r := Installation(i, testNow)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "crew_members", r.Errors[0].Field)

		names := make([]byte, 0)
		for n := 0; n < 21; n++ {
			names = append(names, []byte("x,")...)
		}
		i.CrewMembers = string(names)
		assert.False(t, Installation(i, testNow).Valid())
	})
}

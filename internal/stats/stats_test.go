package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
)

func TestJobs(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		s := Jobs(nil)
		assert.Equal(t, 0, s.TotalJobs)
		assert.Equal(t, 0.0, s.AverageSystemSize, "empty set must not produce NaN")
		assert.Equal(t, 0.0, s.CompletionRate)
	})

	t.Run("RevenueSplit", func(t *testing.T) {
		jobs := []models.Job{
			{Status: models.JobCompleted, EstimatedRevenue: 10000, SystemSize: 6},
			{Status: models.JobInProgress, EstimatedRevenue: 8000, SystemSize: 10},
			{Status: models.JobPending, EstimatedRevenue: 5000, SystemSize: 8},
			{Status: models.JobCancelled, EstimatedRevenue: 7000, SystemSize: 4},
		}
		s := Jobs(jobs)
		assert.Equal(t, 4, s.TotalJobs)
		assert.Equal(t, 1, s.ActiveJobs)
		assert.Equal(t, 1, s.CompletedJobs)
		assert.Equal(t, 1, s.CancelledJobs)
		// Completed only.
		assert.Equal(t, 10000.0, s.TotalRevenue)
		// Open jobs only; the cancelled job counts nowhere.
		assert.Equal(t, 13000.0, s.PendingRevenue)
		assert.Equal(t, 7.0, s.AverageSystemSize)
		assert.Equal(t, 0.25, s.CompletionRate)
	})
}

func TestEquipment(t *testing.T) {
	items := []models.Equipment{
		{Name: "Panel", Quantity: 40, UnitPrice: 200, LowStockThreshold: 5},
		{Name: "Inverter", Quantity: 3, UnitPrice: 1000, LowStockThreshold: 5},
		{Name: "Clamp", Quantity: 0, UnitPrice: 2, LowStockThreshold: 10},
	}
	s := Equipment(items)
	assert.Equal(t, 3, s.TotalItems)
	assert.Equal(t, 40*200.0+3*1000.0, s.TotalValue)
	assert.Equal(t, 2, s.LowStockCount)
	assert.Equal(t, 1, s.OutOfStock)
	require.Len(t, s.LowStockItems, 2)
	// Input order preserved.
	assert.Equal(t, "Inverter", s.LowStockItems[0].Name)
	assert.Equal(t, "Clamp", s.LowStockItems[1].Name)
}

func TestCustomers(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		s := Customers(nil)
		assert.Equal(t, 0, s.Total)
		assert.Equal(t, 0.0, s.ConversionRate)
		// Every stage is present even with no customers.
		assert.Len(t, s.ByLeadStatus, len(models.LeadStatuses))
		assert.Equal(t, 0, s.ByLeadStatus[models.LeadWon])
	})

	t.Run("Conversion", func(t *testing.T) {
		customers := []models.Customer{
			{LeadStatus: models.LeadWon},
			{LeadStatus: models.LeadWon},
			{LeadStatus: models.LeadNew},
			{LeadStatus: models.LeadLost},
		}
		s := Customers(customers)
		assert.Equal(t, 4, s.Total)
		assert.Equal(t, 2, s.ByLeadStatus[models.LeadWon])
		assert.Equal(t, 0.5, s.ConversionRate)
	})
}

func TestInstallations(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	installs := []models.Installation{
		{Status: models.InstallScheduled, ScheduledDate: now.AddDate(0, 0, 7)},
		{Status: models.InstallScheduled, ScheduledDate: now.AddDate(0, 0, -3)}, // overdue
		{Status: models.InstallCompleted, ScheduledDate: now.AddDate(0, 0, -10)},
		{Status: models.InstallCancelled, ScheduledDate: now.AddDate(0, 0, -10)},
	}
	s := Installations(installs, now)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.ByStatus[models.InstallScheduled])
	assert.Equal(t, 1, s.OverdueCount, "completed and cancelled visits are never overdue")
	assert.Equal(t, 0.25, s.CompletionRate)
}

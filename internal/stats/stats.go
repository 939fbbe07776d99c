// Package stats derives summary metrics from repository result sets. Every
// function is a pure reducer: no I/O, no mutation of its input. Every ratio
// routes through safemath so a zero denominator yields 0, never NaN.
package stats

import (
	"time"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/safemath"
)

// JobStats summarizes a set of jobs.
type JobStats struct {
	TotalJobs         int     `json:"total_jobs"`
	ActiveJobs        int     `json:"active_jobs"`
	CompletedJobs     int     `json:"completed_jobs"`
	CancelledJobs     int     `json:"cancelled_jobs"`
	TotalRevenue      float64 `json:"total_revenue"`
	PendingRevenue    float64 `json:"pending_revenue"`
	AverageSystemSize float64 `json:"average_system_size"`
	CompletionRate    float64 `json:"completion_rate"`
}

// Jobs reduces a job list. Total revenue counts completed jobs only;
// pending revenue counts jobs that are neither completed nor cancelled.
func Jobs(jobs []models.Job) JobStats {
	var s JobStats
	var sizeSum float64
	for _, j := range jobs {
		s.TotalJobs++
		sizeSum += j.SystemSize
		switch j.Status {
		case models.JobInProgress:
			s.ActiveJobs++
		case models.JobCompleted:
			s.CompletedJobs++
		case models.JobCancelled:
			s.CancelledJobs++
		}
		if j.Status == models.JobCompleted {
			s.TotalRevenue += j.EstimatedRevenue
		} else if j.IsOpen() {
			s.PendingRevenue += j.EstimatedRevenue
		}
	}
	s.TotalRevenue = safemath.Sanitize(s.TotalRevenue)
	s.PendingRevenue = safemath.Sanitize(s.PendingRevenue)
	s.AverageSystemSize = safemath.Div(sizeSum, float64(s.TotalJobs))
	s.CompletionRate = safemath.Ratio(s.CompletedJobs, s.TotalJobs)
	return s
}

// EquipmentStats summarizes an inventory catalog.
type EquipmentStats struct {
	TotalItems    int                `json:"total_items"`
	TotalValue    float64            `json:"total_value"`
	LowStockCount int                `json:"low_stock_count"`
	OutOfStock    int                `json:"out_of_stock_count"`
	LowStockItems []models.Equipment `json:"low_stock_items"`
}

// Equipment reduces an inventory list. Low-stock items are returned in
// their input order.
func Equipment(items []models.Equipment) EquipmentStats {
	s := EquipmentStats{LowStockItems: []models.Equipment{}}
	for _, e := range items {
		s.TotalItems++
		s.TotalValue += e.TotalValue()
		if e.Quantity == 0 {
			s.OutOfStock++
		}
		if e.IsLowStock() {
			s.LowStockCount++
			s.LowStockItems = append(s.LowStockItems, e)
		}
	}
	s.TotalValue = safemath.Sanitize(s.TotalValue)
	return s
}

// CustomerStats buckets customers by pipeline stage.
type CustomerStats struct {
	Total          int                       `json:"total"`
	ByLeadStatus   map[models.LeadStatus]int `json:"by_lead_status"`
	ConversionRate float64                   `json:"conversion_rate"`
}

// Customers reduces a customer list; conversion is won over total.
func Customers(customers []models.Customer) CustomerStats {
	s := CustomerStats{ByLeadStatus: make(map[models.LeadStatus]int, len(models.LeadStatuses))}
	for _, st := range models.LeadStatuses {
		s.ByLeadStatus[st] = 0
	}
	for _, c := range customers {
		s.Total++
		s.ByLeadStatus[c.LeadStatus]++
	}
	s.ConversionRate = safemath.Ratio(s.ByLeadStatus[models.LeadWon], s.Total)
	return s
}

// InstallationStats buckets installations by status.
type InstallationStats struct {
	Total          int                               `json:"total"`
	ByStatus       map[models.InstallationStatus]int `json:"by_status"`
	OverdueCount   int                               `json:"overdue_count"`
	CompletionRate float64                           `json:"completion_rate"`
}

// Installations reduces an installation list; now anchors the overdue
// check.
func Installations(installations []models.Installation, now time.Time) InstallationStats {
	s := InstallationStats{ByStatus: make(map[models.InstallationStatus]int, len(models.InstallationStatuses))}
	for _, st := range models.InstallationStatuses {
		s.ByStatus[st] = 0
	}
	for _, i := range installations {
		s.Total++
		s.ByStatus[i.Status]++
		if i.IsOverdue(now) {
			s.OverdueCount++
		}
	}
	s.CompletionRate = safemath.Ratio(s.ByStatus[models.InstallCompleted], s.Total)
	return s
}

// internal/models/types.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrmoe28/solarscheduler-sub001/internal/safemath"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobApproved   JobStatus = "approved"
	JobInProgress JobStatus = "in_progress"
	JobOnHold     JobStatus = "on_hold"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// JobTransitions is the closed set of allowed status edges. The two terminal
// states have no outgoing edges; self-transitions are never allowed.
var JobTransitions = map[JobStatus][]JobStatus{
	JobPending:    {JobApproved, JobCancelled},
	JobApproved:   {JobInProgress, JobOnHold, JobCancelled},
	JobInProgress: {JobCompleted, JobOnHold, JobCancelled},
	JobOnHold:     {JobInProgress, JobCancelled},
	JobCompleted:  {},
	JobCancelled:  {},
}

// CanTransition reports whether from -> to is an allowed status edge.
func CanTransition(from, to JobStatus) bool {
	for _, next := range JobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// jobStatusOrdinal defines the sort order of statuses, independent of their
// string labels.
var jobStatusOrdinal = map[JobStatus]int{
	JobPending:    0,
	JobApproved:   1,
	JobInProgress: 2,
	JobOnHold:     3,
	JobCompleted:  4,
	JobCancelled:  5,
}

func (s JobStatus) Ordinal() int { return jobStatusOrdinal[s] }

func (s JobStatus) Valid() bool {
	_, ok := jobStatusOrdinal[s]
	return ok
}

// LeadStatus is a Customer's sales-pipeline stage.
type LeadStatus string

const (
	LeadNew         LeadStatus = "new_lead"
	LeadContacted   LeadStatus = "contacted"
	LeadQualified   LeadStatus = "qualified"
	LeadProposal    LeadStatus = "proposal"
	LeadNegotiation LeadStatus = "negotiation"
	LeadWon         LeadStatus = "won"
	LeadLost        LeadStatus = "lost"
)

var leadStatusOrdinal = map[LeadStatus]int{
	LeadNew:         0,
	LeadContacted:   1,
	LeadQualified:   2,
	LeadProposal:    3,
	LeadNegotiation: 4,
	LeadWon:         5,
	LeadLost:        6,
}

func (s LeadStatus) Ordinal() int { return leadStatusOrdinal[s] }

func (s LeadStatus) Valid() bool {
	_, ok := leadStatusOrdinal[s]
	return ok
}

// LeadStatuses lists every pipeline stage in ordinal order.
var LeadStatuses = []LeadStatus{
	LeadNew, LeadContacted, LeadQualified, LeadProposal, LeadNegotiation, LeadWon, LeadLost,
}

// EquipmentCategory classifies inventory items.
type EquipmentCategory string

const (
	CategoryPanels    EquipmentCategory = "panels"
	CategoryInverters EquipmentCategory = "inverters"
	CategoryBatteries EquipmentCategory = "batteries"
	CategoryMounting  EquipmentCategory = "mounting"
	CategoryWiring    EquipmentCategory = "wiring"
	CategoryTools     EquipmentCategory = "tools"
	CategorySafety    EquipmentCategory = "safety"
	CategoryOther     EquipmentCategory = "other"
)

var equipmentCategoryOrdinal = map[EquipmentCategory]int{
	CategoryPanels:    0,
	CategoryInverters: 1,
	CategoryBatteries: 2,
	CategoryMounting:  3,
	CategoryWiring:    4,
	CategoryTools:     5,
	CategorySafety:    6,
	CategoryOther:     7,
}

func (c EquipmentCategory) Ordinal() int { return equipmentCategoryOrdinal[c] }

func (c EquipmentCategory) Valid() bool {
	_, ok := equipmentCategoryOrdinal[c]
	return ok
}

// InstallationStatus is the lifecycle state of an Installation.
type InstallationStatus string

const (
	InstallScheduled  InstallationStatus = "scheduled"
	InstallInProgress InstallationStatus = "in_progress"
	InstallCompleted  InstallationStatus = "completed"
	InstallCancelled  InstallationStatus = "cancelled"
)

var installationStatusOrdinal = map[InstallationStatus]int{
	InstallScheduled:  0,
	InstallInProgress: 1,
	InstallCompleted:  2,
	InstallCancelled:  3,
}

func (s InstallationStatus) Ordinal() int { return installationStatusOrdinal[s] }

func (s InstallationStatus) Valid() bool {
	_, ok := installationStatusOrdinal[s]
	return ok
}

// InstallationStatuses lists every status in ordinal order.
var InstallationStatuses = []InstallationStatus{
	InstallScheduled, InstallInProgress, InstallCompleted, InstallCancelled,
}

// User is an account that owns all other records.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	FullName       string    `json:"full_name"`
	CompanyName    string    `json:"company_name,omitempty"`
	PasswordHash   string    `json:"-"`
	CreatedDate    time.Time `json:"created_date"`
	LastSignInDate time.Time `json:"last_sign_in_date,omitempty"`
	IsActive       bool      `json:"is_active"`
}

// Job is a solar installation job owned by exactly one User.
type Job struct {
	ID               uuid.UUID  `json:"id"`
	OwnerID          uuid.UUID  `json:"owner_id"`
	CustomerID       *uuid.UUID `json:"customer_id,omitempty"`
	CustomerName     string     `json:"customer_name"`
	Address          string     `json:"address"`
	SystemSize       float64    `json:"system_size"` // kW
	EstimatedRevenue float64    `json:"estimated_revenue"`
	Status           JobStatus  `json:"status"`
	CreatedDate      time.Time  `json:"created_date"`
	ScheduledDate    *time.Time `json:"scheduled_date,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// IsOpen reports whether the job is neither completed nor cancelled.
func (j Job) IsOpen() bool {
	return j.Status != JobCompleted && j.Status != JobCancelled
}

// Customer is a sales lead or client owned by one User. Its associated jobs
// are a derived relationship, recomputed on read by querying jobs that
// reference the customer id.
type Customer struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address,omitempty"`
	LeadStatus  LeadStatus `json:"lead_status"`
	CreatedDate time.Time  `json:"created_date"`
	Notes       string     `json:"notes,omitempty"`
}

// Equipment is an inventory item in the owner's catalog.
type Equipment struct {
	ID                uuid.UUID         `json:"id"`
	OwnerID           uuid.UUID         `json:"owner_id"`
	Name              string            `json:"name"`
	Category          EquipmentCategory `json:"category"`
	Brand             string            `json:"brand,omitempty"`
	Model             string            `json:"model,omitempty"`
	Manufacturer      string            `json:"manufacturer,omitempty"`
	Quantity          int               `json:"quantity"`
	UnitPrice         float64           `json:"unit_price"`
	UnitCost          float64           `json:"unit_cost"`
	MinimumStock      int               `json:"minimum_stock"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	CreatedDate       time.Time         `json:"created_date"`
}

// IsLowStock reports whether quantity has reached the configured threshold.
func (e Equipment) IsLowStock() bool { return e.Quantity <= e.LowStockThreshold }

// TotalValue is the retail value of stock on hand.
func (e Equipment) TotalValue() float64 {
	return safemath.Sanitize(e.UnitPrice * float64(e.Quantity))
}

// Installation is a scheduled crew visit for a Job.
type Installation struct {
	ID                   uuid.UUID          `json:"id"`
	OwnerID              uuid.UUID          `json:"owner_id"`
	JobID                uuid.UUID          `json:"job_id"`
	ScheduledDate        time.Time          `json:"scheduled_date"`
	EstimatedDurationSec int64              `json:"estimated_duration_sec"`
	CrewMembers          string             `json:"crew_members"`
	Status               InstallationStatus `json:"status"`
	Notes                string             `json:"notes,omitempty"`
	CreatedDate          time.Time          `json:"created_date"`
}

// CrewSize derives the crew head count by splitting the free-text member
// list on commas and dropping empty entries.
func (i Installation) CrewSize() int {
	n := 0
	for _, part := range strings.Split(i.CrewMembers, ",") {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

// IsOverdue reports whether a still-scheduled installation's date has passed.
func (i Installation) IsOverdue(now time.Time) bool {
	return i.Status == InstallScheduled && i.ScheduledDate.Before(now)
}

// Session is a signed-in user's server-side session.
type Session struct {
	UserID   uuid.UUID
	Provider string
	Expiry   time.Time
}

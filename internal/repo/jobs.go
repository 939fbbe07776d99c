package repo

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/safemath"
	"github.com/mrmoe28/solarscheduler-sub001/internal/store"
	"github.com/mrmoe28/solarscheduler-sub001/internal/validate"
)

// ---------------- Jobs ----------------

// JobSortKey enumerates the sortable job fields.
type JobSortKey string

const (
	JobSortCreatedDate  JobSortKey = "created_date"
	JobSortCustomerName JobSortKey = "customer_name"
	JobSortRevenue      JobSortKey = "revenue"
	JobSortSystemSize   JobSortKey = "system_size"
	JobSortStatus       JobSortKey = "status"
)

func jobSort(key JobSortKey, desc bool) *store.Sort {
	switch key {
	case JobSortCreatedDate:
		return &store.Sort{Field: "created_date", Desc: desc}
	case JobSortCustomerName:
		return &store.Sort{Field: "customer_name", Desc: desc}
	case JobSortRevenue:
		return &store.Sort{Field: "estimated_revenue", Desc: desc, Numeric: true}
	case JobSortSystemSize:
		return &store.Sort{Field: "system_size", Desc: desc, Numeric: true}
	case JobSortStatus:
		// Ordinal column, so order is defined by the state machine rather
		// than label text.
		return &store.Sort{Field: "status_ord", Desc: desc, Numeric: true}
	}
	return nil
}

// jobSearchFields is the fixed set of text fields free-text search covers.
var jobSearchFields = []string{"customer_name", "address", "notes"}

// JobQuery is a parameterized fetch over the owner's jobs. All predicates
// combine; the zero value returns the full owner-scoped set.
type JobQuery struct {
	Status     *models.JobStatus
	CustomerID *uuid.UUID
	Search     string
	SortKey    JobSortKey
	Desc       bool
	Limit      int
}

// JobPatch is a partial field update. Status is deliberately absent; status
// changes go through UpdateJobStatus only.
type JobPatch struct {
	CustomerName       *string
	Address            *string
	SystemSize         *float64
	EstimatedRevenue   *float64
	ScheduledDate      *time.Time
	ClearScheduledDate bool
	Notes              *string
	CustomerID         *uuid.UUID
	ClearCustomer      bool
}

func encodeJob(j models.Job) (map[string]any, error) {
	doc, err := encodeDoc(j)
	if err != nil {
		return nil, err
	}
	doc["status_ord"] = float64(j.Status.Ordinal())
	return doc, nil
}

// CreateJob validates and stores a new job for the acting user. New jobs
// start in pending unless a valid status is supplied.
func (r *Repo) CreateJob(ctx context.Context, owner uuid.UUID, in models.Job) (models.Job, error) {
	if err := requireOwner(owner); err != nil {
		return models.Job{}, err
	}
	slog.DebugContext(ctx, "CreateJob", "owner_id", owner.String())

	now := r.now()
	in.ID = uuid.New()
	in.OwnerID = owner
	in.CreatedDate = normalizeTime(now)
	if in.Status == "" {
		in.Status = models.JobPending
	}
	in.SystemSize = safemath.Sanitize(in.SystemSize)
	in.EstimatedRevenue = safemath.Sanitize(in.EstimatedRevenue)
	if in.ScheduledDate != nil {
		t := normalizeTime(*in.ScheduledDate)
		in.ScheduledDate = &t
	}

	if res := validate.Job(in, now); !res.Valid() {
		return models.Job{}, &ValidationError{Result: res}
	}

	doc, err := encodeJob(in)
	if err != nil {
		return models.Job{}, err
	}
	if err := r.store.Insert(ctx, collJobs, in.ID, doc); err != nil {
		slog.ErrorContext(ctx, "CreateJob failed", "err", err)
		return models.Job{}, storeErr("insert job", err)
	}
	return in, nil
}

// Job fetches one job by id. A job owned by another user is reported as
// not found, never as forbidden.
func (r *Repo) Job(ctx context.Context, owner, id uuid.UUID) (models.Job, error) {
	if err := requireOwner(owner); err != nil {
		return models.Job{}, err
	}
	doc, err := r.store.Get(ctx, collJobs, id)
	if err != nil {
		return models.Job{}, storeErr("get job", err)
	}
	var j models.Job
	if err := decodeDoc(doc, &j); err != nil {
		return models.Job{}, err
	}
	if j.OwnerID != owner {
		return models.Job{}, models.ErrNotFound
	}
	return j, nil
}

// Jobs runs a parameterized fetch scoped to the owner.
func (r *Repo) Jobs(ctx context.Context, owner uuid.UUID, q JobQuery) ([]models.Job, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Jobs", "owner_id", owner.String())

	sq := store.Query{
		Filters: []store.Filter{store.Eq("owner_id", owner.String())},
		Sort:    jobSort(q.SortKey, q.Desc),
		Limit:   q.Limit,
	}
	if q.Status != nil {
		sq.Filters = append(sq.Filters, store.Eq("status", string(*q.Status)))
	}
	if q.CustomerID != nil {
		sq.Filters = append(sq.Filters, store.Eq("customer_id", q.CustomerID.String()))
	}
	if q.Search != "" {
		sq.Filters = append(sq.Filters, store.MatchAny(q.Search, jobSearchFields...))
	}

	docs, err := r.store.List(ctx, collJobs, sq)
	if err != nil {
		slog.ErrorContext(ctx, "Jobs failed", "err", err)
		return nil, storeErr("list jobs", err)
	}
	out := make([]models.Job, 0, len(docs))
	for _, doc := range docs {
		var j models.Job
		if err := decodeDoc(doc, &j); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// SearchJobs is substring search across the job's text fields; an empty
// query returns the full owner-scoped set.
func (r *Repo) SearchJobs(ctx context.Context, owner uuid.UUID, query string) ([]models.Job, error) {
	return r.Jobs(ctx, owner, JobQuery{Search: query})
}

// UpdateJob applies a partial field update in one serialized step.
func (r *Repo) UpdateJob(ctx context.Context, owner, id uuid.UUID, patch JobPatch) (models.Job, error) {
	if err := requireOwner(owner); err != nil {
		return models.Job{}, err
	}
	slog.DebugContext(ctx, "UpdateJob", "owner_id", owner.String(), "job_id", id.String())

	var updated models.Job
	err := r.mutate(ctx, collJobs, func(tx store.Store) error {
		j, err := r.jobInTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}

		if patch.CustomerName != nil {
			j.CustomerName = *patch.CustomerName
		}
		if patch.Address != nil {
			j.Address = *patch.Address
		}
		if patch.SystemSize != nil {
			j.SystemSize = safemath.Sanitize(*patch.SystemSize)
		}
		if patch.EstimatedRevenue != nil {
			j.EstimatedRevenue = safemath.Sanitize(*patch.EstimatedRevenue)
		}
		if patch.ClearScheduledDate {
			j.ScheduledDate = nil
		} else if patch.ScheduledDate != nil {
			t := normalizeTime(*patch.ScheduledDate)
			j.ScheduledDate = &t
		}
		if patch.Notes != nil {
			j.Notes = *patch.Notes
		}
		if patch.ClearCustomer {
			j.CustomerID = nil
		} else if patch.CustomerID != nil {
			j.CustomerID = patch.CustomerID
		}

		// The past-date rule applies to an incoming scheduled date, not to
		// one that was valid when set and has since gone by.
		check := j
		if patch.ScheduledDate == nil {
			check.ScheduledDate = nil
		}
		if res := validate.Job(check, r.now()); !res.Valid() {
			return &ValidationError{Result: res}
		}

		doc, err := encodeJob(j)
		if err != nil {
			return err
		}
		if err := tx.Replace(ctx, collJobs, id, doc); err != nil {
			return storeErr("update job", err)
		}
		updated = j
		return nil
	})
	if err != nil {
		return models.Job{}, err
	}
	return updated, nil
}

// UpdateJobStatus performs one status transition, enforcing the state
// machine. An illegal edge is a business-rule failure, not a validation
// formality.
func (r *Repo) UpdateJobStatus(ctx context.Context, owner, id uuid.UUID, to models.JobStatus) (models.Job, error) {
	if err := requireOwner(owner); err != nil {
		return models.Job{}, err
	}
	slog.DebugContext(ctx, "UpdateJobStatus", "owner_id", owner.String(), "job_id", id.String(), "to", string(to))

	var updated models.Job
	err := r.mutate(ctx, collJobs, func(tx store.Store) error {
		j, err := r.jobInTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if res := validate.Transition(j.Status, to); !res.Valid() {
			return &models.BusinessRuleError{
				Rule:    "job_status_transition",
				Message: res.Errors[0].Message,
			}
		}
		j.Status = to
		doc, err := encodeJob(j)
		if err != nil {
			return err
		}
		if err := tx.Replace(ctx, collJobs, id, doc); err != nil {
			return storeErr("update job status", err)
		}
		updated = j
		return nil
	})
	if err != nil {
		return models.Job{}, err
	}
	return updated, nil
}

// DeleteJob removes a job. Job deletion is independent of customer
// deletion.
func (r *Repo) DeleteJob(ctx context.Context, owner, id uuid.UUID) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	slog.DebugContext(ctx, "DeleteJob", "owner_id", owner.String(), "job_id", id.String())

	return r.mutate(ctx, collJobs, func(tx store.Store) error {
		if _, err := r.jobInTx(ctx, tx, owner, id); err != nil {
			return err
		}
		return storeErr("delete job", tx.Delete(ctx, collJobs, id))
	})
}

func (r *Repo) jobInTx(ctx context.Context, tx store.Store, owner, id uuid.UUID) (models.Job, error) {
	doc, err := tx.Get(ctx, collJobs, id)
	if err != nil {
		return models.Job{}, storeErr("get job", err)
	}
	var j models.Job
	if err := decodeDoc(doc, &j); err != nil {
		return models.Job{}, err
	}
	if j.OwnerID != owner {
		return models.Job{}, models.ErrNotFound
	}
	return j, nil
}

package repo

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/store"
	"github.com/mrmoe28/solarscheduler-sub001/internal/validate"
)

// ---------------- Installations ----------------

type InstallationSortKey string

const (
	InstallationSortScheduledDate InstallationSortKey = "scheduled_date"
	InstallationSortCreatedDate   InstallationSortKey = "created_date"
	InstallationSortStatus        InstallationSortKey = "status"
)

func installationSort(key InstallationSortKey, desc bool) *store.Sort {
	switch key {
	case InstallationSortScheduledDate:
		return &store.Sort{Field: "scheduled_date", Desc: desc}
	case InstallationSortCreatedDate:
		return &store.Sort{Field: "created_date", Desc: desc}
	case InstallationSortStatus:
		return &store.Sort{Field: "status_ord", Desc: desc, Numeric: true}
	}
	return nil
}

var installationSearchFields = []string{"crew_members", "notes"}

// InstallationQuery combines status equality, a scheduled-date range and
// free-text search; all predicates AND together.
type InstallationQuery struct {
	Status  *models.InstallationStatus
	JobID   *uuid.UUID
	From    *time.Time
	To      *time.Time
	Search  string
	SortKey InstallationSortKey
	Desc    bool
	Limit   int
}

type InstallationPatch struct {
	ScheduledDate        *time.Time
	EstimatedDurationSec *int64
	CrewMembers          *string
	Status               *models.InstallationStatus
	Notes                *string
}

func encodeInstallation(i models.Installation) (map[string]any, error) {
	doc, err := encodeDoc(i)
	if err != nil {
		return nil, err
	}
	doc["status_ord"] = float64(i.Status.Ordinal())
	return doc, nil
}

// CreateInstallation validates and stores a crew visit for one of the
// owner's jobs. The referenced job must exist and belong to the owner.
func (r *Repo) CreateInstallation(ctx context.Context, owner uuid.UUID, in models.Installation) (models.Installation, error) {
	if err := requireOwner(owner); err != nil {
		return models.Installation{}, err
	}
	slog.DebugContext(ctx, "CreateInstallation", "owner_id", owner.String())

	now := r.now()
	in.ID = uuid.New()
	in.OwnerID = owner
	in.CreatedDate = normalizeTime(now)
	if !in.ScheduledDate.IsZero() {
		in.ScheduledDate = normalizeTime(in.ScheduledDate)
	}
	if in.Status == "" {
		in.Status = models.InstallScheduled
	}

	if res := validate.Installation(in, now); !res.Valid() {
		return models.Installation{}, &ValidationError{Result: res}
	}
	if _, err := r.Job(ctx, owner, in.JobID); err != nil {
		return models.Installation{}, err
	}

	doc, err := encodeInstallation(in)
	if err != nil {
		return models.Installation{}, err
	}
	if err := r.store.Insert(ctx, collInstallations, in.ID, doc); err != nil {
		slog.ErrorContext(ctx, "CreateInstallation failed", "err", err)
		return models.Installation{}, storeErr("insert installation", err)
	}
	return in, nil
}

func (r *Repo) Installation(ctx context.Context, owner, id uuid.UUID) (models.Installation, error) {
	if err := requireOwner(owner); err != nil {
		return models.Installation{}, err
	}
	doc, err := r.store.Get(ctx, collInstallations, id)
	if err != nil {
		return models.Installation{}, storeErr("get installation", err)
	}
	var i models.Installation
	if err := decodeDoc(doc, &i); err != nil {
		return models.Installation{}, err
	}
	if i.OwnerID != owner {
		return models.Installation{}, models.ErrNotFound
	}
	return i, nil
}

func (r *Repo) Installations(ctx context.Context, owner uuid.UUID, q InstallationQuery) ([]models.Installation, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Installations", "owner_id", owner.String())

	sq := store.Query{
		Filters: []store.Filter{store.Eq("owner_id", owner.String())},
		Sort:    installationSort(q.SortKey, q.Desc),
		Limit:   q.Limit,
	}
	if q.Status != nil {
		sq.Filters = append(sq.Filters, store.Eq("status", string(*q.Status)))
	}
	if q.JobID != nil {
		sq.Filters = append(sq.Filters, store.Eq("job_id", q.JobID.String()))
	}
	if q.From != nil {
		sq.Filters = append(sq.Filters, store.Gte("scheduled_date", timeValue(*q.From)))
	}
	if q.To != nil {
		sq.Filters = append(sq.Filters, store.Lte("scheduled_date", timeValue(*q.To)))
	}
	if q.Search != "" {
		sq.Filters = append(sq.Filters, store.MatchAny(q.Search, installationSearchFields...))
	}

	docs, err := r.store.List(ctx, collInstallations, sq)
	if err != nil {
		slog.ErrorContext(ctx, "Installations failed", "err", err)
		return nil, storeErr("list installations", err)
	}
	out := make([]models.Installation, 0, len(docs))
	for _, doc := range docs {
		var i models.Installation
		if err := decodeDoc(doc, &i); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func (r *Repo) SearchInstallations(ctx context.Context, owner uuid.UUID, query string) ([]models.Installation, error) {
	return r.Installations(ctx, owner, InstallationQuery{Search: query})
}

func (r *Repo) UpdateInstallation(ctx context.Context, owner, id uuid.UUID, patch InstallationPatch) (models.Installation, error) {
	if err := requireOwner(owner); err != nil {
		return models.Installation{}, err
	}
	slog.DebugContext(ctx, "UpdateInstallation", "owner_id", owner.String(), "installation_id", id.String())

	var updated models.Installation
	err := r.mutate(ctx, collInstallations, func(tx store.Store) error {
		i, err := r.installationInTx(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if patch.ScheduledDate != nil {
			i.ScheduledDate = normalizeTime(*patch.ScheduledDate)
		}
		if patch.EstimatedDurationSec != nil {
			i.EstimatedDurationSec = *patch.EstimatedDurationSec
		}
		if patch.CrewMembers != nil {
			i.CrewMembers = *patch.CrewMembers
		}
		if patch.Status != nil {
			i.Status = *patch.Status
		}
		if patch.Notes != nil {
			i.Notes = *patch.Notes
		}

		// The scheduling window applies to a date being set now, not to a
		// visit that has since gone overdue.
		if patch.ScheduledDate != nil {
			if res := validate.Installation(i, r.now()); !res.Valid() {
				return &ValidationError{Result: res}
			}
		} else {
			check := i
			check.ScheduledDate = normalizeTime(r.now())
			if res := validate.Installation(check, r.now()); !res.Valid() {
				return &ValidationError{Result: res}
			}
		}

		doc, err := encodeInstallation(i)
		if err != nil {
			return err
		}
		if err := tx.Replace(ctx, collInstallations, id, doc); err != nil {
			return storeErr("update installation", err)
		}
		updated = i
		return nil
	})
	if err != nil {
		return models.Installation{}, err
	}
	return updated, nil
}

func (r *Repo) DeleteInstallation(ctx context.Context, owner, id uuid.UUID) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	slog.DebugContext(ctx, "DeleteInstallation", "owner_id", owner.String(), "installation_id", id.String())

	return r.mutate(ctx, collInstallations, func(tx store.Store) error {
		if _, err := r.installationInTx(ctx, tx, owner, id); err != nil {
			return err
		}
		return storeErr("delete installation", tx.Delete(ctx, collInstallations, id))
	})
}

func (r *Repo) installationInTx(ctx context.Context, tx store.Store, owner, id uuid.UUID) (models.Installation, error) {
	doc, err := tx.Get(ctx, collInstallations, id)
	if err != nil {
		return models.Installation{}, storeErr("get installation", err)
	}
	var i models.Installation
	if err := decodeDoc(doc, &i); err != nil {
		return models.Installation{}, err
	}
	if i.OwnerID != owner {
		return models.Installation{}, models.ErrNotFound
	}
	return i, nil
}

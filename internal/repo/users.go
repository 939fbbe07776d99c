package repo

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/store"
	"github.com/mrmoe28/solarscheduler-sub001/internal/validate"
)

// ---------------- Users & Accounts ----------------

// UserPatch is a partial profile update.
type UserPatch struct {
	FullName    *string
	CompanyName *string
}

// encodeUser adds the case-folded email used for unique lookup.
func encodeUser(u models.User) (map[string]any, error) {
	doc, err := encodeDoc(u)
	if err != nil {
		return nil, err
	}
	doc["email_ci"] = strings.ToLower(u.Email)
	doc["password_hash"] = u.PasswordHash
	return doc, nil
}

func decodeUser(doc map[string]any) (models.User, error) {
	var u models.User
	if err := decodeDoc(doc, &u); err != nil {
		return models.User{}, err
	}
	if phc, ok := doc["password_hash"].(string); ok {
		u.PasswordHash = phc
	}
	return u, nil
}

// CreateUser stores a new account. Email uniqueness is case-insensitive;
// the duplicate check runs inside the insert transaction so concurrent
// signups cannot race past each other.
func (r *Repo) CreateUser(ctx context.Context, in models.User, passwordHash string) (models.User, error) {
	slog.DebugContext(ctx, "CreateUser", "email", in.Email)

	in.ID = uuid.New()
	in.CreatedDate = normalizeTime(r.now())
	in.IsActive = true
	in.PasswordHash = passwordHash

	if res := validate.User(in); !res.Valid() {
		return models.User{}, &ValidationError{Result: res}
	}

	err := r.mutate(ctx, collUsers, func(tx store.Store) error {
		existing, err := tx.List(ctx, collUsers, store.Query{
			Filters: []store.Filter{store.Eq("email_ci", strings.ToLower(in.Email))},
			Limit:   1,
		})
		if err != nil {
			return storeErr("check email", err)
		}
		if len(existing) > 0 {
			return &models.ConstraintError{Constraint: "users_email_unique", Message: "email already registered"}
		}
		doc, err := encodeUser(in)
		if err != nil {
			return err
		}
		return storeErr("insert user", tx.Insert(ctx, collUsers, in.ID, doc))
	})
	if err != nil {
		slog.ErrorContext(ctx, "CreateUser failed", "err", err)
		return models.User{}, err
	}
	return in, nil
}

func (r *Repo) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	doc, err := r.store.Get(ctx, collUsers, id)
	if err != nil {
		return models.User{}, storeErr("get user", err)
	}
	return decodeUser(doc)
}

// UserByEmail looks an account up by case-insensitive email.
func (r *Repo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	docs, err := r.store.List(ctx, collUsers, store.Query{
		Filters: []store.Filter{store.Eq("email_ci", strings.ToLower(strings.TrimSpace(email)))},
		Limit:   1,
	})
	if err != nil {
		return models.User{}, storeErr("get user by email", err)
	}
	if len(docs) == 0 {
		return models.User{}, models.ErrNotFound
	}
	return decodeUser(docs[0])
}

// RecordSignIn stamps the account's last sign-in time.
func (r *Repo) RecordSignIn(ctx context.Context, id uuid.UUID) error {
	return r.mutate(ctx, collUsers, func(tx store.Store) error {
		doc, err := tx.Get(ctx, collUsers, id)
		if err != nil {
			return storeErr("get user", err)
		}
		u, err := decodeUser(doc)
		if err != nil {
			return err
		}
		u.LastSignInDate = normalizeTime(r.now())
		next, err := encodeUser(u)
		if err != nil {
			return err
		}
		return storeErr("record sign in", tx.Replace(ctx, collUsers, id, next))
	})
}

// UpdateUserProfile edits the mutable profile fields.
func (r *Repo) UpdateUserProfile(ctx context.Context, id uuid.UUID, patch UserPatch) (models.User, error) {
	slog.DebugContext(ctx, "UpdateUserProfile", "user_id", id.String())

	var updated models.User
	err := r.mutate(ctx, collUsers, func(tx store.Store) error {
		doc, err := tx.Get(ctx, collUsers, id)
		if err != nil {
			return storeErr("get user", err)
		}
		u, err := decodeUser(doc)
		if err != nil {
			return err
		}
		if patch.FullName != nil {
			u.FullName = *patch.FullName
		}
		if patch.CompanyName != nil {
			u.CompanyName = *patch.CompanyName
		}
		if res := validate.User(u); !res.Valid() {
			return &ValidationError{Result: res}
		}
		next, err := encodeUser(u)
		if err != nil {
			return err
		}
		if err := tx.Replace(ctx, collUsers, id, next); err != nil {
			return storeErr("update user", err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return updated, nil
}

// UpdatePasswordHash swaps the stored credential.
func (r *Repo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, phc string) error {
	return r.mutate(ctx, collUsers, func(tx store.Store) error {
		doc, err := tx.Get(ctx, collUsers, id)
		if err != nil {
			return storeErr("get user", err)
		}
		u, err := decodeUser(doc)
		if err != nil {
			return err
		}
		u.PasswordHash = phc
		next, err := encodeUser(u)
		if err != nil {
			return err
		}
		return storeErr("update password", tx.Replace(ctx, collUsers, id, next))
	})
}

// DeleteAccount removes the user and everything it owns in one
// transaction: children first, the account last, all-or-nothing. A partial
// cascade would be a corruption state.
func (r *Repo) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if err := requireOwner(id); err != nil {
		return err
	}
	slog.DebugContext(ctx, "DeleteAccount", "user_id", id.String())

	childCollections := []string{collInstallations, collJobs, collEquipment, collCustomers}
	return r.mutateAll(ctx, func(tx store.Store) error {
		if _, err := tx.Get(ctx, collUsers, id); err != nil {
			return storeErr("get user", err)
		}
		owned := store.Query{Filters: []store.Filter{store.Eq("owner_id", id.String())}}
		for _, coll := range childCollections {
			docs, err := tx.List(ctx, coll, owned)
			if err != nil {
				return storeErr("list "+coll, err)
			}
			for _, doc := range docs {
				rid, err := uuid.Parse(asDocString(doc["id"]))
				if err != nil {
					continue
				}
				if err := tx.Delete(ctx, coll, rid); err != nil {
					return storeErr("delete "+coll, err)
				}
			}
		}
		return storeErr("delete user", tx.Delete(ctx, collUsers, id))
	})
}

func asDocString(v any) string {
	s, _ := v.(string)
	return s
}

package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrmoe28/solarscheduler-sub001/internal/models"
	"github.com/mrmoe28/solarscheduler-sub001/internal/store"
	"github.com/mrmoe28/solarscheduler-sub001/internal/validate"
)

// testClock is a settable clock for repos under test.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestRepo() (*Repo, *testClock) {
	clock := &testClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	return NewWithClock(store.NewMemory(), clock.Now), clock
}

func seedJob(t *testing.T, r *Repo, owner uuid.UUID) models.Job {
	t.Helper()
	j, err := r.CreateJob(context.Background(), owner, models.Job{
		CustomerName:     "Dana Whitfield",
		Address:          "412 Sunview Terrace, Austin TX",
		SystemSize:       8.5,
		EstimatedRevenue: 24000,
	})
	require.NoError(t, err)
	return j
}

func TestCreateJobDefaults(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRepo()
	owner := uuid.New()

	j := seedJob(t, r, owner)
	assert.Equal(t, models.JobPending, j.Status)
	assert.Equal(t, owner, j.OwnerID)
	assert.NotEqual(t, uuid.Nil, j.ID)
	assert.Equal(t, clock.now.UTC().Truncate(time.Second), j.CreatedDate)

	got, err := r.Job(ctx, owner, j.ID)
	require.NoError(t, err)
	assert.Equal(t, j, got)
}

func TestCreateJobValidation(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()
	owner := uuid.New()

	_, err := r.CreateJob(ctx, owner, models.Job{
		Address:          "412 Sunview Terrace, Austin TX",
		SystemSize:       8.5,
		EstimatedRevenue: 24000,
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Len(t, vErr.Result.Errors, 1)
	assert.Equal(t, "customer_name", vErr.Result.Errors[0].Field)
	assert.Equal(t, validate.CodeRequired, vErr.Result.Errors[0].Code)
}

func TestNoActingUser(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()

	_, err := r.CreateJob(ctx, uuid.Nil, models.Job{})
	assert.ErrorIs(t, err, models.ErrNoActingUser)

	_, err = r.Jobs(ctx, uuid.Nil, JobQuery{})
	assert.ErrorIs(t, err, models.ErrNoActingUser)
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()
	alice := uuid.New()
	bob := uuid.New()

	j := seedJob(t, r, alice)

	// Bob cannot see, update or delete Alice's job; every path reports
	// not-found rather than forbidden.
	_, err := r.Job(ctx, bob, j.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	name := "Hijacked"
	_, err = r.UpdateJob(ctx, bob, j.ID, JobPatch{CustomerName: &name})
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = r.DeleteJob(ctx, bob, j.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	jobs, err := r.Jobs(ctx, bob, JobQuery{})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	// Alice still has it.
	jobs, err = r.Jobs(ctx, alice, JobQuery{})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestJobStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()
	owner := uuid.New()
	j := seedJob(t, r, owner)

	j2, err := r.UpdateJobStatus(ctx, owner, j.ID, models.JobApproved)
	require.NoError(t, err)
	assert.Equal(t, models.JobApproved, j2.Status)

	// approved -> completed skips in_progress and must be refused.
	_, err = r.UpdateJobStatus(ctx, owner, j.ID, models.JobCompleted)
	var brErr *models.BusinessRuleError
	require.ErrorAs(t, err, &brErr)
	assert.Equal(t, "job_status_transition", brErr.Rule)

	// Status survives the refused transition.
	got, err := r.Job(ctx, owner, j.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobApproved, got.Status)

	for _, st := range []models.JobStatus{models.JobInProgress, models.JobCompleted} {
		_, err = r.UpdateJobStatus(ctx, owner, j.ID, st)
		require.NoError(t, err)
	}

	// Terminal.
	_, err = r.UpdateJobStatus(ctx, owner, j.ID, models.JobPending)
	assert.ErrorAs(t, err, &brErr)
}

func TestUpdateJobStaleScheduledDate(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRepo()
	owner := uuid.New()

	sched := clock.now.AddDate(0, 0, 7)
	j, err := r.CreateJob(ctx, owner, models.Job{
		CustomerName:     "Dana Whitfield",
		Address:          "412 Sunview Terrace, Austin TX",
		SystemSize:       8.5,
		EstimatedRevenue: 24000,
		ScheduledDate:    &sched,
	})
	require.NoError(t, err)

	// A month later the stored date is in the past. Patching an unrelated
	// field must still work.
	clock.now = clock.now.AddDate(0, 1, 0)
	notes := "customer asked to reconfirm"
	j2, err := r.UpdateJob(ctx, owner, j.ID, JobPatch{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, j2.Notes)
	require.NotNil(t, j2.ScheduledDate)

	// Setting a new past date is still rejected.
	past := clock.now.AddDate(0, 0, -3)
	_, err = r.UpdateJob(ctx, owner, j.ID, JobPatch{ScheduledDate: &past})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "scheduled_date", vErr.Result.Errors[0].Field)

	// And the date can be cleared outright.
	j3, err := r.UpdateJob(ctx, owner, j.ID, JobPatch{ClearScheduledDate: true})
	require.NoError(t, err)
	assert.Nil(t, j3.ScheduledDate)
}

func TestJobsSortAndSearch(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()
	owner := uuid.New()

	for _, in := range []models.Job{
		{CustomerName: "Alvarez Roofing", Address: "100 North Lamar Blvd, Austin", SystemSize: 5, EstimatedRevenue: 9000},
		{CustomerName: "Brightside HOA", Address: "2200 Eastside Drive, Austin", SystemSize: 12, EstimatedRevenue: 30000},
		{CustomerName: "Castillo Farms", Address: "98 County Road 12, Lockhart", SystemSize: 7, EstimatedRevenue: 15000},
	} {
		_, err := r.CreateJob(ctx, owner, in)
		require.NoError(t, err)
	}

	jobs, err := r.Jobs(ctx, owner, JobQuery{SortKey: JobSortRevenue, Desc: true})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "Brightside HOA", jobs[0].CustomerName)
	assert.Equal(t, "Alvarez Roofing", jobs[2].CustomerName)

	// Search matches address fragments too, case-insensitively.
	jobs, err = r.SearchJobs(ctx, owner, "lockhart")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Castillo Farms", jobs[0].CustomerName)
}

func TestAdjustStock(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()
	owner := uuid.New()

	e, err := r.CreateEquipment(ctx, owner, models.Equipment{
		Name:              "Q.PEAK DUO 405W",
		Category:          models.CategoryPanels,
		Quantity:          3,
		UnitPrice:         210,
		UnitCost:          165,
		LowStockThreshold: 5,
	})
	require.NoError(t, err)
	assert.True(t, e.IsLowStock())

	e2, err := r.AdjustStock(ctx, owner, e.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 13, e2.Quantity)
	assert.False(t, e2.IsLowStock())

	// Consuming more than is on hand is refused and leaves stock alone.
	_, err = r.AdjustStock(ctx, owner, e.ID, -20)
	var brErr *models.BusinessRuleError
	require.ErrorAs(t, err, &brErr)
	assert.Equal(t, "insufficient_stock", brErr.Rule)

	got, err := r.Equipment(ctx, owner, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 13, got.Quantity)

	// Draining to exactly zero is fine.
	e3, err := r.AdjustStock(ctx, owner, e.ID, -13)
	require.NoError(t, err)
	assert.Equal(t, 0, e3.Quantity)
}

func TestCustomerJobsAndDelete(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()
	owner := uuid.New()

	c, err := r.CreateCustomer(ctx, owner, models.Customer{
		Name:  "Miguel Santos",
		Email: "miguel@example.com",
		Phone: "5125550147",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeadNew, c.LeadStatus)

	j, err := r.CreateJob(ctx, owner, models.Job{
		CustomerID:       &c.ID,
		CustomerName:     c.Name,
		Address:          "900 Barton Springs Road, Austin",
		SystemSize:       6,
		EstimatedRevenue: 14000,
	})
	require.NoError(t, err)

	jobs, err := r.CustomerJobs(ctx, owner, c.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, j.ID, jobs[0].ID)

	// Deleting the customer keeps the job, snapshot fields intact.
	require.NoError(t, r.DeleteCustomer(ctx, owner, c.ID))
	_, err = r.Customer(ctx, owner, c.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := r.Job(ctx, owner, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "Miguel Santos", got.CustomerName)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()

	_, err := r.CreateUser(ctx, models.User{
		Email:    "owner@sunbeam.example",
		FullName: "Kim Owner",
	}, "phc")
	require.NoError(t, err)

	// Same address with different casing is still a duplicate.
	_, err = r.CreateUser(ctx, models.User{
		Email:    "OWNER@Sunbeam.example",
		FullName: "Other Person",
	}, "phc")
	var cErr *models.ConstraintError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "users_email_unique", cErr.Constraint)
}

func TestUserByEmailRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()

	u, err := r.CreateUser(ctx, models.User{
		Email:    "owner@sunbeam.example",
		FullName: "Kim Owner",
	}, "$argon2id$stub")
	require.NoError(t, err)

	got, err := r.UserByEmail(ctx, "Owner@Sunbeam.Example")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	// The hash survives the store round trip even though it is never
	// serialized to clients.
	assert.Equal(t, "$argon2id$stub", got.PasswordHash)
}

func TestDeleteAccountCascade(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRepo()

	u, err := r.CreateUser(ctx, models.User{Email: "owner@sunbeam.example", FullName: "Kim Owner"}, "phc")
	require.NoError(t, err)
	owner := u.ID

	other, err := r.CreateUser(ctx, models.User{Email: "rival@sunbeam.example", FullName: "Rival"}, "phc")
	require.NoError(t, err)

	var jobIDs []uuid.UUID
	for i := 0; i < 3; i++ {
		j := seedJob(t, r, owner)
		jobIDs = append(jobIDs, j.ID)
	}
	c1, err := r.CreateCustomer(ctx, owner, models.Customer{Name: "Miguel Santos", Email: "m@example.com", Phone: "5125550147"})
	require.NoError(t, err)
	c2, err := r.CreateCustomer(ctx, owner, models.Customer{Name: "Priya Nair", Email: "p@example.com", Phone: "5125550148"})
	require.NoError(t, err)
	e, err := r.CreateEquipment(ctx, owner, models.Equipment{Name: "Inverter", Category: models.CategoryInverters, Quantity: 2, UnitPrice: 900, UnitCost: 700})
	require.NoError(t, err)
	inst, err := r.CreateInstallation(ctx, owner, models.Installation{
		JobID:                jobIDs[0],
		ScheduledDate:        clock.now.AddDate(0, 0, 10),
		EstimatedDurationSec: 3600 * 6,
		CrewMembers:          "Ana, Victor",
	})
	require.NoError(t, err)

	// A bystander's record survives the cascade.
	otherJob := seedJob(t, r, other.ID)

	require.NoError(t, r.DeleteAccount(ctx, owner))

	_, err = r.UserByID(ctx, owner)
	assert.ErrorIs(t, err, models.ErrNotFound)
	for _, id := range jobIDs {
		_, err = r.Job(ctx, other.ID, id)
		assert.ErrorIs(t, err, models.ErrNotFound)
	}
	for _, id := range []uuid.UUID{c1.ID, c2.ID} {
		_, err = r.Customer(ctx, other.ID, id)
		assert.ErrorIs(t, err, models.ErrNotFound)
	}
	_, err = r.Equipment(ctx, other.ID, e.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = r.Installation(ctx, other.ID, inst.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := r.Job(ctx, other.ID, otherJob.ID)
	require.NoError(t, err)
	assert.Equal(t, otherJob.ID, got.ID)

	// Deleting again reports the account as gone.
	assert.ErrorIs(t, r.DeleteAccount(ctx, owner), models.ErrNotFound)
}

func TestCreateInstallationRequiresOwnedJob(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRepo()
	alice := uuid.New()
	bob := uuid.New()

	j := seedJob(t, r, alice)

	_, err := r.CreateInstallation(ctx, bob, models.Installation{
		JobID:                j.ID,
		ScheduledDate:        clock.now.AddDate(0, 0, 5),
		EstimatedDurationSec: 3600 * 4,
		CrewMembers:          "Sam",
	})
	assert.ErrorIs(t, err, models.ErrNotFound)

	inst, err := r.CreateInstallation(ctx, alice, models.Installation{
		JobID:                j.ID,
		ScheduledDate:        clock.now.AddDate(0, 0, 5),
		EstimatedDurationSec: 3600 * 4,
		CrewMembers:          "Sam",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InstallScheduled, inst.Status)
}

func TestInstallationDateRangeQuery(t *testing.T) {
	ctx := context.Background()
	r, clock := newTestRepo()
	owner := uuid.New()
	j := seedJob(t, r, owner)

	for _, days := range []int{2, 10, 40} {
		_, err := r.CreateInstallation(ctx, owner, models.Installation{
			JobID:                j.ID,
			ScheduledDate:        clock.now.AddDate(0, 0, days),
			EstimatedDurationSec: 3600,
			CrewMembers:          "Ana",
		})
		require.NoError(t, err)
	}

	from := clock.now.AddDate(0, 0, 5)
	to := clock.now.AddDate(0, 0, 20)
	installs, err := r.Installations(ctx, owner, InstallationQuery{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, installs, 1)
	assert.Equal(t, clock.now.AddDate(0, 0, 10).UTC().Truncate(time.Second), installs[0].ScheduledDate)
}

func TestEquipmentLowStockFilter(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()
	owner := uuid.New()

	_, err := r.CreateEquipment(ctx, owner, models.Equipment{Name: "Panel", Category: models.CategoryPanels, Quantity: 40, UnitPrice: 200, LowStockThreshold: 5})
	require.NoError(t, err)
	low, err := r.CreateEquipment(ctx, owner, models.Equipment{Name: "Inverter", Category: models.CategoryInverters, Quantity: 2, UnitPrice: 900, LowStockThreshold: 5})
	require.NoError(t, err)

	items, err := r.EquipmentList(ctx, owner, EquipmentQuery{LowStockOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, low.ID, items[0].ID)

	// A limit bounds the filtered result, not the scan; the low-stock item
	// sits second in insertion order, so a store-side limit of 1 would
	// truncate it away before the filter ever saw it.
	_, err = r.CreateEquipment(ctx, owner, models.Equipment{Name: "Rail Kit", Category: models.CategoryMounting, Quantity: 60, UnitPrice: 45, LowStockThreshold: 10})
	require.NoError(t, err)
	items, err = r.EquipmentList(ctx, owner, EquipmentQuery{LowStockOnly: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, low.ID, items[0].ID)
}

// looseTxStore degrades Tx to a plain callback with no serialization,
// matching what a read committed database transaction gives a concurrent
// read-modify-write. The repository's own mutation locks must make up the
// difference.
type looseTxStore struct {
	store.Store
}

func (s looseTxStore) Tx(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s.Store)
}

func TestAdjustStockConcurrentDeltas(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	r := NewWithClock(looseTxStore{store.NewMemory()}, clock.Now)
	owner := uuid.New()

	e, err := r.CreateEquipment(ctx, owner, models.Equipment{
		Name: "Q.PEAK DUO 405W", Category: models.CategoryPanels,
		Quantity: 0, UnitPrice: 210,
	})
	require.NoError(t, err)

	const n = 25
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.AdjustStock(ctx, owner, e.ID, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := r.Equipment(ctx, owner, e.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.Quantity, "every delta must land exactly once")
}

func TestAdjustStockConcurrentOverdraw(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	r := NewWithClock(looseTxStore{store.NewMemory()}, clock.Now)
	owner := uuid.New()

	e, err := r.CreateEquipment(ctx, owner, models.Equipment{
		Name: "SolarEdge HD-Wave", Category: models.CategoryInverters,
		Quantity: 5, UnitPrice: 900,
	})
	require.NoError(t, err)

	const n = 10
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.AdjustStock(ctx, owner, e.ID, -1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var brErr *models.BusinessRuleError
		require.ErrorAs(t, err, &brErr)
		assert.Equal(t, "insufficient_stock", brErr.Rule)
	}
	assert.Equal(t, 5, succeeded)

	got, err := r.Equipment(ctx, owner, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity, "joint consumption must never overdraw")
}

// downStore refuses every operation the way a backend with a dead
// connection does.
type downStore struct{}

func errDown() error { return fmt.Errorf("%w: dial tcp: connection refused", store.ErrUnavailable) }

func (downStore) Insert(context.Context, string, uuid.UUID, map[string]any) error { return errDown() }
func (downStore) Get(context.Context, string, uuid.UUID) (map[string]any, error) {
	return nil, errDown()
}
func (downStore) Replace(context.Context, string, uuid.UUID, map[string]any) error {
	return errDown()
}
func (downStore) Delete(context.Context, string, uuid.UUID) error { return errDown() }
func (downStore) List(context.Context, string, store.Query) ([]map[string]any, error) {
	return nil, errDown()
}
func (downStore) Tx(context.Context, func(tx store.Store) error) error { return errDown() }

func TestStoreOutageSurfaces(t *testing.T) {
	ctx := context.Background()
	r := New(downStore{})
	owner := uuid.New()

	_, err := r.Job(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = r.Jobs(ctx, owner, JobQuery{})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	_, err = r.AdjustStock(ctx, owner, uuid.New(), 1)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	assert.ErrorIs(t, r.DeleteAccount(ctx, owner), models.ErrStoreUnavailable)
}

func TestUpdateCustomerLeadStatus(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo()
	owner := uuid.New()

	c, err := r.CreateCustomer(ctx, owner, models.Customer{Name: "Miguel Santos", Email: "m@example.com", Phone: "5125550147"})
	require.NoError(t, err)

	won := models.LeadWon
	c2, err := r.UpdateCustomer(ctx, owner, c.ID, CustomerPatch{LeadStatus: &won})
	require.NoError(t, err)
	assert.Equal(t, models.LeadWon, c2.LeadStatus)

	bad := models.LeadStatus("tepid")
	_, err = r.UpdateCustomer(ctx, owner, c.ID, CustomerPatch{LeadStatus: &bad})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

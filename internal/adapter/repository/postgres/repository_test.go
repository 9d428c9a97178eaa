package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/railzwaylabs/tier-orchestrator/internal/domain/tier"
	"github.com/railzwaylabs/tier-orchestrator/internal/domain/workflow"
	"github.com/railzwaylabs/tier-orchestrator/pkg/db"
	"github.com/railzwaylabs/tier-orchestrator/pkg/testhelper"
	"github.com/railzwaylabs/tier-orchestrator/sql/migrations"
)

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := testhelper.SetupPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Teardown(context.Background()) })

	gdb, err := db.Open(container.DSN, db.Pool{}, true)
	require.NoError(t, err)

	err = container.ApplySchema(ctx, func(ctx context.Context, sql string) error {
		return gdb.WithContext(ctx).Exec(sql).Error
	}, migrations.FS)
	require.NoError(t, err)

	return NewRepository(gdb)
}

func newRun(id int64, key string) *workflow.Run {
	run := workflow.NewRun(id, workflow.KindTierChange, "cid")
	run.IdempotencyKey = key
	run.OrganizationID = "org-1"
	run.TenantID = 42
	run.TargetProductID = "pro"
	run.Classification = tier.Upgrade
	return run
}

func TestRepository_Lifecycle(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	run := newRun(1, "key-1")
	require.NoError(t, repo.Create(ctx, run))

	require.NoError(t, run.Transition(workflow.StateTenantUpdating))
	require.NoError(t, run.Transition(workflow.StateBillingCheck))
	require.NoError(t, run.Transition(workflow.StateBillingUpdating))
	require.NoError(t, run.Transition(workflow.StateBillingFailed))
	require.NoError(t, run.Transition(workflow.StateDone))
	run.Warnings = []string{"first", "second"}
	run.Complete(&workflow.TierChangeResult{
		Status:  workflow.StatusBillingFailedAfterTenantUpdate,
		Failure: &workflow.Failure{Service: workflow.ServiceBilling, Kind: "server", Code: 502, Message: "bad gateway"},
	})
	require.NoError(t, repo.Save(ctx, run))

	got, err := repo.FindByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, workflow.StateDone, got.State)
	assert.Equal(t, workflow.StatusBillingFailedAfterTenantUpdate, got.Status)
	assert.Equal(t, []string{"first", "second"}, got.Warnings)
	require.NotNil(t, got.BillingFailure)
	assert.Equal(t, 502, got.BillingFailure.Code)
	assert.Nil(t, got.TenantFailure)

	byID, err := repo.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "key-1", byID.IdempotencyKey)

	runs, err := repo.ListByStatus(ctx, []workflow.Status{workflow.StatusBillingFailedAfterTenantUpdate}, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	count, err := repo.CountByStatus(ctx, workflow.StatusBillingFailedAfterTenantUpdate)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_DuplicateIdempotencyKey(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRun(1, "dup")))
	assert.ErrorIs(t, repo.Create(ctx, newRun(2, "dup")), workflow.ErrDuplicateIdempotencyKey)

	// Runs without a key never collide.
	require.NoError(t, repo.Create(ctx, newRun(3, "")))
	require.NoError(t, repo.Create(ctx, newRun(4, "")))
}

func TestRepository_NotFound(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	run, err := repo.FindByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, run)

	run, err = repo.FindByIdempotencyKey(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRepository_CountStale(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	stuck := newRun(1, "")
	require.NoError(t, stuck.Transition(workflow.StateTenantUpdating))
	require.NoError(t, repo.Create(ctx, stuck))
	require.NoError(t, repo.db.Model(&RunModel{}).Where("id = ?", 1).
		UpdateColumn("updated_at", gorm.Expr("NOW() - INTERVAL '1 hour'")).Error)

	finished := newRun(2, "")
	finished.State = workflow.StateDone
	require.NoError(t, repo.Create(ctx, finished))
	require.NoError(t, repo.db.Model(&RunModel{}).Where("id = ?", 2).
		UpdateColumn("updated_at", gorm.Expr("NOW() - INTERVAL '1 hour'")).Error)

	cutoff := time.Now().Add(-30 * time.Minute)
	count, err := repo.CountStale(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	runs, err := repo.ListStale(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(1), runs[0].ID)
	assert.Equal(t, workflow.StateTenantUpdating, runs[0].State)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/parsbill/parsbill/internal/clock"
	"github.com/parsbill/parsbill/internal/collaborator/domain"
	"github.com/parsbill/parsbill/internal/collaborator/repository"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	ledgerdomain "github.com/parsbill/parsbill/internal/ledger/domain"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/parsbill/parsbill/internal/stats"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, name string) (domain.Service, domain.Repository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Collaborator{}, &domain.Payout{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := repository.Provide()
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repo,
	})
	return svc, repo, db
}

func TestCreate_ValidatesAndRejectsDuplicates(t *testing.T) {
	svc, _, _ := newTestService(t, "collab_create")
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "Ahmad"})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)

	_, err = svc.Create(ctx, domain.CreateRequest{Code: "c-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateRequest{
		Code:              "c-1",
		Name:              "Ahmad",
		CommissionPercent: decimal.NewFromInt(150),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPercent)

	created, err := svc.Create(ctx, domain.CreateRequest{
		Code:              "c-1",
		Name:              "Ahmad",
		CommissionPercent: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = svc.Create(ctx, domain.CreateRequest{
		Code:              "c-1",
		Name:              "Someone Else",
		CommissionPercent: decimal.NewFromInt(5),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestRecordPayout_GuardsUnpaidBalance(t *testing.T) {
	svc, repo, db := newTestService(t, "collab_payout")
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		Code:              "c-2",
		Name:              "Reza",
		CommissionPercent: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	require.NoError(t, repo.AccrueEarnings(ctx, db, created.ID, 5000))

	payout, err := svc.RecordPayout(ctx, domain.RecordPayoutRequest{
		CollaboratorID: created.ID.String(),
		Amount:         3000,
		Note:           "first settlement",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payout.Reference)

	after, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2000), after.CurrentEarnings)
	assert.Equal(t, int64(5000), after.TotalEarnings)
	assert.Equal(t, int64(3000), after.TotalPayouts)

	// More than the remaining unpaid balance.
	_, err = svc.RecordPayout(ctx, domain.RecordPayoutRequest{
		CollaboratorID: created.ID.String(),
		Amount:         2001,
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientPayoutBalance)

	// The rejected payout must leave no trace.
	payouts, err := svc.ListPayouts(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Len(t, payouts, 1)
}

func TestRecordPayout_RefreshesOverviewSnapshot(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:collab_stats?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	// The overview aggregates across every back-office table.
	require.NoError(t, db.AutoMigrate(
		&domain.Collaborator{},
		&domain.Payout{},
		&representativedomain.Representative{},
		&invoicedomain.Invoice{},
		&ledgerdomain.Entry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	statsSvc := stats.New(stats.Params{DB: db, Log: log, Clock: fakeClock})

	repo := repository.Provide()
	svc := New(Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  repo,
		Stats: statsSvc,
	})

	ctx := context.Background()
	created, err := svc.Create(ctx, domain.CreateRequest{
		Code:              "c-4",
		Name:              "Niloofar",
		CommissionPercent: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.NoError(t, repo.AccrueEarnings(ctx, db, created.ID, 5000))

	before, err := statsSvc.GetOverview(ctx)
	require.NoError(t, err)
	assert.Zero(t, before.Commissions.TotalPayouts)

	_, err = svc.RecordPayout(ctx, domain.RecordPayoutRequest{
		CollaboratorID: created.ID.String(),
		Amount:         3000,
	})
	require.NoError(t, err)

	// The payout drops the cached snapshot; the next read must not wait out
	// the TTL to see it.
	after, err := statsSvc.GetOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), after.Commissions.TotalPayouts)
	assert.Equal(t, int64(2000), after.Commissions.CurrentEarnings)
}

func TestReverseEarnings_GuardsAgainstSettledBalance(t *testing.T) {
	svc, repo, db := newTestService(t, "collab_reverse")
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateRequest{
		Code:              "c-3",
		Name:              "Sara",
		CommissionPercent: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	require.NoError(t, repo.AccrueEarnings(ctx, db, created.ID, 1000))

	ok, err := repo.ReverseEarnings(ctx, db, created.ID, 1000)
	require.NoError(t, err)
	assert.True(t, ok)

	after, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Zero(t, after.CurrentEarnings)
	assert.Zero(t, after.TotalEarnings)

	// Nothing left to reverse.
	ok, err = repo.ReverseEarnings(ctx, db, created.ID, 1000)
	require.NoError(t, err)
	assert.False(t, ok)
}

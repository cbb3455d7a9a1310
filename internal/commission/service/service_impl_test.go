package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	collaboratorrepository "github.com/parsbill/parsbill/internal/collaborator/repository"
	commissiondomain "github.com/parsbill/parsbill/internal/commission/domain"
	"github.com/parsbill/parsbill/internal/config"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestCommission(t *testing.T, name string) (commissiondomain.Service, collaboratordomain.Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&collaboratordomain.Collaborator{}, &commissiondomain.Record{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder := &config.BillingConfigHolder{}
	holder.Store(config.DefaultBillingConfig())

	collabRepo := collaboratorrepository.Provide()
	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Config:     holder,
		CollabRepo: collabRepo,
	})
	return svc, collabRepo, db, node
}

func seedPair(t *testing.T, db *gorm.DB, node *snowflake.Node, percent string) (*representativedomain.Representative, *collaboratordomain.Collaborator) {
	t.Helper()

	rate, err := decimal.NewFromString(percent)
	require.NoError(t, err)

	collab := &collaboratordomain.Collaborator{
		ID:                node.Generate(),
		Code:              "c-" + node.Generate().String(),
		Name:              "Collaborator",
		CommissionPercent: rate,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, db.Create(collab).Error)

	rep := &representativedomain.Representative{
		ID:             node.Generate(),
		SourcingType:   representativedomain.SourcingCollaborator,
		CollaboratorID: &collab.ID,
	}
	return rep, collab
}

func TestAccrueInTx_ComputesPercentOfBase(t *testing.T) {
	svc, collabRepo, db, node := newTestCommission(t, "commission_accrue")
	ctx := context.Background()

	rep, collab := seedPair(t, db, node, "10")

	record, err := svc.AccrueInTx(ctx, db, rep, node.Generate(), 100000)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, int64(10000), record.Amount)
	assert.Equal(t, commissiondomain.KindAccrual, record.Kind)

	after, err := collabRepo.FindByID(ctx, db, collab.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), after.CurrentEarnings)
	assert.Equal(t, int64(10000), after.TotalEarnings)
}

func TestAccrueInTx_RoundsHalfUp(t *testing.T) {
	svc, _, db, node := newTestCommission(t, "commission_round")
	ctx := context.Background()

	rep, _ := seedPair(t, db, node, "2.5")

	// 999 * 2.5% = 24.975, rounds to 25.
	record, err := svc.AccrueInTx(ctx, db, rep, node.Generate(), 999)
	require.NoError(t, err)
	assert.Equal(t, int64(25), record.Amount)
}

func TestAccrueInTx_DirectRepresentativeIsSkipped(t *testing.T) {
	svc, _, db, node := newTestCommission(t, "commission_direct")
	ctx := context.Background()

	rep := &representativedomain.Representative{
		ID:           node.Generate(),
		SourcingType: representativedomain.SourcingDirect,
	}

	record, err := svc.AccrueInTx(ctx, db, rep, node.Generate(), 100000)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestAccrueInTx_ReplayDoesNotDoubleAccrue(t *testing.T) {
	svc, collabRepo, db, node := newTestCommission(t, "commission_replay")
	ctx := context.Background()

	rep, collab := seedPair(t, db, node, "10")
	invoiceID := node.Generate()

	first, err := svc.AccrueInTx(ctx, db, rep, invoiceID, 50000)
	require.NoError(t, err)

	second, err := svc.AccrueInTx(ctx, db, rep, invoiceID, 50000)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	after, err := collabRepo.FindByID(ctx, db, collab.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), after.CurrentEarnings)
}

func TestReverseInTx_CompensatesAccrual(t *testing.T) {
	svc, collabRepo, db, node := newTestCommission(t, "commission_reverse")
	ctx := context.Background()

	rep, collab := seedPair(t, db, node, "10")
	invoiceID := node.Generate()

	_, err := svc.AccrueInTx(ctx, db, rep, invoiceID, 50000)
	require.NoError(t, err)

	reversal, err := svc.ReverseInTx(ctx, db, invoiceID)
	require.NoError(t, err)
	require.NotNil(t, reversal)
	assert.Equal(t, commissiondomain.KindReversal, reversal.Kind)
	assert.Equal(t, int64(-5000), reversal.Amount)

	after, err := collabRepo.FindByID(ctx, db, collab.ID)
	require.NoError(t, err)
	assert.Zero(t, after.CurrentEarnings)
	assert.Zero(t, after.TotalEarnings)
}

func TestReverseInTx_NoAccrualIsNoop(t *testing.T) {
	svc, _, db, node := newTestCommission(t, "commission_reverse_noop")
	ctx := context.Background()

	reversal, err := svc.ReverseInTx(ctx, db, node.Generate())
	require.NoError(t, err)
	assert.Nil(t, reversal)
}

func TestReverseInTx_SettledEarningsFail(t *testing.T) {
	svc, collabRepo, db, node := newTestCommission(t, "commission_settled")
	ctx := context.Background()

	rep, collab := seedPair(t, db, node, "10")
	invoiceID := node.Generate()

	_, err := svc.AccrueInTx(ctx, db, rep, invoiceID, 50000)
	require.NoError(t, err)

	applied, err := collabRepo.ApplyPayout(ctx, db, collab.ID, 5000)
	require.NoError(t, err)
	require.True(t, applied)

	_, err = svc.ReverseInTx(ctx, db, invoiceID)
	assert.ErrorIs(t, err, commissiondomain.ErrCommissionSettled)
}

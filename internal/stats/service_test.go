package stats

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/parsbill/parsbill/internal/clock"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	ledgerdomain "github.com/parsbill/parsbill/internal/ledger/domain"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newStatsFixture(t *testing.T, name string) (*Service, *clock.FakeClock, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&representativedomain.Representative{},
		&collaboratordomain.Collaborator{},
		&invoicedomain.Invoice{},
		&ledgerdomain.Entry{},
		&ledgerdomain.Head{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fakeClock,
	})
	return svc, fakeClock, db, node
}

func seedOverviewData(t *testing.T, db *gorm.DB, node *snowflake.Node) {
	t.Helper()
	now := time.Now().UTC()

	reps := []representativedomain.Representative{
		{ID: node.Generate(), Code: "rep-1", Name: "One", Status: representativedomain.StatusActive, SourcingType: representativedomain.SourcingDirect},
		{ID: node.Generate(), Code: "rep-2", Name: "Two", Status: representativedomain.StatusActive, SourcingType: representativedomain.SourcingDirect},
		{ID: node.Generate(), Code: "rep-3", Name: "Three", Status: representativedomain.StatusSuspended, SourcingType: representativedomain.SourcingDirect},
	}
	require.NoError(t, db.Create(&reps).Error)

	collab := collaboratordomain.Collaborator{
		ID:                node.Generate(),
		Code:              "c-1",
		Name:              "Collaborator",
		CommissionPercent: decimal.NewFromInt(10),
		CurrentEarnings:   3000,
		TotalEarnings:     5000,
		TotalPayouts:      2000,
	}
	require.NoError(t, db.Create(&collab).Error)

	invoices := []invoicedomain.Invoice{
		{ID: node.Generate(), InvoiceNo: "S-1", RepresentativeID: reps[0].ID, Status: invoicedomain.StatusPending, TotalAmount: 10000, IssueDate: now, DueDate: now},
		{ID: node.Generate(), InvoiceNo: "S-2", RepresentativeID: reps[0].ID, Status: invoicedomain.StatusPaid, TotalAmount: 20000, PaidAmount: 20000, IssueDate: now, DueDate: now},
		{ID: node.Generate(), InvoiceNo: "S-3", RepresentativeID: reps[1].ID, Status: invoicedomain.StatusOverdue, TotalAmount: 5000, PaidAmount: 1000, IssueDate: now, DueDate: now},
		// Cancelled invoices stay out of the billed and collected totals.
		{ID: node.Generate(), InvoiceNo: "S-4", RepresentativeID: reps[1].ID, Status: invoicedomain.StatusCancelled, TotalAmount: 7000, IssueDate: now, DueDate: now},
	}
	require.NoError(t, db.Create(&invoices).Error)

	entries := []ledgerdomain.Entry{
		{ID: node.Generate(), RepresentativeID: reps[0].ID, Seq: 1, Type: ledgerdomain.EntryTypeInvoice, Amount: 30000, BalanceAfter: 30000, SourceType: ledgerdomain.SourceTypeInvoice, SourceID: invoices[0].ID, OccurredAt: now},
		{ID: node.Generate(), RepresentativeID: reps[0].ID, Seq: 2, Type: ledgerdomain.EntryTypePayment, Amount: -20000, BalanceAfter: 10000, SourceType: ledgerdomain.SourceTypePayment, SourceID: node.Generate(), OccurredAt: now},
		{ID: node.Generate(), RepresentativeID: reps[1].ID, Seq: 1, Type: ledgerdomain.EntryTypeInvoice, Amount: 5000, BalanceAfter: 5000, SourceType: ledgerdomain.SourceTypeInvoice, SourceID: invoices[2].ID, OccurredAt: now},
	}
	require.NoError(t, db.Create(&entries).Error)
}

func TestGetOverview_AggregatesFigures(t *testing.T) {
	svc, fakeClock, db, node := newStatsFixture(t, "stats_overview")
	seedOverviewData(t, db, node)

	overview, err := svc.GetOverview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), overview.Representatives)
	assert.Equal(t, int64(2), overview.ActiveRepresentatives)
	assert.Equal(t, int64(1), overview.Collaborators)

	assert.Equal(t, int64(1), overview.Invoices.Pending)
	assert.Equal(t, int64(1), overview.Invoices.Paid)
	assert.Equal(t, int64(1), overview.Invoices.Overdue)
	assert.Equal(t, int64(1), overview.Invoices.Cancelled)
	assert.Equal(t, int64(35000), overview.Invoices.TotalBilled)
	assert.Equal(t, int64(21000), overview.Invoices.TotalCollected)

	assert.Equal(t, int64(35000), overview.Ledger.TotalDebits)
	assert.Equal(t, int64(20000), overview.Ledger.TotalCredits)
	assert.Equal(t, int64(15000), overview.Ledger.OutstandingDebt)
	assert.Equal(t, int64(3), overview.Ledger.EntryCount)

	assert.Equal(t, int64(3000), overview.Commissions.CurrentEarnings)
	assert.Equal(t, int64(5000), overview.Commissions.TotalEarnings)
	assert.Equal(t, int64(2000), overview.Commissions.TotalPayouts)
	assert.Equal(t, fakeClock.Now(), overview.GeneratedAt)
}

func TestGetOverview_ServesCachedSnapshotUntilInvalidated(t *testing.T) {
	svc, _, db, node := newStatsFixture(t, "stats_cache")
	seedOverviewData(t, db, node)
	ctx := context.Background()

	first, err := svc.GetOverview(ctx)
	require.NoError(t, err)

	// Writes after the snapshot stay invisible while the cache is warm.
	extra := collaboratordomain.Collaborator{
		ID:                node.Generate(),
		Code:              "c-2",
		Name:              "Late",
		CommissionPercent: decimal.NewFromInt(5),
	}
	require.NoError(t, db.Create(&extra).Error)

	cached, err := svc.GetOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Collaborators, cached.Collaborators)

	svc.Invalidate()
	fresh, err := svc.GetOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Collaborators+1, fresh.Collaborators)
}

func TestGetOverview_EmptyDatabase(t *testing.T) {
	svc, _, _, _ := newStatsFixture(t, "stats_empty")

	overview, err := svc.GetOverview(context.Background())
	require.NoError(t, err)
	assert.Zero(t, overview.Representatives)
	assert.Zero(t, overview.Invoices.TotalBilled)
	assert.Zero(t, overview.Ledger.EntryCount)
	assert.Zero(t, overview.Commissions.TotalEarnings)
}

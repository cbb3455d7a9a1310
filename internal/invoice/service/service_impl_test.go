package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/parsbill/parsbill/internal/clock"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	collaboratorrepository "github.com/parsbill/parsbill/internal/collaborator/repository"
	commissiondomain "github.com/parsbill/parsbill/internal/commission/domain"
	commissionservice "github.com/parsbill/parsbill/internal/commission/service"
	"github.com/parsbill/parsbill/internal/config"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	invoicerepository "github.com/parsbill/parsbill/internal/invoice/repository"
	ledgerdomain "github.com/parsbill/parsbill/internal/ledger/domain"
	ledgerservice "github.com/parsbill/parsbill/internal/ledger/service"
	pricingservice "github.com/parsbill/parsbill/internal/pricing/service"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	representativerepository "github.com/parsbill/parsbill/internal/representative/repository"
	"github.com/parsbill/parsbill/internal/stats"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
	holder     *config.BillingConfigHolder
	repRepo    representativedomain.Repository
	collabRepo collaboratordomain.Repository
	ledgerSvc  ledgerdomain.Service
	invoiceSvc invoicedomain.Service
	statsSvc   *stats.Service
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&representativedomain.Representative{},
		&collaboratordomain.Collaborator{},
		&collaboratordomain.Payout{},
		&ledgerdomain.Entry{},
		&ledgerdomain.Head{},
		&commissiondomain.Record{},
		&invoicedomain.Invoice{},
		&invoicedomain.Item{},
		&invoicedomain.Payment{},
	))

	// SQLite requires these UNIQUE indexes to exist for ON CONFLICT to work.
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_seq ON ledger_entries(representative_id, seq)")
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_source ON ledger_entries(representative_id, source_type, source_id)")

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zap.NewNop()
	fakeClock := clock.NewFakeClock(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))

	holder := &config.BillingConfigHolder{}
	holder.Store(config.DefaultBillingConfig())

	repRepo := representativerepository.Provide()
	collabRepo := collaboratorrepository.Provide()

	pricingSvc := pricingservice.New(pricingservice.Params{Log: log, Config: holder})
	ledgerSvc := ledgerservice.New(ledgerservice.Params{DB: db, Log: log, GenID: node, Clock: fakeClock})
	statsSvc := stats.New(stats.Params{DB: db, Log: log, Clock: fakeClock})
	commissionSvc := commissionservice.New(commissionservice.Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Config:     holder,
		CollabRepo: collabRepo,
	})

	invoiceSvc := New(Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fakeClock,
		Config:     holder,
		Repo:       invoicerepository.Provide(),
		RepRepo:    repRepo,
		Pricing:    pricingSvc,
		Ledger:     ledgerSvc,
		Commission: commissionSvc,
		Stats:      statsSvc,
	})

	return &fixture{
		db:         db,
		node:       node,
		clock:      fakeClock,
		holder:     holder,
		repRepo:    repRepo,
		collabRepo: collabRepo,
		ledgerSvc:  ledgerSvc,
		invoiceSvc: invoiceSvc,
		statsSvc:   statsSvc,
	}
}

func (f *fixture) seedCollaborator(t *testing.T, code string, percent int64) *collaboratordomain.Collaborator {
	t.Helper()
	collab := &collaboratordomain.Collaborator{
		ID:                f.node.Generate(),
		Code:              code,
		Name:              "Collaborator " + code,
		CommissionPercent: decimal.NewFromInt(percent),
		CreatedAt:         f.clock.Now(),
		UpdatedAt:         f.clock.Now(),
	}
	require.NoError(t, f.collabRepo.Insert(context.Background(), f.db, collab))
	return collab
}

func (f *fixture) seedRepresentative(t *testing.T, code string, collabID *snowflake.ID) *representativedomain.Representative {
	t.Helper()
	rep := &representativedomain.Representative{
		ID:           f.node.Generate(),
		Code:         code,
		Name:         "Representative " + code,
		Status:       representativedomain.StatusActive,
		SourcingType: representativedomain.SourcingDirect,
		PriceTable:   representativedomain.PriceTable{Limited3M: 900},
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	if collabID != nil {
		rep.SourcingType = representativedomain.SourcingCollaborator
		rep.CollaboratorID = collabID
	}
	require.NoError(t, f.repRepo.Insert(context.Background(), f.db, rep))
	return rep
}

func TestCreateInvoice_PostsLedgerDebitAndCommission(t *testing.T) {
	f := newFixture(t, "invoice_create")
	ctx := context.Background()

	collab := f.seedCollaborator(t, "c-1", 10)
	rep := f.seedRepresentative(t, "r-1", &collab.ID)

	created, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-1001",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 10},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPending, created.Status)
	assert.Equal(t, int64(9000), created.TotalAmount)
	require.Len(t, created.Items, 1)
	assert.Equal(t, int64(900), created.Items[0].UnitPrice)

	balance, err := f.ledgerSvc.CurrentBalance(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), balance)

	after, err := f.collabRepo.FindByID(ctx, f.db, collab.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(900), after.CurrentEarnings)
	assert.Equal(t, int64(900), after.TotalEarnings)

	var record commissiondomain.Record
	require.NoError(t, f.db.Where("invoice_id = ?", created.ID).First(&record).Error)
	assert.Equal(t, commissiondomain.KindAccrual, record.Kind)
	assert.Equal(t, commissiondomain.MethodAutomatic, record.Method)
	assert.Equal(t, int64(900), record.Amount)
}

func TestCreateInvoice_OverrideBeatsCollaboratorPercent(t *testing.T) {
	f := newFixture(t, "invoice_override")
	ctx := context.Background()

	collab := f.seedCollaborator(t, "c-1", 10)
	rep := f.seedRepresentative(t, "r-1", &collab.ID)
	rep.CommissionOverride = decimal.NewNullDecimal(decimal.NewFromInt(20))
	require.NoError(t, f.db.Save(rep).Error)

	created, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-2001",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 100},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(90000), created.TotalAmount)

	var record commissiondomain.Record
	require.NoError(t, f.db.Where("invoice_id = ?", created.ID).First(&record).Error)
	assert.Equal(t, commissiondomain.MethodManual, record.Method)
	assert.Equal(t, int64(18000), record.Amount)
}

func TestCreateInvoice_DiscountAndTaxAdjustTotal(t *testing.T) {
	f := newFixture(t, "invoice_discount_tax")
	ctx := context.Background()

	collab := f.seedCollaborator(t, "c-1", 10)
	rep := f.seedRepresentative(t, "r-1", &collab.ID)

	created, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-2501",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		DiscountAmount:     1500,
		TaxAmount:          500,
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 10, UnitPrice: 1000},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), created.BaseAmount)
	assert.Equal(t, int64(9000), created.TotalAmount)

	// The representative owes the adjusted total.
	balance, err := f.ledgerSvc.CurrentBalance(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9000), balance)

	// Commission applies to the base revenue, not the discounted total.
	var record commissiondomain.Record
	require.NoError(t, f.db.Where("invoice_id = ?", created.ID).First(&record).Error)
	assert.Equal(t, int64(10000), record.BaseAmount)
	assert.Equal(t, int64(1000), record.Amount)

	_, err = f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-2502",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		DiscountAmount:     20000,
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 10, UnitPrice: 1000},
		},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidAmount)
}

func TestCreateInvoice_ReplayReturnsOriginal(t *testing.T) {
	f := newFixture(t, "invoice_replay")
	ctx := context.Background()

	rep := f.seedRepresentative(t, "r-1", nil)

	req := invoicedomain.CreateRequest{
		InvoiceNo:          "INV-3001",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 5},
		},
	}

	first, err := f.invoiceSvc.Create(ctx, req)
	require.NoError(t, err)

	second, err := f.invoiceSvc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	entries, err := f.ledgerSvc.Entries(ctx, rep.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateInvoice_NumberTakenByOtherRepresentative(t *testing.T) {
	f := newFixture(t, "invoice_number_taken")
	ctx := context.Background()

	repA := f.seedRepresentative(t, "r-1", nil)
	repB := f.seedRepresentative(t, "r-2", nil)

	_, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-3501",
		RepresentativeCode: repA.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 5},
		},
	})
	require.NoError(t, err)

	_, err = f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-3501",
		RepresentativeCode: repB.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 5},
		},
	})
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateInvoice)

	// The rejected create must leave nothing behind for the second
	// representative.
	entries, err := f.ledgerSvc.Entries(ctx, repB.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateInvoice_RefreshesOverviewSnapshot(t *testing.T) {
	f := newFixture(t, "invoice_stats_refresh")
	ctx := context.Background()

	rep := f.seedRepresentative(t, "r-1", nil)

	before, err := f.statsSvc.GetOverview(ctx)
	require.NoError(t, err)
	assert.Zero(t, before.Invoices.Pending)

	_, err = f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-3601",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 10, UnitPrice: 1000},
		},
	})
	require.NoError(t, err)

	// The write drops the cached snapshot; the next read must not wait out
	// the TTL to see the new invoice.
	after, err := f.statsSvc.GetOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.Invoices.Pending)
	assert.Equal(t, int64(10000), after.Invoices.TotalBilled)
	assert.Equal(t, int64(10000), after.Ledger.OutstandingDebt)
}

func TestRecordPayment_PartialThenFull(t *testing.T) {
	f := newFixture(t, "invoice_payment")
	ctx := context.Background()

	rep := f.seedRepresentative(t, "r-1", nil)

	created, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-4001",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 10, UnitPrice: 1000},
		},
	})
	require.NoError(t, err)
	require.Equal(t, int64(10000), created.TotalAmount)

	half, err := f.invoiceSvc.RecordPayment(ctx, invoicedomain.RecordPaymentRequest{
		InvoiceNo: "INV-4001",
		Amount:    5000,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPending, half.Status)
	assert.Equal(t, int64(5000), half.PaidAmount)
	assert.Nil(t, half.PaidDate)

	full, err := f.invoiceSvc.RecordPayment(ctx, invoicedomain.RecordPaymentRequest{
		InvoiceNo: "INV-4001",
		Amount:    5000,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, full.Status)
	assert.Equal(t, int64(10000), full.PaidAmount)
	require.NotNil(t, full.PaidDate)

	balance, err := f.ledgerSvc.CurrentBalance(ctx, rep.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestRecordPayment_RevertsOverdueOnPartial(t *testing.T) {
	f := newFixture(t, "invoice_overdue_revert")
	ctx := context.Background()

	rep := f.seedRepresentative(t, "r-1", nil)

	_, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-5001",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 7),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 10, UnitPrice: 1000},
		},
	})
	require.NoError(t, err)

	f.clock.Advance(8 * 24 * time.Hour)
	flipped, err := f.invoiceSvc.MarkOverdue(ctx, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), flipped)

	partial, err := f.invoiceSvc.RecordPayment(ctx, invoicedomain.RecordPaymentRequest{
		InvoiceNo: "INV-5001",
		Amount:    2000,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPending, partial.Status)
}

func TestRecordPayment_OverpayOnPaidInvoiceKeepsStatus(t *testing.T) {
	f := newFixture(t, "invoice_overpay_paid")
	ctx := context.Background()

	rep := f.seedRepresentative(t, "r-1", nil)

	_, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-5501",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 1, UnitPrice: 1000},
		},
	})
	require.NoError(t, err)

	_, err = f.invoiceSvc.RecordPayment(ctx, invoicedomain.RecordPaymentRequest{
		InvoiceNo: "INV-5501",
		Amount:    1000,
	})
	require.NoError(t, err)

	over, err := f.invoiceSvc.RecordPayment(ctx, invoicedomain.RecordPaymentRequest{
		InvoiceNo: "INV-5501",
		Amount:    500,
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, over.Status)
	assert.Equal(t, int64(1500), over.PaidAmount)
}

// cancelMidPaymentRepo cancels the invoice between the amount update and the
// status flip, the interleaving a concurrent cancellation produces.
type cancelMidPaymentRepo struct {
	invoicedomain.Repository
	at time.Time
}

func (r *cancelMidPaymentRepo) ApplyPayment(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, amount int64) (*invoicedomain.Invoice, error) {
	if _, err := r.Repository.UpdateStatus(ctx, db, invoiceID,
		[]invoicedomain.Status{invoicedomain.StatusPending, invoicedomain.StatusOverdue},
		invoicedomain.StatusCancelled, r.at,
	); err != nil {
		return nil, err
	}
	return r.Repository.ApplyPayment(ctx, db, invoiceID, amount)
}

func TestRecordPayment_CancelledMidFlightReported(t *testing.T) {
	f := newFixture(t, "invoice_cancel_midflight")
	ctx := context.Background()

	rep := f.seedRepresentative(t, "r-1", nil)

	_, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-5601",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 1, UnitPrice: 1000},
		},
	})
	require.NoError(t, err)

	racySvc := New(Params{
		DB:     f.db,
		Log:    zap.NewNop(),
		GenID:  f.node,
		Clock:  f.clock,
		Config: f.holder,
		Repo: &cancelMidPaymentRepo{
			Repository: invoicerepository.Provide(),
			at:         f.clock.Now(),
		},
		RepRepo: f.repRepo,
		Pricing: pricingservice.New(pricingservice.Params{Log: zap.NewNop(), Config: f.holder}),
		Ledger:  f.ledgerSvc,
		Commission: commissionservice.New(commissionservice.Params{
			DB:         f.db,
			Log:        zap.NewNop(),
			GenID:      f.node,
			Config:     f.holder,
			CollabRepo: f.collabRepo,
		}),
	})

	_, err = racySvc.RecordPayment(ctx, invoicedomain.RecordPaymentRequest{
		InvoiceNo: "INV-5601",
		Amount:    1000,
	})
	assert.ErrorIs(t, err, invoicedomain.ErrAlreadyCancelled)

	// The failed payment rolled back in full; the invoice is untouched.
	inv, err := f.invoiceSvc.GetByNo(ctx, "INV-5601")
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPending, inv.Status)
	assert.Zero(t, inv.PaidAmount)
	assert.Empty(t, inv.Payments)
}

func TestCancel_ReversesLedgerAndCommission(t *testing.T) {
	f := newFixture(t, "invoice_cancel")
	ctx := context.Background()

	collab := f.seedCollaborator(t, "c-1", 10)
	rep := f.seedRepresentative(t, "r-1", &collab.ID)

	created, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-6001",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 10, UnitPrice: 1000},
		},
	})
	require.NoError(t, err)

	cancelled, err := f.invoiceSvc.Cancel(ctx, "INV-6001")
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	balance, err := f.ledgerSvc.CurrentBalance(ctx, rep.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	after, err := f.collabRepo.FindByID(ctx, f.db, collab.ID)
	require.NoError(t, err)
	assert.Zero(t, after.CurrentEarnings)
	assert.Zero(t, after.TotalEarnings)

	var kinds []string
	require.NoError(t, f.db.Model(&commissiondomain.Record{}).
		Where("invoice_id = ?", created.ID).
		Order("created_at asc").
		Pluck("kind", &kinds).Error)
	assert.Equal(t, []string{"accrual", "reversal"}, kinds)

	// Cancelling again is a no-op.
	again, err := f.invoiceSvc.Cancel(ctx, "INV-6001")
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusCancelled, again.Status)
}

func TestCancel_PaidInvoiceRejected(t *testing.T) {
	f := newFixture(t, "invoice_cancel_paid")
	ctx := context.Background()

	rep := f.seedRepresentative(t, "r-1", nil)

	_, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-7001",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 1, UnitPrice: 1000},
		},
	})
	require.NoError(t, err)

	_, err = f.invoiceSvc.RecordPayment(ctx, invoicedomain.RecordPaymentRequest{
		InvoiceNo: "INV-7001",
		Amount:    1000,
	})
	require.NoError(t, err)

	_, err = f.invoiceSvc.Cancel(ctx, "INV-7001")
	assert.ErrorIs(t, err, invoicedomain.ErrCannotCancelPaid)
}

func TestCancel_SettledCommissionBlocksCancellation(t *testing.T) {
	f := newFixture(t, "invoice_cancel_settled")
	ctx := context.Background()

	collab := f.seedCollaborator(t, "c-1", 10)
	rep := f.seedRepresentative(t, "r-1", &collab.ID)

	_, err := f.invoiceSvc.Create(ctx, invoicedomain.CreateRequest{
		InvoiceNo:          "INV-8001",
		RepresentativeCode: rep.Code,
		DueDate:            f.clock.Now().AddDate(0, 0, 14),
		Items: []invoicedomain.ItemRequest{
			{ServiceClass: "limited", DurationMonths: 3, Quantity: 10, UnitPrice: 1000},
		},
	})
	require.NoError(t, err)

	// Pay the collaborator out before the invoice is cancelled.
	applied, err := f.collabRepo.ApplyPayout(ctx, f.db, collab.ID, 1000)
	require.NoError(t, err)
	require.True(t, applied)

	_, err = f.invoiceSvc.Cancel(ctx, "INV-8001")
	assert.ErrorIs(t, err, commissiondomain.ErrCommissionSettled)

	// The failed cancellation must not have flipped the invoice.
	inv, err := f.invoiceSvc.GetByNo(ctx, "INV-8001")
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPending, inv.Status)
}

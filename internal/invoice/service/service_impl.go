package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/parsbill/parsbill/internal/clock"
	commissiondomain "github.com/parsbill/parsbill/internal/commission/domain"
	"github.com/parsbill/parsbill/internal/config"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	ledgerdomain "github.com/parsbill/parsbill/internal/ledger/domain"
	obsmetrics "github.com/parsbill/parsbill/internal/observability/metrics"
	pricingdomain "github.com/parsbill/parsbill/internal/pricing/domain"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/parsbill/parsbill/internal/stats"
	"github.com/parsbill/parsbill/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxCreateAttempts = 5

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     *config.BillingConfigHolder
	Repo       invoicedomain.Repository
	RepRepo    representativedomain.Repository
	Pricing    pricingdomain.Service
	Ledger     ledgerdomain.Service
	Commission commissiondomain.Service
	Stats      *stats.Service      `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	config     *config.BillingConfigHolder
	repo       invoicedomain.Repository
	repRepo    representativedomain.Repository
	pricing    pricingdomain.Service
	ledger     ledgerdomain.Service
	commission commissiondomain.Service
	stats      *stats.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) invoicedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		config:     p.Config,
		repo:       p.Repo,
		repRepo:    p.RepRepo,
		pricing:    p.Pricing,
		ledger:     p.Ledger,
		commission: p.Commission,
		stats:      p.Stats,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateRequest) (invoicedomain.Invoice, error) {
	req.InvoiceNo = strings.TrimSpace(req.InvoiceNo)
	if req.InvoiceNo == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceNo
	}
	if len(req.Items) == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidItems
	}
	if req.DiscountAmount < 0 || req.TaxAmount < 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidAmount
	}

	rep, err := s.repRepo.FindByCode(ctx, s.db, strings.TrimSpace(req.RepresentativeCode))
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if rep == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrRepresentativeMissing
	}

	now := s.clock.Now()
	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = now
	}
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = issueDate.AddDate(0, 0, s.config.Get().Overdue.GraceDays)
	}
	if dueDate.Before(issueDate) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidDates
	}

	items, baseAmount, err := s.buildItems(ctx, rep, req.Items)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	totalAmount := baseAmount - req.DiscountAmount + req.TaxAmount
	if totalAmount <= 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidAmount
	}

	var created invoicedomain.Invoice
	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.createInTx(ctx, tx, rep, req, issueDate, dueDate, items, baseAmount, totalAmount, &created)
		})
		if err == nil {
			break
		}
		if errors.Is(err, ledgerdomain.ErrLedgerConflict) && attempt < maxCreateAttempts {
			s.log.Debug("invoice create lost ledger race, retrying",
				zap.String("invoice_no", req.InvoiceNo),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return invoicedomain.Invoice{}, err
	}

	s.invalidateStats()
	return created, nil
}

// invalidateStats drops the cached overview so reads reflect the mutation
// before the TTL lapses.
func (s *Service) invalidateStats() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}

func (s *Service) createInTx(
	ctx context.Context,
	tx *gorm.DB,
	rep *representativedomain.Representative,
	req invoicedomain.CreateRequest,
	issueDate, dueDate time.Time,
	items []invoicedomain.Item,
	baseAmount, totalAmount int64,
	out *invoicedomain.Invoice,
) error {
	now := s.clock.Now()
	invoice := invoicedomain.Invoice{
		ID:               s.genID.Generate(),
		InvoiceNo:        req.InvoiceNo,
		RepresentativeID: rep.ID,
		BatchID:          req.BatchID,
		Status:           invoicedomain.StatusPending,
		BaseAmount:       baseAmount,
		DiscountAmount:   req.DiscountAmount,
		TaxAmount:        req.TaxAmount,
		TotalAmount:      totalAmount,
		IssueDate:        issueDate,
		DueDate:          dueDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	inserted, err := s.repo.Insert(ctx, tx, &invoice)
	if err != nil {
		return err
	}
	if !inserted {
		existing, err := s.repo.FindByNo(ctx, tx, req.InvoiceNo)
		if err != nil {
			return err
		}
		if existing == nil {
			// The conflicting row is not visible yet; let the caller retry.
			return ledgerdomain.ErrLedgerConflict
		}
		if existing.RepresentativeID != rep.ID {
			return invoicedomain.ErrDuplicateInvoice
		}
		s.log.Info("invoice create replayed",
			zap.String("invoice_no", req.InvoiceNo),
			zap.String("invoice_id", existing.ID.String()),
		)
		existing.Items, err = s.repo.LoadItems(ctx, tx, existing.ID)
		if err != nil {
			return err
		}
		*out = *existing
		return nil
	}

	for i := range items {
		items[i].ID = s.genID.Generate()
		items[i].InvoiceID = invoice.ID
		items[i].CreatedAt = now
	}
	if err := s.repo.InsertItems(ctx, tx, items); err != nil {
		return err
	}

	if _, err := s.ledger.AppendInTx(ctx, tx, ledgerdomain.AppendRequest{
		RepresentativeID: rep.ID,
		Type:             ledgerdomain.EntryTypeInvoice,
		Amount:           totalAmount,
		SourceType:       ledgerdomain.SourceTypeInvoice,
		SourceID:         invoice.ID,
		OccurredAt:       issueDate,
	}); err != nil {
		return err
	}

	// Commission applies to the base revenue, before discounts and tax.
	if _, err := s.commission.AccrueInTx(ctx, tx, rep, invoice.ID, baseAmount); err != nil {
		return err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.InvoicesCreated.Inc()
	}
	s.log.Info("invoice created",
		zap.String("invoice_no", invoice.InvoiceNo),
		zap.String("representative_id", rep.ID.String()),
		zap.Int64("total_amount", totalAmount),
	)

	invoice.Items = items
	*out = invoice
	return nil
}

func (s *Service) buildItems(ctx context.Context, rep *representativedomain.Representative, reqs []invoicedomain.ItemRequest) ([]invoicedomain.Item, int64, error) {
	items := make([]invoicedomain.Item, 0, len(reqs))
	var total int64
	for _, it := range reqs {
		class, err := pricingdomain.ParseServiceClass(it.ServiceClass)
		if err != nil {
			return nil, 0, err
		}
		if it.Quantity <= 0 {
			return nil, 0, invoicedomain.ErrInvalidItems
		}

		unitPrice := it.UnitPrice
		if unitPrice <= 0 {
			unitPrice, err = s.pricing.ResolveUnitPrice(ctx, rep, class, it.DurationMonths)
			if err != nil {
				return nil, 0, err
			}
		}

		lineTotal := unitPrice * it.Quantity
		items = append(items, invoicedomain.Item{
			ServiceClass:   class,
			DurationMonths: it.DurationMonths,
			Quantity:       it.Quantity,
			UnitPrice:      unitPrice,
			LineTotal:      lineTotal,
			Description:    it.Description,
		})
		total += lineTotal
	}
	if total <= 0 {
		return nil, 0, invoicedomain.ErrInvalidItems
	}
	return items, total, nil
}

func (s *Service) GetByNo(ctx context.Context, invoiceNo string) (invoicedomain.Invoice, error) {
	invoice, err := s.repo.FindByNo(ctx, s.db, strings.TrimSpace(invoiceNo))
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
	}
	if invoice.Items, err = s.repo.LoadItems(ctx, s.db, invoice.ID); err != nil {
		return invoicedomain.Invoice{}, err
	}
	if invoice.Payments, err = s.repo.LoadPayments(ctx, s.db, invoice.ID); err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListRequest) (invoicedomain.ListResponse, error) {
	filter := invoicedomain.ListFilter{
		Status:     req.Status,
		IssuedFrom: req.IssuedFrom,
		IssuedTo:   req.IssuedTo,
	}
	if code := strings.TrimSpace(req.RepresentativeCode); code != "" {
		rep, err := s.repRepo.FindByCode(ctx, s.db, code)
		if err != nil {
			return invoicedomain.ListResponse{}, err
		}
		if rep == nil {
			return invoicedomain.ListResponse{}, invoicedomain.ErrRepresentativeMissing
		}
		filter.RepresentativeID = &rep.ID
	}

	limit := req.PageSize
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  limit,
	})
	if err != nil {
		return invoicedomain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(rows, limit, func(inv *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(rows) > limit {
		rows = rows[:limit]
	}

	invoices := make([]invoicedomain.Invoice, 0, len(rows))
	for _, row := range rows {
		invoices = append(invoices, *row)
	}

	resp := invoicedomain.ListResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) RecordPayment(ctx context.Context, req invoicedomain.RecordPaymentRequest) (invoicedomain.Invoice, error) {
	req.InvoiceNo = strings.TrimSpace(req.InvoiceNo)
	if req.InvoiceNo == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceNo
	}
	if req.Amount <= 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidAmount
	}

	var updated invoicedomain.Invoice
	for attempt := 1; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.recordPaymentInTx(ctx, tx, req, &updated)
		})
		if err == nil {
			s.invalidateStats()
			return updated, nil
		}
		if errors.Is(err, ledgerdomain.ErrLedgerConflict) && attempt < maxCreateAttempts {
			continue
		}
		return invoicedomain.Invoice{}, err
	}
}

func (s *Service) recordPaymentInTx(ctx context.Context, tx *gorm.DB, req invoicedomain.RecordPaymentRequest, out *invoicedomain.Invoice) error {
	invoice, err := s.repo.FindByNo(ctx, tx, req.InvoiceNo)
	if err != nil {
		return err
	}
	if invoice == nil {
		return invoicedomain.ErrNotFound
	}
	if invoice.Status == invoicedomain.StatusCancelled {
		return invoicedomain.ErrAlreadyCancelled
	}

	now := s.clock.Now()
	paidAt := req.PaidAt
	if paidAt.IsZero() {
		paidAt = now
	}

	payment := invoicedomain.Payment{
		ID:               s.genID.Generate(),
		InvoiceID:        invoice.ID,
		RepresentativeID: invoice.RepresentativeID,
		Amount:           req.Amount,
		Method:           req.Method,
		Reference:        req.Reference,
		Note:             req.Note,
		PaidAt:           paidAt,
		CreatedAt:        now,
	}
	if err := s.repo.InsertPayment(ctx, tx, &payment); err != nil {
		return err
	}

	if _, err := s.ledger.AppendInTx(ctx, tx, ledgerdomain.AppendRequest{
		RepresentativeID: invoice.RepresentativeID,
		Type:             ledgerdomain.EntryTypePayment,
		Amount:           -req.Amount,
		SourceType:       ledgerdomain.SourceTypePayment,
		SourceID:         payment.ID,
		OccurredAt:       paidAt,
	}); err != nil {
		return err
	}

	invoice, err = s.repo.ApplyPayment(ctx, tx, invoice.ID, req.Amount)
	if err != nil {
		return err
	}

	switch {
	case invoice.PaidAmount >= invoice.TotalAmount:
		ok, err := s.repo.UpdateStatus(ctx, tx, invoice.ID,
			[]invoicedomain.Status{invoicedomain.StatusPending, invoicedomain.StatusOverdue},
			invoicedomain.StatusPaid, now,
		)
		if err != nil {
			return err
		}
		if !ok && invoice.Status != invoicedomain.StatusPaid {
			// The invoice left the payable states between the amount update
			// and the flip; only a concurrent cancellation does that.
			return invoicedomain.ErrAlreadyCancelled
		}
		if invoice.PaidAmount > invoice.TotalAmount {
			s.log.Warn("invoice overpaid",
				zap.String("invoice_no", invoice.InvoiceNo),
				zap.Int64("total_amount", invoice.TotalAmount),
				zap.Int64("paid_amount", invoice.PaidAmount),
			)
		}
	case invoice.Status == invoicedomain.StatusOverdue && s.config.Get().Overdue.RevertOnPartialPayment:
		if _, err := s.repo.UpdateStatus(ctx, tx, invoice.ID,
			[]invoicedomain.Status{invoicedomain.StatusOverdue},
			invoicedomain.StatusPending, now,
		); err != nil {
			return err
		}
	}

	invoice, err = s.repo.FindByID(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.PaymentsRecorded.Inc()
	}
	s.log.Info("payment recorded",
		zap.String("invoice_no", invoice.InvoiceNo),
		zap.Int64("amount", req.Amount),
		zap.String("status", string(invoice.Status)),
	)

	*out = *invoice
	return nil
}

func (s *Service) Cancel(ctx context.Context, invoiceNo string) (invoicedomain.Invoice, error) {
	invoiceNo = strings.TrimSpace(invoiceNo)
	if invoiceNo == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidInvoiceNo
	}

	var cancelled invoicedomain.Invoice
	for attempt := 1; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.cancelInTx(ctx, tx, invoiceNo, &cancelled)
		})
		if err == nil {
			s.invalidateStats()
			return cancelled, nil
		}
		if errors.Is(err, ledgerdomain.ErrLedgerConflict) && attempt < maxCreateAttempts {
			continue
		}
		return invoicedomain.Invoice{}, err
	}
}

func (s *Service) cancelInTx(ctx context.Context, tx *gorm.DB, invoiceNo string, out *invoicedomain.Invoice) error {
	invoice, err := s.repo.FindByNo(ctx, tx, invoiceNo)
	if err != nil {
		return err
	}
	if invoice == nil {
		return invoicedomain.ErrNotFound
	}
	switch invoice.Status {
	case invoicedomain.StatusPaid:
		return invoicedomain.ErrCannotCancelPaid
	case invoicedomain.StatusCancelled:
		*out = *invoice
		return nil
	}

	now := s.clock.Now()

	if _, err := s.ledger.AppendInTx(ctx, tx, ledgerdomain.AppendRequest{
		RepresentativeID: invoice.RepresentativeID,
		Type:             ledgerdomain.EntryTypeInvoice,
		Amount:           -invoice.TotalAmount,
		SourceType:       ledgerdomain.SourceTypeInvoiceCancellation,
		SourceID:         invoice.ID,
		OccurredAt:       now,
	}); err != nil {
		return err
	}

	if _, err := s.commission.ReverseInTx(ctx, tx, invoice.ID); err != nil {
		return err
	}

	ok, err := s.repo.UpdateStatus(ctx, tx, invoice.ID,
		[]invoicedomain.Status{invoicedomain.StatusPending, invoicedomain.StatusOverdue},
		invoicedomain.StatusCancelled, now,
	)
	if err != nil {
		return err
	}
	if !ok {
		return invoicedomain.ErrCannotCancelPaid
	}

	invoice, err = s.repo.FindByID(ctx, tx, invoice.ID)
	if err != nil {
		return err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.InvoicesCancelled.Inc()
	}
	s.log.Info("invoice cancelled",
		zap.String("invoice_no", invoice.InvoiceNo),
		zap.Int64("total_amount", invoice.TotalAmount),
	)

	*out = *invoice
	return nil
}

func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	flipped, err := s.repo.MarkOverdueBefore(ctx, s.db, asOf)
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		s.invalidateStats()
		s.log.Info("invoices marked overdue",
			zap.Int64("count", flipped),
			zap.Time("as_of", asOf),
		)
	}
	return flipped, nil
}

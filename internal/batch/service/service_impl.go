package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	batchdomain "github.com/parsbill/parsbill/internal/batch/domain"
	"github.com/parsbill/parsbill/internal/clock"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	obsmetrics "github.com/parsbill/parsbill/internal/observability/metrics"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// rowTimeout bounds a single row so one wedged insert cannot stall the run.
const rowTimeout = 10 * time.Second

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Invoices   invoicedomain.Service
	Reps       representativedomain.Service
	CollabRepo collaboratordomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	validate   *validator.Validate
	invoices   invoicedomain.Service
	reps       representativedomain.Service
	collabRepo collaboratordomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) batchdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("batch.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		validate:   validator.New(),
		invoices:   p.Invoices,
		reps:       p.Reps,
		collabRepo: p.CollabRepo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) ProcessInvoices(ctx context.Context, fileName string, rows []batchdomain.InvoiceRow) (batchdomain.Report, error) {
	if len(rows) == 0 {
		return batchdomain.Report{}, batchdomain.ErrEmptyBatch
	}

	batch, err := s.openBatch(ctx, batchdomain.KindInvoices, fileName, len(rows))
	if err != nil {
		return batchdomain.Report{}, err
	}

	report := batchdomain.Report{
		BatchID: batch.ID,
		Kind:    batchdomain.KindInvoices,
		Total:   len(rows),
	}
	for i, row := range rows {
		rowNo := i + 2 // 1-based, after the header row
		created, err := s.processInvoiceRow(ctx, batch.ID, row)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, batchdomain.RowError{Row: rowNo, Message: err.Error()})
			s.countRow(batchdomain.KindInvoices, "failed")
			continue
		}
		report.Succeeded++
		report.TotalAmount += created.TotalAmount
		s.countRow(batchdomain.KindInvoices, "ok")
	}

	if err := s.closeBatch(ctx, batch, report); err != nil {
		return batchdomain.Report{}, err
	}
	return report, nil
}

func (s *Service) processInvoiceRow(ctx context.Context, batchID snowflake.ID, row batchdomain.InvoiceRow) (invoicedomain.Invoice, error) {
	if err := s.validate.Struct(row); err != nil {
		return invoicedomain.Invoice{}, err
	}

	rowCtx, cancel := context.WithTimeout(ctx, rowTimeout)
	defer cancel()

	return s.invoices.Create(rowCtx, invoicedomain.CreateRequest{
		InvoiceNo:          row.InvoiceNo,
		RepresentativeCode: row.RepresentativeCode,
		IssueDate:          row.IssueDate,
		DueDate:            row.DueDate,
		DiscountAmount:     row.DiscountAmount,
		TaxAmount:          row.TaxAmount,
		BatchID:            &batchID,
		Items: []invoicedomain.ItemRequest{{
			ServiceClass:   row.ServiceClass,
			DurationMonths: row.DurationMonths,
			Quantity:       row.Quantity,
			UnitPrice:      row.UnitPrice,
			Description:    row.Description,
		}},
	})
}

func (s *Service) ProcessRepresentatives(ctx context.Context, fileName string, rows []batchdomain.RepresentativeRow) (batchdomain.Report, error) {
	if len(rows) == 0 {
		return batchdomain.Report{}, batchdomain.ErrEmptyBatch
	}

	batch, err := s.openBatch(ctx, batchdomain.KindRepresentatives, fileName, len(rows))
	if err != nil {
		return batchdomain.Report{}, err
	}

	report := batchdomain.Report{
		BatchID: batch.ID,
		Kind:    batchdomain.KindRepresentatives,
		Total:   len(rows),
	}
	for i, row := range rows {
		rowNo := i + 2
		if err := s.processRepresentativeRow(ctx, row); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, batchdomain.RowError{Row: rowNo, Message: err.Error()})
			s.countRow(batchdomain.KindRepresentatives, "failed")
			continue
		}
		report.Succeeded++
		s.countRow(batchdomain.KindRepresentatives, "ok")
	}

	if err := s.closeBatch(ctx, batch, report); err != nil {
		return batchdomain.Report{}, err
	}
	return report, nil
}

func (s *Service) processRepresentativeRow(ctx context.Context, row batchdomain.RepresentativeRow) error {
	if err := s.validate.Struct(row); err != nil {
		return err
	}

	rowCtx, cancel := context.WithTimeout(ctx, rowTimeout)
	defer cancel()

	req := representativedomain.CreateRequest{
		Code:         row.Code,
		Name:         row.Name,
		Phone:        row.Phone,
		TelegramID:   row.TelegramID,
		SourcingType: row.SourcingType,
		PriceTable: representativedomain.PriceTable{
			Limited1M: row.Limited[0], Limited2M: row.Limited[1], Limited3M: row.Limited[2],
			Limited4M: row.Limited[3], Limited5M: row.Limited[4], Limited6M: row.Limited[5],
			Unlimited1M: row.Unlimited[0], Unlimited2M: row.Unlimited[1], Unlimited3M: row.Unlimited[2],
			Unlimited4M: row.Unlimited[3], Unlimited5M: row.Unlimited[4], Unlimited6M: row.Unlimited[5],
		},
	}
	if row.CollaboratorCode != "" {
		collab, err := s.collabRepo.FindByCode(rowCtx, s.db, row.CollaboratorCode)
		if err != nil {
			return err
		}
		if collab == nil {
			return collaboratordomain.ErrNotFound
		}
		req.CollaboratorID = collab.ID.String()
	}
	if row.CommissionOverride > 0 {
		override := decimal.NewFromFloat(row.CommissionOverride)
		req.CommissionOverride = &override
	}

	_, err := s.reps.Create(rowCtx, req)
	return err
}

func (s *Service) GetBatch(ctx context.Context, id string) (batchdomain.Batch, error) {
	batchID, err := snowflake.ParseString(id)
	if err != nil {
		return batchdomain.Batch{}, batchdomain.ErrInvalidID
	}

	var batch batchdomain.Batch
	err = s.db.WithContext(ctx).
		Where("id = ?", batchID).
		Limit(1).
		Find(&batch).Error
	if err != nil {
		return batchdomain.Batch{}, err
	}
	if batch.ID == 0 {
		return batchdomain.Batch{}, batchdomain.ErrBatchNotFound
	}
	return batch, nil
}

func (s *Service) ListBatches(ctx context.Context) ([]batchdomain.Batch, error) {
	var batches []batchdomain.Batch
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(100).
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	return batches, nil
}

func (s *Service) openBatch(ctx context.Context, kind batchdomain.Kind, fileName string, total int) (*batchdomain.Batch, error) {
	batch := batchdomain.Batch{
		ID:        s.genID.Generate(),
		Kind:      kind,
		FileName:  fileName,
		Status:    batchdomain.StatusProcessing,
		TotalRows: total,
		CreatedAt: s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&batch).Error; err != nil {
		return nil, err
	}
	s.log.Info("batch started",
		zap.String("batch_id", batch.ID.String()),
		zap.String("kind", string(kind)),
		zap.Int("rows", total),
	)
	return &batch, nil
}

func (s *Service) closeBatch(ctx context.Context, batch *batchdomain.Batch, report batchdomain.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	// A run succeeds when at least one row made it in.
	status := batchdomain.StatusCompleted
	if report.Succeeded == 0 {
		status = batchdomain.StatusFailed
	}
	now := s.clock.Now()
	err = s.db.WithContext(ctx).
		Model(&batchdomain.Batch{}).
		Where("id = ?", batch.ID).
		Updates(map[string]any{
			"status":         status,
			"succeeded_rows": report.Succeeded,
			"failed_rows":    report.Failed,
			"total_amount":   report.TotalAmount,
			"report":         raw,
			"completed_at":   now,
		}).Error
	if err != nil {
		return err
	}
	s.log.Info("batch finished",
		zap.String("batch_id", batch.ID.String()),
		zap.String("status", string(status)),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return nil
}

func (s *Service) countRow(kind batchdomain.Kind, outcome string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.BatchRows.WithLabelValues(string(kind), outcome).Inc()
}

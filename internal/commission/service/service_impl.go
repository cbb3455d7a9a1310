package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	commissiondomain "github.com/parsbill/parsbill/internal/commission/domain"
	"github.com/parsbill/parsbill/internal/config"
	obsmetrics "github.com/parsbill/parsbill/internal/observability/metrics"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var hundred = decimal.NewFromInt(100)

// recordConflictClause skips the write when a record of the same kind already
// exists for the invoice. A failed INSERT would abort the enclosing
// transaction on PostgreSQL, so the duplicate must never reach the constraint.
var recordConflictClause = clause.OnConflict{
	Columns: []clause.Column{
		{Name: "invoice_id"},
		{Name: "collaborator_id"},
		{Name: "kind"},
	},
	DoNothing: true,
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Config     *config.BillingConfigHolder
	CollabRepo collaboratordomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	config     *config.BillingConfigHolder
	collabRepo collaboratordomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) commissiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("commission.service"),
		genID:      p.GenID,
		config:     p.Config,
		collabRepo: p.CollabRepo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) AccrueInTx(ctx context.Context, tx *gorm.DB, rep *representativedomain.Representative, invoiceID snowflake.ID, baseAmount int64) (*commissiondomain.Record, error) {
	if rep == nil || rep.SourcingType != representativedomain.SourcingCollaborator || rep.CollaboratorID == nil {
		return nil, nil
	}
	if baseAmount <= 0 {
		return nil, commissiondomain.ErrInvalidBaseAmount
	}

	collab, err := s.collabRepo.FindByID(ctx, tx, *rep.CollaboratorID)
	if err != nil {
		return nil, err
	}
	if collab == nil {
		return nil, commissiondomain.ErrInvalidCollaborator
	}

	rate, method := s.resolveRate(rep, collab)
	amount := commissionAmount(baseAmount, rate)

	record := commissiondomain.Record{
		ID:             s.genID.Generate(),
		InvoiceID:      invoiceID,
		CollaboratorID: collab.ID,
		Kind:           commissiondomain.KindAccrual,
		Method:         method,
		RatePercent:    rate,
		BaseAmount:     baseAmount,
		Amount:         amount,
		CreatedAt:      time.Now().UTC(),
	}

	result := tx.WithContext(ctx).Clauses(recordConflictClause).Create(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// Already accrued for this invoice; replay the stored record.
		return s.findRecord(ctx, tx, invoiceID, collab.ID, commissiondomain.KindAccrual)
	}

	if err := s.collabRepo.AccrueEarnings(ctx, tx, collab.ID, amount); err != nil {
		return nil, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.CommissionRecords.WithLabelValues(string(commissiondomain.KindAccrual)).Inc()
	}
	s.log.Info("commission accrued",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("collaborator_id", collab.ID.String()),
		zap.String("rate_percent", rate.String()),
		zap.Int64("amount", amount),
	)
	return &record, nil
}

func (s *Service) ReverseInTx(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (*commissiondomain.Record, error) {
	var accrual commissiondomain.Record
	err := tx.WithContext(ctx).
		Where("invoice_id = ? AND kind = ?", invoiceID, commissiondomain.KindAccrual).
		First(&accrual).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	reversal := commissiondomain.Record{
		ID:             s.genID.Generate(),
		InvoiceID:      invoiceID,
		CollaboratorID: accrual.CollaboratorID,
		Kind:           commissiondomain.KindReversal,
		Method:         accrual.Method,
		RatePercent:    accrual.RatePercent,
		BaseAmount:     accrual.BaseAmount,
		Amount:         -accrual.Amount,
		CreatedAt:      time.Now().UTC(),
	}

	result := tx.WithContext(ctx).Clauses(recordConflictClause).Create(&reversal)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return s.findRecord(ctx, tx, invoiceID, accrual.CollaboratorID, commissiondomain.KindReversal)
	}

	ok, err := s.collabRepo.ReverseEarnings(ctx, tx, accrual.CollaboratorID, accrual.Amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The earnings were already paid out; the reversal cannot be funded.
		return nil, commissiondomain.ErrCommissionSettled
	}

	if s.obsMetrics != nil {
		s.obsMetrics.CommissionRecords.WithLabelValues(string(commissiondomain.KindReversal)).Inc()
	}
	s.log.Info("commission reversed",
		zap.String("invoice_id", invoiceID.String()),
		zap.String("collaborator_id", accrual.CollaboratorID.String()),
		zap.Int64("amount", accrual.Amount),
	)
	return &reversal, nil
}

func (s *Service) ListByCollaborator(ctx context.Context, collaboratorID snowflake.ID) ([]commissiondomain.Record, error) {
	if collaboratorID == 0 {
		return nil, commissiondomain.ErrInvalidCollaborator
	}
	var records []commissiondomain.Record
	err := s.db.WithContext(ctx).
		Where("collaborator_id = ?", collaboratorID).
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]commissiondomain.Record, error) {
	var records []commissiondomain.Record
	err := s.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// resolveRate prefers the representative's override; otherwise the
// collaborator's own percentage, falling back to the configured default when
// that is unset.
func (s *Service) resolveRate(rep *representativedomain.Representative, collab *collaboratordomain.Collaborator) (decimal.Decimal, commissiondomain.Method) {
	if rep.CommissionOverride.Valid {
		return rep.CommissionOverride.Decimal, commissiondomain.MethodManual
	}
	if collab.CommissionPercent.IsPositive() {
		return collab.CommissionPercent, commissiondomain.MethodAutomatic
	}
	cfg := s.config.Get()
	return decimal.NewFromFloat(cfg.Commission.DefaultPercent), commissiondomain.MethodAutomatic
}

func commissionAmount(base int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(base).Mul(rate).Div(hundred).Round(0).IntPart()
}

func (s *Service) findRecord(ctx context.Context, tx *gorm.DB, invoiceID, collaboratorID snowflake.ID, kind commissiondomain.Kind) (*commissiondomain.Record, error) {
	var existing commissiondomain.Record
	err := tx.WithContext(ctx).
		Where("invoice_id = ? AND collaborator_id = ? AND kind = ?", invoiceID, collaboratorID, kind).
		First(&existing).Error
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

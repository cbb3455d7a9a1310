package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/parsbill/parsbill/internal/collaborator/domain"
	obsmetrics "github.com/parsbill/parsbill/internal/observability/metrics"
	"github.com/parsbill/parsbill/internal/stats"
	"github.com/parsbill/parsbill/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Stats      *stats.Service      `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	stats      *stats.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("collaborator.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		stats:      p.Stats,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Collaborator, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return domain.Collaborator{}, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Collaborator{}, domain.ErrInvalidName
	}
	if req.CommissionPercent.IsNegative() || req.CommissionPercent.GreaterThan(hundred) {
		return domain.Collaborator{}, domain.ErrInvalidPercent
	}

	now := time.Now().UTC()
	collaborator := domain.Collaborator{
		ID:                s.genID.Generate(),
		Code:              code,
		Name:              name,
		Phone:             strings.TrimSpace(req.Phone),
		TelegramID:        strings.TrimSpace(req.TelegramID),
		CommissionPercent: req.CommissionPercent,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Insert(ctx, s.db, &collaborator); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Collaborator{}, domain.ErrDuplicateCode
		}
		return domain.Collaborator{}, err
	}

	s.invalidateStats()
	return collaborator, nil
}

// invalidateStats drops the cached overview so reads reflect the mutation
// before the TTL lapses.
func (s *Service) invalidateStats() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Collaborator, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Collaborator{}, err
	}

	collaborator, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Collaborator{}, err
	}
	if collaborator == nil {
		return domain.Collaborator{}, domain.ErrNotFound
	}
	return *collaborator, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Collaborator, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) RecordPayout(ctx context.Context, req domain.RecordPayoutRequest) (domain.Payout, error) {
	id, err := parseID(req.CollaboratorID)
	if err != nil {
		return domain.Payout{}, err
	}
	if req.Amount <= 0 {
		return domain.Payout{}, domain.ErrInvalidAmount
	}

	collaborator, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Payout{}, err
	}
	if collaborator == nil {
		return domain.Payout{}, domain.ErrNotFound
	}

	payout := domain.Payout{
		ID:             s.genID.Generate(),
		CollaboratorID: id,
		Amount:         req.Amount,
		Reference:      uuid.NewString(),
		Note:           strings.TrimSpace(req.Note),
		CreatedAt:      time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		applied, err := s.repo.ApplyPayout(ctx, tx, id, req.Amount)
		if err != nil {
			return err
		}
		if !applied {
			return domain.ErrInsufficientPayoutBalance
		}
		return s.repo.InsertPayout(ctx, tx, &payout)
	})
	if err != nil {
		return domain.Payout{}, err
	}

	s.invalidateStats()
	if s.obsMetrics != nil {
		s.obsMetrics.PayoutsRecorded.Inc()
	}
	s.log.Info("payout recorded",
		zap.String("collaborator_id", id.String()),
		zap.Int64("amount", req.Amount),
		zap.String("reference", payout.Reference),
	)

	return payout, nil
}

func (s *Service) ListPayouts(ctx context.Context, collaboratorID string) ([]domain.Payout, error) {
	id, err := parseID(collaboratorID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListPayouts(ctx, s.db, id)
}

func parseID(raw string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, domain.ErrInvalidID
	}
	id, err := snowflake.ParseString(trimmed)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

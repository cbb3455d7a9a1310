package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	"github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/parsbill/parsbill/pkg/db"
	"github.com/parsbill/parsbill/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	CollabRepo collaboratordomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	collabRepo collaboratordomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("representative.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		collabRepo: p.CollabRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Representative, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return domain.Representative{}, domain.ErrInvalidCode
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Representative{}, domain.ErrInvalidName
	}

	sourcing, err := normalizeSourcing(req.SourcingType)
	if err != nil {
		return domain.Representative{}, err
	}

	var collaboratorID *snowflake.ID
	switch sourcing {
	case domain.SourcingCollaborator:
		raw := strings.TrimSpace(req.CollaboratorID)
		if raw == "" {
			return domain.Representative{}, domain.ErrInvalidCollaborator
		}
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.Representative{}, domain.ErrInvalidCollaborator
		}
		collaborator, err := s.collabRepo.FindByID(ctx, s.db, id)
		if err != nil {
			return domain.Representative{}, err
		}
		if collaborator == nil {
			return domain.Representative{}, domain.ErrInvalidCollaborator
		}
		collaboratorID = &id
	case domain.SourcingDirect:
		if strings.TrimSpace(req.CollaboratorID) != "" {
			return domain.Representative{}, domain.ErrInvalidCollaborator
		}
	}

	if err := validatePriceTable(req.PriceTable); err != nil {
		return domain.Representative{}, err
	}

	override := decimal.NullDecimal{}
	if req.CommissionOverride != nil {
		if req.CommissionOverride.IsNegative() || req.CommissionOverride.GreaterThan(hundred) {
			return domain.Representative{}, domain.ErrInvalidOverride
		}
		override = decimal.NullDecimal{Decimal: *req.CommissionOverride, Valid: true}
	}

	now := time.Now().UTC()
	representative := domain.Representative{
		ID:                 s.genID.Generate(),
		Code:               code,
		Name:               name,
		Phone:              strings.TrimSpace(req.Phone),
		TelegramID:         strings.TrimSpace(req.TelegramID),
		Status:             domain.StatusActive,
		SourcingType:       sourcing,
		CollaboratorID:     collaboratorID,
		PriceTable:         req.PriceTable,
		CommissionOverride: override,
		Metadata:           datatypes.JSONMap{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, &representative); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Representative{}, domain.ErrDuplicateCode
		}
		return domain.Representative{}, err
	}

	return representative, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Representative, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Representative{}, err
	}

	representative, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Representative{}, err
	}
	if representative == nil {
		return domain.Representative{}, domain.ErrNotFound
	}
	return *representative, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (domain.Representative, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return domain.Representative{}, domain.ErrInvalidCode
	}

	representative, err := s.repo.FindByCode(ctx, s.db, trimmed)
	if err != nil {
		return domain.Representative{}, err
	}
	if representative == nil {
		return domain.Representative{}, domain.ErrNotFound
	}
	return *representative, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		Status:       domain.Status(strings.TrimSpace(req.Status)),
		SourcingType: domain.SourcingType(strings.TrimSpace(req.SourcingType)),
		CreatedFrom:  req.CreatedFrom,
		CreatedTo:    req.CreatedTo,
	}
	if raw := strings.TrimSpace(req.CollaboratorID); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidCollaborator
		}
		filter.CollaboratorID = &id
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(r *domain.Representative) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        r.ID.String(),
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	representatives := make([]domain.Representative, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		representatives = append(representatives, *item)
	}

	resp := domain.ListResponse{Representatives: representatives}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) UpdatePriceTable(ctx context.Context, id string, table domain.PriceTable) (domain.Representative, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Representative{}, err
	}
	if err := validatePriceTable(table); err != nil {
		return domain.Representative{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Representative{}, err
	}
	if existing == nil {
		return domain.Representative{}, domain.ErrNotFound
	}

	if err := s.repo.UpdatePriceTable(ctx, s.db, parsed, table); err != nil {
		return domain.Representative{}, err
	}

	existing.PriceTable = table
	return *existing, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status string) (domain.Representative, error) {
	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Representative{}, err
	}

	normalized := domain.Status(strings.ToLower(strings.TrimSpace(status)))
	switch normalized {
	case domain.StatusActive, domain.StatusInactive, domain.StatusSuspended:
	default:
		return domain.Representative{}, domain.ErrInvalidStatus
	}

	existing, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Representative{}, err
	}
	if existing == nil {
		return domain.Representative{}, domain.ErrNotFound
	}

	if err := s.repo.UpdateStatus(ctx, s.db, parsed, normalized); err != nil {
		return domain.Representative{}, err
	}

	s.log.Info("representative status changed",
		zap.String("representative_id", parsed.String()),
		zap.String("from", string(existing.Status)),
		zap.String("to", string(normalized)),
	)

	existing.Status = normalized
	return *existing, nil
}

func (s *Service) parseID(raw string) (snowflake.ID, error) {
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

func normalizeSourcing(raw string) (domain.SourcingType, error) {
	switch domain.SourcingType(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.SourcingCollaborator:
		return domain.SourcingCollaborator, nil
	case domain.SourcingDirect, "":
		return domain.SourcingDirect, nil
	default:
		return "", domain.ErrInvalidSourcing
	}
}

func validatePriceTable(table domain.PriceTable) error {
	for _, p := range table.Limited() {
		if p < 0 {
			return domain.ErrInvalidPriceTable
		}
	}
	for _, p := range table.Unlimited() {
		if p < 0 {
			return domain.ErrInvalidPriceTable
		}
	}
	return nil
}

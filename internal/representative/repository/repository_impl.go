package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/parsbill/parsbill/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, representative *domain.Representative) error {
	return db.WithContext(ctx).Create(representative).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Representative, error) {
	var representative domain.Representative
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&representative).Error
	if err != nil {
		return nil, err
	}
	if representative.ID == 0 {
		return nil, nil
	}
	return &representative, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Representative, error) {
	var representative domain.Representative
	err := db.WithContext(ctx).
		Where("code = ?", code).
		Limit(1).
		Find(&representative).Error
	if err != nil {
		return nil, err
	}
	if representative.ID == 0 {
		return nil, nil
	}
	return &representative, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Representative, error) {
	stmt := db.WithContext(ctx).Model(&domain.Representative{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.SourcingType != "" {
		stmt = stmt.Where("sourcing_type = ?", filter.SourcingType)
	}
	if filter.CollaboratorID != nil {
		stmt = stmt.Where("collaborator_id = ?", *filter.CollaboratorID)
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_at <= ?", *filter.CreatedTo)
	}

	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at, id) < (?, ?)", createdAt, id)
	}
	limit := page.PageSize
	if limit <= 0 {
		limit = 50
	}

	var representatives []*domain.Representative
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit + 1).
		Find(&representatives).Error
	if err != nil {
		return nil, err
	}
	return representatives, nil
}

func (r *repo) UpdatePriceTable(ctx context.Context, db *gorm.DB, id snowflake.ID, table domain.PriceTable) error {
	return db.WithContext(ctx).
		Model(&domain.Representative{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"limited_1m":   table.Limited1M,
			"limited_2m":   table.Limited2M,
			"limited_3m":   table.Limited3M,
			"limited_4m":   table.Limited4M,
			"limited_5m":   table.Limited5M,
			"limited_6m":   table.Limited6M,
			"unlimited_1m": table.Unlimited1M,
			"unlimited_2m": table.Unlimited2M,
			"unlimited_3m": table.Unlimited3M,
			"unlimited_4m": table.Unlimited4M,
			"unlimited_5m": table.Unlimited5M,
			"unlimited_6m": table.Unlimited6M,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) error {
	return db.WithContext(ctx).
		Model(&domain.Representative{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

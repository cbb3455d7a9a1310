package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/parsbill/parsbill/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status         Status
	SourcingType   SourcingType
	CollaboratorID *snowflake.ID
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, representative *Representative) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Representative, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Representative, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Representative, error)
	UpdatePriceTable(ctx context.Context, db *gorm.DB, id snowflake.ID, table PriceTable) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) error
}

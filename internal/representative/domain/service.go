package domain

import (
	"context"
	"errors"
	"time"

	"github.com/parsbill/parsbill/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Code               string
	Name               string
	Phone              string
	TelegramID         string
	SourcingType       string
	CollaboratorID     string
	PriceTable         PriceTable
	CommissionOverride *decimal.Decimal
}

type ListRequest struct {
	PageToken      string
	PageSize       int
	Status         string
	SourcingType   string
	CollaboratorID string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Representatives []Representative `json:"representatives"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Representative, error)
	GetByID(ctx context.Context, id string) (Representative, error)
	GetByCode(ctx context.Context, code string) (Representative, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	UpdatePriceTable(ctx context.Context, id string, table PriceTable) (Representative, error)
	UpdateStatus(ctx context.Context, id string, status string) (Representative, error)
}

var (
	ErrInvalidCode         = errors.New("invalid_code")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidSourcing     = errors.New("invalid_sourcing_type")
	ErrInvalidCollaborator = errors.New("invalid_collaborator")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidPriceTable   = errors.New("invalid_price_table")
	ErrInvalidOverride     = errors.New("invalid_commission_override")
	ErrInvalidID           = errors.New("invalid_id")
	ErrDuplicateCode       = errors.New("duplicate_code")
	ErrNotFound            = errors.New("not_found")
)

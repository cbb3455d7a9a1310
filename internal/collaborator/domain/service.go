package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Code              string
	Name              string
	Phone             string
	TelegramID        string
	CommissionPercent decimal.Decimal
}

type RecordPayoutRequest struct {
	CollaboratorID string
	Amount         int64
	Note           string
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Collaborator, error)
	GetByID(ctx context.Context, id string) (Collaborator, error)
	List(ctx context.Context) ([]Collaborator, error)
	RecordPayout(ctx context.Context, req RecordPayoutRequest) (Payout, error)
	ListPayouts(ctx context.Context, collaboratorID string) ([]Payout, error)
}

var (
	ErrInvalidCode               = errors.New("invalid_code")
	ErrInvalidName               = errors.New("invalid_name")
	ErrInvalidPercent            = errors.New("invalid_commission_percent")
	ErrInvalidID                 = errors.New("invalid_id")
	ErrInvalidAmount             = errors.New("invalid_amount")
	ErrNotFound                  = errors.New("not_found")
	ErrDuplicateCode             = errors.New("duplicate_code")
	ErrInsufficientPayoutBalance = errors.New("insufficient_payout_balance")
)

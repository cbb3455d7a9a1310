package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"gorm.io/gorm"
)

type Service interface {
	// AccrueInTx computes and books the commission for an invoice inside the
	// caller's transaction. Returns (nil, nil) when the representative has no
	// owning collaborator. A replay for an already-accrued invoice returns
	// the existing record and performs no writes.
	AccrueInTx(ctx context.Context, tx *gorm.DB, rep *representativedomain.Representative, invoiceID snowflake.ID, baseAmount int64) (*Record, error)

	// ReverseInTx books the compensating reversal for a previously accrued
	// invoice. Returns (nil, nil) when no accrual exists. Fails with
	// ErrCommissionSettled when the earnings have already been paid out.
	ReverseInTx(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (*Record, error)

	ListByCollaborator(ctx context.Context, collaboratorID snowflake.ID) ([]Record, error)
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Record, error)
}

var (
	ErrInvalidCollaborator = errors.New("invalid_collaborator")
	ErrInvalidBaseAmount   = errors.New("invalid_base_amount")
	ErrCommissionSettled   = errors.New("commission_settled")
)

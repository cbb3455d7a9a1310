package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, collaborator *Collaborator) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Collaborator, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Collaborator, error)
	List(ctx context.Context, db *gorm.DB) ([]Collaborator, error)

	// AccrueEarnings adds amount to current and lifetime earnings as a single
	// relative UPDATE so concurrent accruals for the same collaborator never
	// read a stale snapshot.
	AccrueEarnings(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) error

	// ReverseEarnings subtracts amount from current and lifetime earnings,
	// guarded so the unpaid balance cannot go negative. Returns false when the
	// guard rejects the update.
	ReverseEarnings(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) (bool, error)

	// ApplyPayout moves amount from current earnings to total payouts, guarded
	// the same way. Returns false when the balance is insufficient.
	ApplyPayout(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64) (bool, error)

	InsertPayout(ctx context.Context, db *gorm.DB, payout *Payout) error
	ListPayouts(ctx context.Context, db *gorm.DB, collaboratorID snowflake.ID) ([]Payout, error)
}

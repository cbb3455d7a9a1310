package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/parsbill/parsbill/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	RepresentativeID *snowflake.ID
	Status           string
	IssuedFrom       *time.Time
	IssuedTo         *time.Time
}

type Repository interface {
	// Insert writes the invoice, skipping the write when the invoice number
	// is already taken. Returns false on the conflict so the caller can
	// replay; a failed INSERT would poison the surrounding transaction on
	// PostgreSQL.
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) (bool, error)
	InsertItems(ctx context.Context, db *gorm.DB, items []Item) error
	FindByNo(ctx context.Context, db *gorm.DB, invoiceNo string) (*Invoice, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	LoadItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Item, error)
	LoadPayments(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Payment, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Invoice, error)

	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error

	// ApplyPayment adds amount to the invoice's paid total as a relative
	// UPDATE so concurrent payments never read a stale snapshot. Returns the
	// refreshed invoice row.
	ApplyPayment(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, amount int64) (*Invoice, error)

	// UpdateStatus transitions the invoice, guarded on the set of states the
	// transition is legal from. Returns false when the guard rejects it.
	UpdateStatus(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, from []Status, to Status, at time.Time) (bool, error)

	// MarkOverdueBefore flips every pending invoice whose due date has passed.
	// Returns the number of invoices flipped.
	MarkOverdueBefore(ctx context.Context, db *gorm.DB, asOf time.Time) (int64, error)
}

package domain

import (
	"context"
	"errors"
	"io"
	"time"
)

// InvoiceRow is one parsed spreadsheet row for an invoice import.
type InvoiceRow struct {
	InvoiceNo          string    `json:"invoice_no" validate:"required"`
	RepresentativeCode string    `json:"representative_code" validate:"required"`
	ServiceClass       string    `json:"service_class" validate:"required,oneof=limited unlimited"`
	DurationMonths     int       `json:"duration_months" validate:"required,gte=1,lte=6"`
	Quantity           int64     `json:"quantity" validate:"required,gt=0"`
	UnitPrice          int64     `json:"unit_price" validate:"gte=0"`
	DiscountAmount     int64     `json:"discount_amount" validate:"gte=0"`
	TaxAmount          int64     `json:"tax_amount" validate:"gte=0"`
	IssueDate          time.Time `json:"issue_date"`
	DueDate            time.Time `json:"due_date"`
	Description        string    `json:"description"`
}

// RepresentativeRow is one parsed spreadsheet row for a representative import.
type RepresentativeRow struct {
	Code               string  `json:"code" validate:"required"`
	Name               string  `json:"name" validate:"required"`
	Phone              string  `json:"phone"`
	TelegramID         string  `json:"telegram_id"`
	SourcingType       string  `json:"sourcing_type" validate:"omitempty,oneof=direct collaborator"`
	CollaboratorCode   string  `json:"collaborator_code" validate:"required_if=SourcingType collaborator"`
	CommissionOverride float64 `json:"commission_override" validate:"gte=0,lte=100"`

	Limited   [6]int64 `json:"limited" validate:"dive,gte=0"`
	Unlimited [6]int64 `json:"unlimited" validate:"dive,gte=0"`
}

type Service interface {
	// ProcessInvoices runs the import row by row. A failed row is recorded in
	// the report and the run continues.
	ProcessInvoices(ctx context.Context, fileName string, rows []InvoiceRow) (Report, error)
	ProcessRepresentatives(ctx context.Context, fileName string, rows []RepresentativeRow) (Report, error)

	// ReadInvoiceRows parses the xlsx sheet into rows, skipping the header.
	ReadInvoiceRows(r io.Reader) ([]InvoiceRow, error)
	ReadRepresentativeRows(r io.Reader) ([]RepresentativeRow, error)

	GetBatch(ctx context.Context, id string) (Batch, error)
	ListBatches(ctx context.Context) ([]Batch, error)
}

var (
	ErrEmptyBatch    = errors.New("empty_batch")
	ErrInvalidSheet  = errors.New("invalid_sheet")
	ErrInvalidID     = errors.New("invalid_id")
	ErrBatchNotFound = errors.New("batch_not_found")
)

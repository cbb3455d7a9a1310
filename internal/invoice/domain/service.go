package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/parsbill/parsbill/pkg/db/pagination"
)

type ItemRequest struct {
	ServiceClass   string `json:"service_class"`
	DurationMonths int    `json:"duration_months"`
	Quantity       int64  `json:"quantity"`
	// UnitPrice, when positive, bypasses price resolution for this line.
	UnitPrice   int64  `json:"unit_price,omitempty"`
	Description string `json:"description,omitempty"`
}

type CreateRequest struct {
	InvoiceNo          string        `json:"invoice_no"`
	RepresentativeCode string        `json:"representative_code"`
	IssueDate          time.Time     `json:"issue_date"`
	DueDate            time.Time     `json:"due_date"`
	DiscountAmount     int64         `json:"discount_amount,omitempty"`
	TaxAmount          int64         `json:"tax_amount,omitempty"`
	Items              []ItemRequest `json:"items"`

	// BatchID ties bulk-generated invoices back to their import run.
	BatchID *snowflake.ID `json:"-"`
}

type RecordPaymentRequest struct {
	InvoiceNo string    `json:"invoice_no"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method,omitempty"`
	Reference string    `json:"reference,omitempty"`
	Note      string    `json:"note,omitempty"`
	PaidAt    time.Time `json:"paid_at,omitempty"`
}

type ListRequest struct {
	PageToken          string
	PageSize           int
	RepresentativeCode string
	Status             string
	IssuedFrom         *time.Time
	IssuedTo           *time.Time
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type Service interface {
	// Create issues the invoice, posts its ledger debit and accrues any
	// collaborator commission in one transaction. Replaying a create with an
	// already-used invoice number returns the original invoice untouched.
	Create(ctx context.Context, req CreateRequest) (Invoice, error)

	GetByNo(ctx context.Context, invoiceNo string) (Invoice, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)

	// RecordPayment books a settlement, posts its ledger credit and advances
	// the invoice state when the running paid total covers the invoice.
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (Invoice, error)

	// Cancel voids a pending or overdue invoice, posting compensating ledger
	// and commission entries. Paid invoices cannot be cancelled.
	Cancel(ctx context.Context, invoiceNo string) (Invoice, error)

	// MarkOverdue flips pending invoices whose due date lies before asOf.
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

var (
	ErrInvalidInvoiceNo      = errors.New("invalid_invoice_no")
	ErrInvalidItems          = errors.New("invalid_items")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidDates          = errors.New("invalid_dates")
	ErrRepresentativeMissing = errors.New("representative_not_found")
	ErrDuplicateInvoice      = errors.New("duplicate_invoice_no")
	ErrNotFound              = errors.New("invoice_not_found")
	ErrAlreadyCancelled      = errors.New("invoice_cancelled")
	ErrCannotCancelPaid      = errors.New("cannot_cancel_paid_invoice")
)

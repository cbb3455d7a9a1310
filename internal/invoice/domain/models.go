// Package domain contains invoice, line item and payment models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/parsbill/parsbill/internal/pricing/domain"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// Invoice is one billing document issued to a representative. InvoiceNo is
// caller supplied and globally unique; a replayed create with the same number
// returns the original document.
type Invoice struct {
	ID               snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceNo        string        `gorm:"type:text;not null;uniqueIndex:ux_invoices_no" json:"invoice_no"`
	RepresentativeID snowflake.ID  `gorm:"not null;index" json:"representative_id"`
	BatchID          *snowflake.ID `gorm:"index" json:"batch_id,omitempty"`

	Status Status `gorm:"type:text;not null;default:'pending'" json:"status"`

	// TotalAmount = BaseAmount - DiscountAmount + TaxAmount, fixed at creation.
	BaseAmount     int64 `gorm:"not null" json:"base_amount"`
	DiscountAmount int64 `gorm:"not null;default:0" json:"discount_amount"`
	TaxAmount      int64 `gorm:"not null;default:0" json:"tax_amount"`
	TotalAmount    int64 `gorm:"not null" json:"total_amount"`
	PaidAmount     int64 `gorm:"not null;default:0" json:"paid_amount"`

	IssueDate   time.Time  `gorm:"not null" json:"issue_date"`
	DueDate     time.Time  `gorm:"not null" json:"due_date"`
	PaidDate    *time.Time `json:"paid_date,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Items    []Item    `gorm:"-" json:"items,omitempty"`
	Payments []Payment `gorm:"-" json:"payments,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Item is one priced line on an invoice.
type Item struct {
	ID             snowflake.ID               `gorm:"primaryKey" json:"id"`
	InvoiceID      snowflake.ID               `gorm:"not null;index" json:"invoice_id"`
	ServiceClass   pricingdomain.ServiceClass `gorm:"type:text;not null" json:"service_class"`
	DurationMonths int                        `gorm:"not null" json:"duration_months"`
	Quantity       int64                      `gorm:"not null" json:"quantity"`
	UnitPrice      int64                      `gorm:"not null" json:"unit_price"`
	LineTotal      int64                      `gorm:"not null" json:"line_total"`
	Description    string                     `gorm:"type:text" json:"description,omitempty"`
	CreatedAt      time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "invoice_items" }

// Payment is one settlement received against an invoice.
type Payment struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID        snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	RepresentativeID snowflake.ID `gorm:"not null;index" json:"representative_id"`
	Amount           int64        `gorm:"not null" json:"amount"`
	Method           string       `gorm:"type:text" json:"method,omitempty"`
	Reference        string       `gorm:"type:text" json:"reference,omitempty"`
	Note             string       `gorm:"type:text" json:"note,omitempty"`
	PaidAt           time.Time    `gorm:"not null" json:"paid_at"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "invoice_payments" }

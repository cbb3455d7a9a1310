// Package domain contains collaborator commission records.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Kind distinguishes an accrual from its compensating reversal.
type Kind string

const (
	KindAccrual  Kind = "accrual"
	KindReversal Kind = "reversal"
)

// Method records how the rate was determined.
type Method string

const (
	MethodAutomatic Method = "automatic"
	MethodManual    Method = "manual"
)

// Record is one commission posting. At most one accrual and one reversal can
// exist per invoice and collaborator, enforced by the unique index.
type Record struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID      snowflake.ID    `gorm:"not null;uniqueIndex:ux_commission_records_invoice_kind,priority:1;index" json:"invoice_id"`
	CollaboratorID snowflake.ID    `gorm:"not null;uniqueIndex:ux_commission_records_invoice_kind,priority:2;index" json:"collaborator_id"`
	Kind           Kind            `gorm:"type:text;not null;uniqueIndex:ux_commission_records_invoice_kind,priority:3" json:"kind"`
	Method         Method          `gorm:"type:text;not null;default:'automatic'" json:"method"`
	RatePercent    decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"rate_percent"`
	BaseAmount     int64           `gorm:"not null" json:"base_amount"`
	Amount         int64           `gorm:"not null" json:"amount"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "commission_records" }

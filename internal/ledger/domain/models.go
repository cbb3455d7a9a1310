// Package domain contains the append-only financial ledger models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryType classifies a ledger transaction.
type EntryType string

const (
	EntryTypeInvoice EntryType = "invoice"
	EntryTypePayment EntryType = "payment"
)

// SourceType identifies the originating business event. Together with the
// source ID it forms the exactly-once key for an append.
type SourceType string

const (
	SourceTypeInvoice             SourceType = "invoice"
	SourceTypePayment             SourceType = "payment"
	SourceTypeInvoiceCancellation SourceType = "invoice_cancellation"
)

// Entry is one immutable row in a representative's transaction log.
// Amount is the signed delta applied to the running balance: invoice debits
// are positive, payment credits negative. Corrections are reversing entries,
// never updates or deletes.
type Entry struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	RepresentativeID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_ledger_entries_seq,priority:1;uniqueIndex:ux_ledger_entries_source,priority:1" json:"representative_id"`
	Seq              int64        `gorm:"not null;uniqueIndex:ux_ledger_entries_seq,priority:2" json:"seq"`
	Type             EntryType    `gorm:"type:text;not null" json:"type"`
	Amount           int64        `gorm:"not null" json:"amount"`
	BalanceAfter     int64        `gorm:"not null" json:"balance_after"`
	SourceType       SourceType   `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_source,priority:2" json:"source_type"`
	SourceID         snowflake.ID `gorm:"not null;uniqueIndex:ux_ledger_entries_source,priority:3" json:"source_id"`
	OccurredAt       time.Time    `gorm:"not null" json:"occurred_at"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "ledger_entries" }

// Head materializes the last sequence number and running balance per
// representative. Appends advance it with a compare-and-set on LastSeq; the
// entry history remains the source of truth.
type Head struct {
	RepresentativeID snowflake.ID `gorm:"primaryKey" json:"representative_id"`
	LastSeq          int64        `gorm:"not null;default:0" json:"last_seq"`
	Balance          int64        `gorm:"not null;default:0" json:"balance"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Head) TableName() string { return "ledger_heads" }

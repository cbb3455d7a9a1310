// Package domain contains bulk import batch models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Kind says what a batch imports.
type Kind string

const (
	KindInvoices        Kind = "invoices"
	KindRepresentatives Kind = "representatives"
)

// Status is the batch lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Batch records one bulk import run. Row failures never abort the run; the
// per-row outcome survives in the report.
type Batch struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	Kind          Kind           `gorm:"type:text;not null" json:"kind"`
	FileName      string         `gorm:"type:text" json:"file_name,omitempty"`
	Status        Status         `gorm:"type:text;not null;default:'processing'" json:"status"`
	TotalRows     int            `gorm:"not null;default:0" json:"total_rows"`
	SucceededRows int            `gorm:"not null;default:0" json:"succeeded_rows"`
	FailedRows    int            `gorm:"not null;default:0" json:"failed_rows"`
	TotalAmount   int64          `gorm:"not null;default:0" json:"total_amount"`
	Report        datatypes.JSON `gorm:"type:jsonb" json:"report,omitempty"`
	CreatedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// TableName sets the database table name.
func (Batch) TableName() string { return "invoice_batches" }

// RowError is one failed row in a batch report.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Report summarizes a finished batch. TotalAmount only accumulates for
// invoice imports.
type Report struct {
	BatchID     snowflake.ID `json:"batch_id"`
	Kind        Kind         `json:"kind"`
	Total       int          `json:"total"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	TotalAmount int64        `json:"total_amount,omitempty"`
	Errors      []RowError   `json:"errors,omitempty"`
}

package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// AppendRequest describes one ledger posting. Amount is the signed delta
// applied to the representative's running balance.
type AppendRequest struct {
	RepresentativeID snowflake.ID
	Type             EntryType
	Amount           int64
	SourceType       SourceType
	SourceID         snowflake.ID
	OccurredAt       time.Time
}

// ReconcileResult compares the materialized head balance with the cumulative
// sum of the entry history.
type ReconcileResult struct {
	RepresentativeID snowflake.ID `json:"representative_id"`
	HeadBalance      int64        `json:"head_balance"`
	DerivedBalance   int64        `json:"derived_balance"`
	EntryCount       int64        `json:"entry_count"`
	Consistent       bool         `json:"consistent"`
}

type Service interface {
	// Append posts one entry, retrying lost compare-and-set races internally.
	Append(ctx context.Context, req AppendRequest) (*Entry, error)

	// AppendInTx posts one entry inside the caller's transaction. A lost race
	// surfaces as ErrLedgerConflict and the caller is expected to retry the
	// whole transaction. A replay of an already-posted source returns the
	// existing entry and performs no writes.
	AppendInTx(ctx context.Context, tx *gorm.DB, req AppendRequest) (*Entry, error)

	CurrentBalance(ctx context.Context, representativeID snowflake.ID) (int64, error)
	Entries(ctx context.Context, representativeID snowflake.ID) ([]Entry, error)
	Reconcile(ctx context.Context, representativeID snowflake.ID) (ReconcileResult, error)
}

var (
	ErrInvalidRepresentative = errors.New("invalid_representative")
	ErrInvalidEntryType      = errors.New("invalid_entry_type")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInvalidSource         = errors.New("invalid_source")
	ErrLedgerConflict        = errors.New("ledger_conflict")
)

package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/parsbill/parsbill/internal/clock"
	ledgerdomain "github.com/parsbill/parsbill/internal/ledger/domain"
	obsmetrics "github.com/parsbill/parsbill/internal/observability/metrics"
	"github.com/parsbill/parsbill/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxAppendAttempts = 5

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Append(ctx context.Context, req ledgerdomain.AppendRequest) (*ledgerdomain.Entry, error) {
	var entry *ledgerdomain.Entry
	for attempt := 1; ; attempt++ {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var txErr error
			entry, txErr = s.AppendInTx(ctx, tx, req)
			return txErr
		})
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, ledgerdomain.ErrLedgerConflict) || attempt >= maxAppendAttempts {
			return nil, err
		}
		s.log.Debug("ledger append lost race, retrying",
			zap.String("representative_id", req.RepresentativeID.String()),
			zap.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * 5 * time.Millisecond):
		}
	}
}

// AppendInTx reads the representative's head, writes the next entry, and
// advances the head with a compare-and-set on the last sequence number. Two
// concurrent appends for the same representative can therefore never compute
// their running balance from a stale snapshot; the loser fails the CAS (or
// the unique seq index) and retries. Appends for different representatives
// do not contend.
func (s *Service) AppendInTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.AppendRequest) (*ledgerdomain.Entry, error) {
	if req.RepresentativeID == 0 {
		return nil, ledgerdomain.ErrInvalidRepresentative
	}
	switch req.Type {
	case ledgerdomain.EntryTypeInvoice, ledgerdomain.EntryTypePayment:
	default:
		return nil, ledgerdomain.ErrInvalidEntryType
	}
	if req.Amount == 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	if req.SourceType == "" || req.SourceID == 0 {
		return nil, ledgerdomain.ErrInvalidSource
	}

	now := s.clock.Now()
	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_heads (representative_id, last_seq, balance, updated_at)
		 VALUES (?, 0, 0, ?)
		 ON CONFLICT (representative_id) DO NOTHING`,
		req.RepresentativeID, now,
	).Error; err != nil {
		return nil, err
	}

	var head ledgerdomain.Head
	if err := tx.WithContext(ctx).Raw(
		`SELECT representative_id, last_seq, balance FROM ledger_heads WHERE representative_id = ?`,
		req.RepresentativeID,
	).Scan(&head).Error; err != nil {
		return nil, err
	}

	entry := ledgerdomain.Entry{
		ID:               s.genID.Generate(),
		RepresentativeID: req.RepresentativeID,
		Seq:              head.LastSeq + 1,
		Type:             req.Type,
		Amount:           req.Amount,
		BalanceAfter:     head.Balance + req.Amount,
		SourceType:       req.SourceType,
		SourceID:         req.SourceID,
		OccurredAt:       occurredAt,
		CreatedAt:        now,
	}

	result := tx.WithContext(ctx).Exec(
		`INSERT INTO ledger_entries (
			id, representative_id, seq, type, amount, balance_after, source_type, source_id, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (representative_id, source_type, source_id) DO NOTHING`,
		entry.ID,
		entry.RepresentativeID,
		entry.Seq,
		string(entry.Type),
		entry.Amount,
		entry.BalanceAfter,
		string(entry.SourceType),
		entry.SourceID,
		entry.OccurredAt,
		entry.CreatedAt,
	)
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			// Lost the race on the seq index to a concurrent append.
			return nil, ledgerdomain.ErrLedgerConflict
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var existing ledgerdomain.Entry
		if err := tx.WithContext(ctx).Raw(
			`SELECT * FROM ledger_entries
			 WHERE representative_id = ? AND source_type = ? AND source_id = ?`,
			req.RepresentativeID, string(req.SourceType), req.SourceID,
		).Scan(&existing).Error; err != nil {
			return nil, err
		}
		s.log.Info("ledger entry already posted for source",
			zap.String("representative_id", req.RepresentativeID.String()),
			zap.String("source_type", string(req.SourceType)),
			zap.String("source_id", req.SourceID.String()),
		)
		return &existing, nil
	}

	cas := tx.WithContext(ctx).Exec(
		`UPDATE ledger_heads
		 SET last_seq = ?, balance = ?, updated_at = ?
		 WHERE representative_id = ? AND last_seq = ?`,
		entry.Seq, entry.BalanceAfter, now, req.RepresentativeID, head.LastSeq,
	)
	if cas.Error != nil {
		return nil, cas.Error
	}
	if cas.RowsAffected == 0 {
		return nil, ledgerdomain.ErrLedgerConflict
	}

	if s.obsMetrics != nil {
		s.obsMetrics.LedgerEntries.Inc()
	}

	return &entry, nil
}

func (s *Service) CurrentBalance(ctx context.Context, representativeID snowflake.ID) (int64, error) {
	if representativeID == 0 {
		return 0, ledgerdomain.ErrInvalidRepresentative
	}

	var head ledgerdomain.Head
	err := s.db.WithContext(ctx).Raw(
		`SELECT representative_id, last_seq, balance FROM ledger_heads WHERE representative_id = ?`,
		representativeID,
	).Scan(&head).Error
	if err != nil {
		return 0, err
	}
	return head.Balance, nil
}

func (s *Service) Entries(ctx context.Context, representativeID snowflake.ID) ([]ledgerdomain.Entry, error) {
	if representativeID == 0 {
		return nil, ledgerdomain.ErrInvalidRepresentative
	}

	var entries []ledgerdomain.Entry
	err := s.db.WithContext(ctx).
		Model(&ledgerdomain.Entry{}).
		Where("representative_id = ?", representativeID).
		Order("seq asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Reconcile recomputes the balance from the full entry history. The cache and
// head column are conveniences; this cumulative sum is the truth.
func (s *Service) Reconcile(ctx context.Context, representativeID snowflake.ID) (ledgerdomain.ReconcileResult, error) {
	if representativeID == 0 {
		return ledgerdomain.ReconcileResult{}, ledgerdomain.ErrInvalidRepresentative
	}

	var derived struct {
		Total int64
		Count int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count
		 FROM ledger_entries WHERE representative_id = ?`,
		representativeID,
	).Scan(&derived).Error
	if err != nil {
		return ledgerdomain.ReconcileResult{}, err
	}

	var head ledgerdomain.Head
	if err := s.db.WithContext(ctx).Raw(
		`SELECT representative_id, last_seq, balance FROM ledger_heads WHERE representative_id = ?`,
		representativeID,
	).Scan(&head).Error; err != nil {
		return ledgerdomain.ReconcileResult{}, err
	}

	result := ledgerdomain.ReconcileResult{
		RepresentativeID: representativeID,
		HeadBalance:      head.Balance,
		DerivedBalance:   derived.Total,
		EntryCount:       derived.Count,
		Consistent:       head.Balance == derived.Total,
	}
	if !result.Consistent {
		s.log.Error("ledger head diverged from entry history",
			zap.String("representative_id", representativeID.String()),
			zap.Int64("head_balance", head.Balance),
			zap.Int64("derived_balance", derived.Total),
		)
	}
	return result, nil
}

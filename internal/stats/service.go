// Package stats serves aggregate back-office figures behind a short TTL cache.
package stats

import (
	"context"
	"time"

	"github.com/parsbill/parsbill/internal/cache"
	"github.com/parsbill/parsbill/internal/clock"
	obsmetrics "github.com/parsbill/parsbill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const overviewTTL = 60 * time.Second

const overviewKey = "overview"

type InvoiceStats struct {
	Pending   int64 `json:"pending"`
	Paid      int64 `json:"paid"`
	Overdue   int64 `json:"overdue"`
	Cancelled int64 `json:"cancelled"`

	TotalBilled    int64 `json:"total_billed"`
	TotalCollected int64 `json:"total_collected"`
}

type LedgerStats struct {
	TotalDebits     int64 `json:"total_debits"`
	TotalCredits    int64 `json:"total_credits"`
	OutstandingDebt int64 `json:"outstanding_debt"`
	EntryCount      int64 `json:"entry_count"`
}

type CommissionStats struct {
	CurrentEarnings int64 `json:"current_earnings"`
	TotalEarnings   int64 `json:"total_earnings"`
	TotalPayouts    int64 `json:"total_payouts"`
}

type Overview struct {
	Representatives       int64 `json:"representatives"`
	ActiveRepresentatives int64 `json:"active_representatives"`
	Collaborators         int64 `json:"collaborators"`

	Invoices    InvoiceStats    `json:"invoices"`
	Ledger      LedgerStats     `json:"ledger"`
	Commissions CommissionStats `json:"commissions"`

	GeneratedAt time.Time `json:"generated_at"`
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	cache      *cache.TTL[string, Overview]
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("stats.service"),
		clock:      p.Clock,
		cache:      cache.NewTTL[string, Overview](overviewTTL),
		obsMetrics: p.ObsMetrics,
	}
}

// GetOverview serves the cached snapshot when fresh, otherwise recomputes it.
// The figures may lag writes by up to the TTL.
func (s *Service) GetOverview(ctx context.Context) (Overview, error) {
	if cached, ok := s.cache.Get(overviewKey); ok {
		s.countLookup("hit")
		return cached, nil
	}
	s.countLookup("miss")

	overview, err := s.computeOverview(ctx)
	if err != nil {
		return Overview{}, err
	}
	s.cache.Set(overviewKey, overview)
	return overview, nil
}

// Invalidate drops the cached snapshot so the next read recomputes.
func (s *Service) Invalidate() {
	s.cache.InvalidateAll()
}

func (s *Service) computeOverview(ctx context.Context) (Overview, error) {
	overview := Overview{GeneratedAt: s.clock.Now()}

	var repCounts struct {
		Total  int64
		Active int64
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS total,
		        COUNT(*) FILTER (WHERE status = 'active') AS active
		 FROM representatives`,
	).Scan(&repCounts).Error
	if err != nil {
		// FILTER is unavailable on some dialects; fall back to two scans.
		if err = s.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM representatives`).Scan(&repCounts.Total).Error; err != nil {
			return Overview{}, err
		}
		if err = s.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM representatives WHERE status = 'active'`).Scan(&repCounts.Active).Error; err != nil {
			return Overview{}, err
		}
	}
	overview.Representatives = repCounts.Total
	overview.ActiveRepresentatives = repCounts.Active

	if err := s.db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM collaborators`).Scan(&overview.Collaborators).Error; err != nil {
		return Overview{}, err
	}

	var invoiceRows []struct {
		Status string
		Count  int64
		Total  int64
		Paid   int64
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS count,
		        COALESCE(SUM(total_amount), 0) AS total,
		        COALESCE(SUM(paid_amount), 0) AS paid
		 FROM invoices GROUP BY status`,
	).Scan(&invoiceRows).Error
	if err != nil {
		return Overview{}, err
	}
	for _, row := range invoiceRows {
		switch row.Status {
		case "pending":
			overview.Invoices.Pending = row.Count
		case "paid":
			overview.Invoices.Paid = row.Count
		case "overdue":
			overview.Invoices.Overdue = row.Count
		case "cancelled":
			overview.Invoices.Cancelled = row.Count
			continue
		}
		overview.Invoices.TotalBilled += row.Total
		overview.Invoices.TotalCollected += row.Paid
	}

	var ledger struct {
		Debits  int64
		Credits int64
		Count   int64
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS debits,
		        COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS credits,
		        COUNT(*) AS count
		 FROM ledger_entries`,
	).Scan(&ledger).Error
	if err != nil {
		return Overview{}, err
	}
	overview.Ledger = LedgerStats{
		TotalDebits:     ledger.Debits,
		TotalCredits:    ledger.Credits,
		OutstandingDebt: ledger.Debits - ledger.Credits,
		EntryCount:      ledger.Count,
	}

	var commissions struct {
		Current int64
		Total   int64
		Payouts int64
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(current_earnings), 0) AS current,
		        COALESCE(SUM(total_earnings), 0) AS total,
		        COALESCE(SUM(total_payouts), 0) AS payouts
		 FROM collaborators`,
	).Scan(&commissions).Error
	if err != nil {
		return Overview{}, err
	}
	overview.Commissions = CommissionStats{
		CurrentEarnings: commissions.Current,
		TotalEarnings:   commissions.Total,
		TotalPayouts:    commissions.Payouts,
	}

	return overview, nil
}

func (s *Service) countLookup(result string) {
	if s.obsMetrics == nil {
		return
	}
	s.obsMetrics.StatsCacheLookups.WithLabelValues(result).Inc()
}

var Module = fx.Module("stats.service",
	fx.Provide(New),
)

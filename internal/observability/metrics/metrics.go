// Package metrics exposes the Prometheus instrumentation shared by the
// billing services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

type Metrics struct {
	registry *prometheus.Registry

	InvoicesCreated   prometheus.Counter
	InvoicesCancelled prometheus.Counter
	PaymentsRecorded  prometheus.Counter
	LedgerEntries     prometheus.Counter
	PayoutsRecorded   prometheus.Counter

	CommissionRecords *prometheus.CounterVec

	BatchRows *prometheus.CounterVec

	StatsCacheLookups *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		InvoicesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "parsbill",
			Name:      "invoices_created_total",
			Help:      "Number of invoices created.",
		}),
		InvoicesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "parsbill",
			Name:      "invoices_cancelled_total",
			Help:      "Number of invoices cancelled.",
		}),
		PaymentsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "parsbill",
			Name:      "payments_recorded_total",
			Help:      "Number of payments recorded.",
		}),
		LedgerEntries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "parsbill",
			Name:      "ledger_entries_total",
			Help:      "Number of ledger entries appended.",
		}),
		PayoutsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "parsbill",
			Name:      "collaborator_payouts_total",
			Help:      "Number of collaborator payouts recorded.",
		}),
		CommissionRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parsbill",
			Name:      "commission_records_total",
			Help:      "Number of commission records written, by kind.",
		}, []string{"kind"}),
		BatchRows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parsbill",
			Name:      "batch_rows_total",
			Help:      "Number of batch import rows processed, by outcome.",
		}, []string{"kind", "outcome"}),
		StatsCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parsbill",
			Name:      "stats_cache_lookups_total",
			Help:      "Number of stats cache lookups, by result.",
		}, []string{"result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parsbill",
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests served.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parsbill",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Handler serves the scrape endpoint for this process' registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)

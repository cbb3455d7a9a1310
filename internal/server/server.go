// Package server exposes the back-office HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parsbill/parsbill/internal/batch"
	batchdomain "github.com/parsbill/parsbill/internal/batch/domain"
	"github.com/parsbill/parsbill/internal/collaborator"
	collaboratordomain "github.com/parsbill/parsbill/internal/collaborator/domain"
	"github.com/parsbill/parsbill/internal/commission"
	commissiondomain "github.com/parsbill/parsbill/internal/commission/domain"
	"github.com/parsbill/parsbill/internal/config"
	"github.com/parsbill/parsbill/internal/invoice"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	"github.com/parsbill/parsbill/internal/ledger"
	ledgerdomain "github.com/parsbill/parsbill/internal/ledger/domain"
	obsmetrics "github.com/parsbill/parsbill/internal/observability/metrics"
	"github.com/parsbill/parsbill/internal/pricing"
	"github.com/parsbill/parsbill/internal/representative"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/parsbill/parsbill/internal/stats"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	representative.Module,
	collaborator.Module,
	pricing.Module,
	ledger.Module,
	commission.Module,
	invoice.Module,
	batch.Module,
	stats.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *obsmetrics.Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config

	representativeSvc representativedomain.Service
	collaboratorSvc   collaboratordomain.Service
	invoiceSvc        invoicedomain.Service
	ledgerSvc         ledgerdomain.Service
	commissionSvc     commissiondomain.Service
	batchSvc          batchdomain.Service
	statsSvc          *stats.Service
}

type ServerParams struct {
	fx.In

	Gin               *gin.Engine
	Cfg               config.Config
	RepresentativeSvc representativedomain.Service
	CollaboratorSvc   collaboratordomain.Service
	InvoiceSvc        invoicedomain.Service
	LedgerSvc         ledgerdomain.Service
	CommissionSvc     commissiondomain.Service
	BatchSvc          batchdomain.Service
	StatsSvc          *stats.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:            p.Gin,
		cfg:               p.Cfg,
		representativeSvc: p.RepresentativeSvc,
		collaboratorSvc:   p.CollaboratorSvc,
		invoiceSvc:        p.InvoiceSvc,
		ledgerSvc:         p.LedgerSvc,
		commissionSvc:     p.CommissionSvc,
		batchSvc:          p.BatchSvc,
		statsSvc:          p.StatsSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/representatives", s.CreateRepresentative)
	api.GET("/representatives", s.ListRepresentatives)
	api.GET("/representatives/:code", s.GetRepresentative)
	api.PUT("/representatives/:code/prices", s.UpdateRepresentativePrices)
	api.PUT("/representatives/:code/status", s.UpdateRepresentativeStatus)
	api.GET("/representatives/:code/ledger", s.GetRepresentativeLedger)
	api.GET("/representatives/:code/balance", s.GetRepresentativeBalance)
	api.GET("/representatives/:code/reconcile", s.ReconcileRepresentative)

	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:invoice_no", s.GetInvoice)
	api.POST("/invoices/:invoice_no/payments", s.RecordPayment)
	api.POST("/invoices/:invoice_no/cancel", s.CancelInvoice)

	api.POST("/collaborators", s.CreateCollaborator)
	api.GET("/collaborators", s.ListCollaborators)
	api.GET("/collaborators/:id", s.GetCollaborator)
	api.POST("/collaborators/:id/payouts", s.RecordPayout)
	api.GET("/collaborators/:id/payouts", s.ListPayouts)
	api.GET("/collaborators/:id/commissions", s.ListCommissions)

	api.POST("/batches/invoices", s.ImportInvoices)
	api.POST("/batches/representatives", s.ImportRepresentatives)
	api.GET("/batches", s.ListBatches)
	api.GET("/batches/:id", s.GetBatch)

	api.GET("/stats/overview", s.GetStatsOverview)
}

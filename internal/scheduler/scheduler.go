// Package scheduler drives the periodic overdue sweep.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/parsbill/parsbill/internal/clock"
	invoicedomain "github.com/parsbill/parsbill/internal/invoice/domain"
	"github.com/parsbill/parsbill/internal/joblock"
	"github.com/parsbill/parsbill/internal/stats"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const overdueLockKey = "parsbill:jobs:overdue_sweep"

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
	StatsSvc   *stats.Service  `optional:"true"`
	Locker     *joblock.Locker `optional:"true"`
	Config     Config          `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	statsSvc   *stats.Service
	locker     *joblock.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.InvoiceSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		invoiceSvc: p.InvoiceSvc,
		statsSvc:   p.StatsSvc,
		locker:     p.Locker,
	}, nil
}

// RunOnce performs a single overdue sweep. With a locker configured, only one
// replica holds the lease per interval; the rest skip quietly.
func (s *Scheduler) RunOnce(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	if s.locker != nil {
		token, ok, err := s.locker.TryLock(ctx, overdueLockKey, s.cfg.LockTTL)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Debug("overdue sweep held by another replica")
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), overdueLockKey, token); err != nil {
				s.log.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	flipped, err := s.invoiceSvc.MarkOverdue(ctx, s.clock.Now())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.log.Warn("overdue sweep timed out", zap.Error(err))
			return nil
		}
		return err
	}
	if flipped > 0 && s.statsSvc != nil {
		s.statsSvc.Invalidate()
	}
	return nil
}

// RunForever sweeps on the configured interval until the context is done.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	if err := s.RunOnce(ctx); err != nil {
		s.log.Error("overdue sweep failed", zap.Error(err))
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Error("overdue sweep failed", zap.Error(err))
			}
		}
	}
}

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(Start),
)

func Start(lc fx.Lifecycle, sched *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go sched.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

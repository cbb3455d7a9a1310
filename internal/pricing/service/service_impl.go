package service

import (
	"context"

	"github.com/parsbill/parsbill/internal/config"
	"github.com/parsbill/parsbill/internal/pricing/domain"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Config *config.BillingConfigHolder
}

type Service struct {
	log    *zap.Logger
	config *config.BillingConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("pricing.service"),
		config: p.Config,
	}
}

func (s *Service) ResolveUnitPrice(ctx context.Context, representative *representativedomain.Representative, class domain.ServiceClass, durationMonths int) (int64, error) {
	_ = ctx

	if durationMonths < domain.MinDurationMonths || durationMonths > domain.MaxDurationMonths {
		return 0, domain.ErrInvalidDuration
	}

	var slots [6]int64
	switch class {
	case domain.ClassLimited:
		slots = representative.PriceTable.Limited()
	case domain.ClassUnlimited:
		slots = representative.PriceTable.Unlimited()
	default:
		return 0, domain.ErrInvalidServiceClass
	}

	if price := slots[durationMonths-1]; price > 0 {
		return price, nil
	}

	defaults := s.config.Get().DefaultPrices
	var fallback []int64
	if class == domain.ClassLimited {
		fallback = defaults.Limited
	} else {
		fallback = defaults.Unlimited
	}

	if durationMonths <= len(fallback) {
		if price := fallback[durationMonths-1]; price > 0 {
			s.log.Debug("unit price resolved from default table",
				zap.String("representative_id", representative.ID.String()),
				zap.String("service_class", string(class)),
				zap.Int("duration_months", durationMonths),
			)
			return price, nil
		}
	}

	return 0, domain.ErrPricingUnresolved
}

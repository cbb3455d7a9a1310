package service

import (
	"context"
	"testing"

	"github.com/parsbill/parsbill/internal/config"
	"github.com/parsbill/parsbill/internal/pricing/domain"
	representativedomain "github.com/parsbill/parsbill/internal/representative/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPricing(cfg config.BillingConfig) domain.Service {
	holder := &config.BillingConfigHolder{}
	holder.Store(cfg)
	return New(Params{
		Log:    zap.NewNop(),
		Config: holder,
	})
}

func TestResolveUnitPrice_RepresentativeTableWins(t *testing.T) {
	svc := newTestPricing(config.DefaultBillingConfig())
	ctx := context.Background()

	rep := &representativedomain.Representative{
		PriceTable: representativedomain.PriceTable{Limited3M: 900},
	}

	price, err := svc.ResolveUnitPrice(ctx, rep, domain.ClassLimited, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(900), price)

	// Ten three-month limited subscriptions.
	assert.Equal(t, int64(9000), price*10)
}

func TestResolveUnitPrice_FallsBackToDefaults(t *testing.T) {
	svc := newTestPricing(config.DefaultBillingConfig())
	ctx := context.Background()

	rep := &representativedomain.Representative{}

	price, err := svc.ResolveUnitPrice(ctx, rep, domain.ClassUnlimited, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(80000), price)

	price, err = svc.ResolveUnitPrice(ctx, rep, domain.ClassLimited, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(1600), price)
}

func TestResolveUnitPrice_Unresolved(t *testing.T) {
	cfg := config.DefaultBillingConfig()
	cfg.DefaultPrices.Limited = []int64{0, 0, 0, 0, 0, 0}
	svc := newTestPricing(cfg)
	ctx := context.Background()

	rep := &representativedomain.Representative{}

	_, err := svc.ResolveUnitPrice(ctx, rep, domain.ClassLimited, 1)
	assert.ErrorIs(t, err, domain.ErrPricingUnresolved)
}

func TestResolveUnitPrice_InvalidInput(t *testing.T) {
	svc := newTestPricing(config.DefaultBillingConfig())
	ctx := context.Background()

	rep := &representativedomain.Representative{}

	_, err := svc.ResolveUnitPrice(ctx, rep, domain.ClassLimited, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = svc.ResolveUnitPrice(ctx, rep, domain.ClassLimited, 7)
	assert.ErrorIs(t, err, domain.ErrInvalidDuration)

	_, err = svc.ResolveUnitPrice(ctx, rep, "weekly", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidServiceClass)
}

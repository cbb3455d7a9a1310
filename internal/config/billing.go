package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig carries the validated pricing and commission defaults.
// Everything the legacy system kept as untyped key/value settings lives here
// as a typed snapshot loaded once and swapped atomically on reload.
type BillingConfig struct {
	DefaultPrices DefaultPriceTable `mapstructure:"defaultPrices"`
	Commission    CommissionConfig  `mapstructure:"commission"`
	Overdue       OverdueConfig     `mapstructure:"overdue"`
}

// DefaultPriceTable is the system fallback price table. Index i holds the
// unit price for a (i+1)-month subscription, in Toman.
type DefaultPriceTable struct {
	Limited   []int64 `mapstructure:"limited"`
	Unlimited []int64 `mapstructure:"unlimited"`
}

type CommissionConfig struct {
	DefaultPercent float64 `mapstructure:"defaultPercent"`
}

type OverdueConfig struct {
	// RevertOnPartialPayment moves an overdue invoice back to pending when a
	// partial payment is recorded against it.
	RevertOnPartialPayment bool `mapstructure:"revertOnPartialPayment"`
	GraceDays              int  `mapstructure:"graceDays"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		DefaultPrices: DefaultPriceTable{
			Limited:   []int64{900, 900, 900, 1200, 1400, 1600},
			Unlimited: []int64{40000, 80000, 120000, 160000, 200000, 240000},
		},
		Commission: CommissionConfig{DefaultPercent: 10},
		Overdue:    OverdueConfig{RevertOnPartialPayment: true, GraceDays: 0},
	}
}

// BillingConfigHolder exposes the current BillingConfig snapshot.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/parsbill/config")
	v.AddConfigPath("/etc/parsbill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARSBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg := DefaultBillingConfig()
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated := DefaultBillingConfig()
			if err := v.UnmarshalKey("billing", &updated); err != nil {
				log.Printf("[billing-config] reload failed: %v", err)
				return
			}
			if err := validateBillingConfig(updated); err != nil {
				log.Printf("[billing-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[billing-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

// Store replaces the current snapshot. Intended for tests.
func (h *BillingConfigHolder) Store(cfg BillingConfig) {
	h.current.Store(cfg)
}

func validateBillingConfig(cfg BillingConfig) error {
	if len(cfg.DefaultPrices.Limited) != 6 {
		return fmt.Errorf("billing.defaultPrices.limited must have 6 entries, got %d", len(cfg.DefaultPrices.Limited))
	}
	if len(cfg.DefaultPrices.Unlimited) != 6 {
		return fmt.Errorf("billing.defaultPrices.unlimited must have 6 entries, got %d", len(cfg.DefaultPrices.Unlimited))
	}
	for _, p := range cfg.DefaultPrices.Limited {
		if p < 0 {
			return errors.New("billing.defaultPrices.limited entries cannot be negative")
		}
	}
	for _, p := range cfg.DefaultPrices.Unlimited {
		if p < 0 {
			return errors.New("billing.defaultPrices.unlimited entries cannot be negative")
		}
	}
	if cfg.Commission.DefaultPercent < 0 || cfg.Commission.DefaultPercent > 100 {
		return errors.New("billing.commission.defaultPercent must be between 0 and 100")
	}
	if cfg.Overdue.GraceDays < 0 {
		return errors.New("billing.overdue.graceDays cannot be negative")
	}
	return nil
}

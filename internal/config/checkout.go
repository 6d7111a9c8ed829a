package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// CheckoutConfig tunes the payment and fulfillment windows. Operators adjust
// these without a restart; the holder reloads on file change.
type CheckoutConfig struct {
	// PaymentExpiry is how long an order may sit in AWAITING_PAYMENT
	// before the sweeper expires it.
	PaymentExpiry time.Duration `mapstructure:"paymentExpiry"`
	// FulfillmentGrace is how long a PAID order may go unfulfilled before
	// the sweeper re-drives it.
	FulfillmentGrace time.Duration `mapstructure:"fulfillmentGrace"`
	// FulfillmentRetryBudget bounds fulfillment attempts before the order
	// is parked in FULFILLMENT_FAILED for an operator.
	FulfillmentRetryBudget int `mapstructure:"fulfillmentRetryBudget"`
	// SweepInterval is the reconciliation loop cadence.
	SweepInterval time.Duration `mapstructure:"sweepInterval"`
}

func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		PaymentExpiry:          30 * time.Minute,
		FulfillmentGrace:       2 * time.Minute,
		FulfillmentRetryBudget: 5,
		SweepInterval:          time.Minute,
	}
}

type CheckoutConfigHolder struct {
	current atomic.Value // holds CheckoutConfig
}

func NewCheckoutConfigHolder() (*CheckoutConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("checkout")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/storefront/config")
	v.AddConfigPath("/etc/storefront")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultCheckoutConfig()
	v.SetDefault("checkout.paymentExpiry", defaults.PaymentExpiry)
	v.SetDefault("checkout.fulfillmentGrace", defaults.FulfillmentGrace)
	v.SetDefault("checkout.fulfillmentRetryBudget", defaults.FulfillmentRetryBudget)
	v.SetDefault("checkout.sweepInterval", defaults.SweepInterval)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg CheckoutConfig
	if err := v.UnmarshalKey("checkout", &cfg); err != nil {
		return nil, err
	}
	if err := validateCheckoutConfig(cfg); err != nil {
		return nil, err
	}

	holder := &CheckoutConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated CheckoutConfig
		if err := v.UnmarshalKey("checkout", &updated); err != nil {
			log.Printf("[checkout-config] reload failed: %v", err)
			return
		}
		if err := validateCheckoutConfig(updated); err != nil {
			log.Printf("[checkout-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[checkout-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticCheckoutConfigHolder wraps a fixed config, for tests.
func NewStaticCheckoutConfigHolder(cfg CheckoutConfig) *CheckoutConfigHolder {
	holder := &CheckoutConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *CheckoutConfigHolder) Get() CheckoutConfig {
	return h.current.Load().(CheckoutConfig)
}

func validateCheckoutConfig(cfg CheckoutConfig) error {
	if cfg.PaymentExpiry <= 0 {
		return errors.New("checkout: paymentExpiry must be positive")
	}
	if cfg.FulfillmentGrace <= 0 {
		return errors.New("checkout: fulfillmentGrace must be positive")
	}
	if cfg.FulfillmentRetryBudget <= 0 {
		return errors.New("checkout: fulfillmentRetryBudget must be positive")
	}
	if cfg.SweepInterval <= 0 {
		return errors.New("checkout: sweepInterval must be positive")
	}
	return nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/paybot/core/config"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL        = "https://api.nowpayments.io/v1"
	defaultOrderID        = "telegram_order_123"
	defaultTimeoutSeconds = 15
	defaultButtonsPerRow  = 2
	defaultAmountInterval = 1000
)

// NOWPaymentsConfig holds payment processor settings.
type NOWPaymentsConfig struct {
	APIKey         string `yaml:"api_key" envconfig:"NOWPAYMENTS_API_KEY"`
	BaseURL        string `yaml:"base_url" envconfig:"NOWPAYMENTS_BASE_URL"`
	OrderID        string `yaml:"order_id" envconfig:"NOWPAYMENTS_ORDER_ID"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"NOWPAYMENTS_TIMEOUT_SECONDS"`
}

// Timeout returns the request timeout as a duration.
func (c NOWPaymentsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PaymentConfig tunes the conversation.
type PaymentConfig struct {
	// MinAmount is the smallest accepted USD amount, as a decimal string.
	MinAmount     string `yaml:"min_amount" envconfig:"PAYMENT_MIN_AMOUNT"`
	ButtonsPerRow int    `yaml:"buttons_per_row" envconfig:"PAYMENT_BUTTONS_PER_ROW"`
	// AmountIntervalMS is the minimum gap between amount attempts from one user.
	AmountIntervalMS int `yaml:"amount_interval_ms" envconfig:"PAYMENT_AMOUNT_INTERVAL_MS"`

	minAmount decimal.Decimal
}

// Min returns the parsed minimum amount.
func (c PaymentConfig) Min() decimal.Decimal { return c.minAmount }

// AmountInterval returns AmountIntervalMS as a duration.
func (c PaymentConfig) AmountInterval() time.Duration {
	return time.Duration(c.AmountIntervalMS) * time.Millisecond
}

// Config is the paybot configuration: the shared core plus domain sections.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	NOWPayments NOWPaymentsConfig `yaml:"nowpayments"`
	Payment     PaymentConfig     `yaml:"payment"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads the YAML file at path, overlays environment variables and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the domain sections and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	np := &cfg.NOWPayments
	np.APIKey = strings.TrimSpace(np.APIKey)
	if np.APIKey == "" {
		return fmt.Errorf("nowpayments api key is required (NOWPAYMENTS_API_KEY)")
	}
	np.BaseURL = strings.TrimRight(strings.TrimSpace(np.BaseURL), "/")
	if np.BaseURL == "" {
		np.BaseURL = defaultBaseURL
	}
	np.OrderID = strings.TrimSpace(np.OrderID)
	if np.OrderID == "" {
		np.OrderID = defaultOrderID
	}
	switch {
	case np.TimeoutSeconds < 0:
		return fmt.Errorf("nowpayments.timeout_seconds must be >= 0")
	case np.TimeoutSeconds == 0:
		np.TimeoutSeconds = defaultTimeoutSeconds
	}

	pc := &cfg.Payment
	pc.minAmount = decimal.NewFromInt(1)
	if raw := strings.TrimSpace(pc.MinAmount); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid payment.min_amount %q: %w", pc.MinAmount, err)
		}
		if !v.IsPositive() {
			return fmt.Errorf("payment.min_amount must be > 0")
		}
		pc.minAmount = v
	}
	pc.MinAmount = pc.minAmount.String()
	switch {
	case pc.ButtonsPerRow < 0:
		return fmt.Errorf("payment.buttons_per_row must be >= 0")
	case pc.ButtonsPerRow == 0:
		pc.ButtonsPerRow = defaultButtonsPerRow
	}
	switch {
	case pc.AmountIntervalMS < 0:
		return fmt.Errorf("payment.amount_interval_ms must be >= 0")
	case pc.AmountIntervalMS == 0:
		pc.AmountIntervalMS = defaultAmountInterval
	}
	return nil
}

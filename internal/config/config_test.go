package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv removes keys for the duration of the test so file values are not shadowed.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("BOT_TOKEN", "bot")
	t.Setenv("NOWPAYMENTS_API_KEY", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOWPAYMENTS_API_KEY")
}

func TestLoadRequiresBotToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("NOWPAYMENTS_API_KEY", "np")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "bot")
	t.Setenv("NOWPAYMENTS_API_KEY", " np ")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "np", cfg.NOWPayments.APIKey)
	assert.Equal(t, "https://api.nowpayments.io/v1", cfg.NOWPayments.BaseURL)
	assert.Equal(t, "telegram_order_123", cfg.NOWPayments.OrderID)
	assert.Equal(t, 15*time.Second, cfg.NOWPayments.Timeout())
	assert.True(t, cfg.Payment.Min().Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 2, cfg.Payment.ButtonsPerRow)
	assert.Equal(t, time.Second, cfg.Payment.AmountInterval())
	assert.Equal(t, "longpoll", cfg.CoreConfig().Telegram.RunMode)
}

func TestLoadFileSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `telegram:
  token: file-token
  admin_id: 7
nowpayments:
  api_key: file-key
  base_url: https://sandbox.example/v1/
  order_id: shop_1
payment:
  min_amount: "2.50"
  buttons_per_row: 3
metrics:
  listen: ":9100"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	unsetEnv(t, "BOT_TOKEN", "NOWPAYMENTS_API_KEY", "METRICS_LISTEN")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.Telegram.Token)
	assert.Equal(t, int64(7), cfg.Telegram.AdminID)
	assert.Equal(t, "file-key", cfg.NOWPayments.APIKey)
	assert.Equal(t, "https://sandbox.example/v1", cfg.NOWPayments.BaseURL)
	assert.Equal(t, "shop_1", cfg.NOWPayments.OrderID)
	assert.Equal(t, "2.5", cfg.Payment.MinAmount)
	assert.Equal(t, 3, cfg.Payment.ButtonsPerRow)
	assert.Equal(t, ":9100", cfg.Metrics.Listen)
}

func TestNormalizeRejectsBadMinimum(t *testing.T) {
	for _, raw := range []string{"abc", "0", "-1"} {
		cfg := &Config{NOWPayments: NOWPaymentsConfig{APIKey: "k"}, Payment: PaymentConfig{MinAmount: raw}}
		require.Error(t, Normalize(cfg), raw)
	}
}

func TestNormalizeRejectsNegativeAmountInterval(t *testing.T) {
	cfg := &Config{NOWPayments: NOWPaymentsConfig{APIKey: "k"}, Payment: PaymentConfig{AmountIntervalMS: -1}}
	require.Error(t, Normalize(cfg))

	cfg.Payment.AmountIntervalMS = 250
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, 250*time.Millisecond, cfg.Payment.AmountInterval())
}

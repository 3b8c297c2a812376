package payment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/paybot/core/logger"
)

// TopCoins is the allow-list of processor currency codes offered to users, in display order.
var TopCoins = []string{
	"btc", "eth", "usdttrc20", "usdc", "bnbbsc", "sol", "xrp", "doge", "ton", "ada", "trx", "shib", "trump",
}

// CurrencySource returns the processor's advertised currency codes.
type CurrencySource interface {
	Currencies(ctx context.Context) ([]string, error)
}

// FilterCurrencies returns the members of allow present in advertised, in allow order.
// Comparison is case-insensitive; results are lower-case.
func FilterCurrencies(advertised, allow []string) []string {
	if len(advertised) == 0 || len(allow) == 0 {
		return []string{}
	}
	set := make(map[string]struct{}, len(advertised))
	for _, code := range advertised {
		set[strings.ToLower(strings.TrimSpace(code))] = struct{}{}
	}
	out := make([]string, 0, len(allow))
	for _, code := range allow {
		code = strings.ToLower(code)
		if _, ok := set[code]; ok {
			out = append(out, code)
		}
	}
	return out
}

// Catalog resolves the coins that can be offered right now.
type Catalog struct {
	src   CurrencySource
	allow []string
}

// NewCatalog builds a catalog over src. A nil allow-list means TopCoins.
func NewCatalog(src CurrencySource, allow []string) *Catalog {
	if allow == nil {
		allow = TopCoins
	}
	return &Catalog{src: src, allow: append([]string(nil), allow...)}
}

// Available fetches the advertised set and filters it. Fetch errors yield an empty slice.
func (c *Catalog) Available(ctx context.Context) []string {
	if c == nil || c.src == nil {
		return []string{}
	}
	advertised, err := c.src.Currencies(ctx)
	if err != nil {
		catalogTotal.WithLabelValues("fail").Inc()
		logger.Warn(ctx, "service.payments", "currencies.fetch",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return []string{}
	}
	out := FilterCurrencies(advertised, c.allow)
	result := "ok"
	if len(out) == 0 {
		result = "empty"
	}
	catalogTotal.WithLabelValues(result).Inc()
	summary, _ := logger.SummarizeStrings(out, len(c.allow))
	logger.Debug(ctx, "service.payments", "currencies.fetch",
		slog.String("status", "ok"),
		slog.String("outcome", result),
		slog.Int("count", len(out)),
		slog.String("currencies", summary),
	)
	return out
}

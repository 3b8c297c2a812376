package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/paybot/core/config"
	"github.com/m3rciful/paybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions adds bot-specific hooks to the default chain.
type MiddlewareOptions struct {
	// OnLimited runs for updates dropped by the rate limiter.
	OnLimited tele.HandlerFunc
	// RateScope gives some updates a rate limit bucket of their own.
	RateScope func(c tele.Context) (bucket string, interval time.Duration)
}

// DefaultMiddlewares builds the shared chain: recover, logger, rate limit, metrics.
// The rate limiter is installed when the config sets an interval or a RateScope is given.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if rl, ok := rateLimitOptions(cfg, opts); ok {
		mws = append(mws, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(rl)})
	}
	return append(mws, Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware})
}

func rateLimitOptions(cfg *coreconfig.Config, opts MiddlewareOptions) (middleware.RateLimitOptions, bool) {
	rl := middleware.RateLimitOptions{Scope: opts.RateScope, OnLimited: opts.OnLimited}
	if cfg != nil {
		rl.Interval = time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		rl.Exclude = make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			rl.Exclude[strings.ToLower(kind)] = struct{}{}
		}
	}
	return rl, rl.Interval > 0 || rl.Scope != nil
}

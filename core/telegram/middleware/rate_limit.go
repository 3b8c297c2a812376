package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/paybot/core/logger"
	tghelpers "github.com/m3rciful/paybot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// sweepThreshold is the number of tracked buckets that triggers dropping expired ones.
const sweepThreshold = 4096

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	// Interval is the minimum gap between updates in a user's shared bucket.
	Interval time.Duration
	// Exclude lists update kinds (see UpdateKind) that bypass the shared bucket.
	Exclude map[string]struct{}
	// Scope moves an update into a named bucket of its own. A zero interval
	// falls back to Interval; an empty name keeps the shared bucket.
	Scope     func(c tele.Context) (bucket string, interval time.Duration)
	OnLimited tele.HandlerFunc
}

type bucketKey struct {
	userID int64
	bucket string
}

// limiter remembers when each user bucket last let an update through.
type limiter struct {
	mu      sync.Mutex
	last    map[bucketKey]time.Time
	longest time.Duration
}

func newLimiter() *limiter {
	return &limiter{last: make(map[bucketKey]time.Time)}
}

func (l *limiter) allow(key bucketKey, now time.Time, interval time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if interval > l.longest {
		l.longest = interval
	}
	if prev, ok := l.last[key]; ok && now.Sub(prev) < interval {
		return false
	}
	l.last[key] = now
	if len(l.last) >= sweepThreshold {
		for k, seen := range l.last {
			if now.Sub(seen) >= l.longest {
				delete(l.last, k)
			}
		}
	}
	return true
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}

// RateLimitMiddleware drops updates that arrive sooner than the bucket interval
// after the previous accepted update from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := newLimiter()
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil {
				return next(c)
			}

			kind := UpdateKind(c.Update())
			bucket, interval := "", opts.Interval
			if opts.Scope != nil {
				if name, iv := opts.Scope(c); name != "" {
					bucket = name
					if iv > 0 {
						interval = iv
					}
				}
			}
			if bucket == "" {
				if _, skip := opts.Exclude[kind]; skip {
					return next(c)
				}
			}
			if interval <= 0 {
				return next(c)
			}

			if lim.allow(bucketKey{userID: user.ID, bucket: bucket}, time.Now(), interval) {
				return next(c)
			}

			step := kind
			if bucket != "" {
				step = bucket
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("step", step),
				slog.Int64("interval_ms", interval.Milliseconds()),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

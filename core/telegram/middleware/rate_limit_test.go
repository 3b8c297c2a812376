package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context
	upd   tele.Update
	store map[string]any
}

func newStubContext(userID int64, text string, callback bool) *stubContext {
	u := &tele.User{ID: userID}
	upd := tele.Update{ID: 1}
	if callback {
		upd.Callback = &tele.Callback{Sender: u, Data: "pay_btc"}
	} else {
		upd.Message = &tele.Message{Sender: u, Text: text, Chat: &tele.Chat{ID: userID}}
	}
	return &stubContext{upd: upd, store: map[string]any{}}
}

func (s *stubContext) Update() tele.Update { return s.upd }
func (s *stubContext) Text() string {
	if s.upd.Message == nil {
		return ""
	}
	return s.upd.Message.Text
}
func (s *stubContext) Sender() *tele.User {
	if s.upd.Callback != nil {
		return s.upd.Callback.Sender
	}
	return s.upd.Message.Sender
}
func (s *stubContext) Chat() *tele.Chat          { return &tele.Chat{ID: s.Sender().ID} }
func (s *stubContext) Get(key string) any        { return s.store[key] }
func (s *stubContext) Set(key string, value any) { s.store[key] = value }

func countingHandler(n *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*n++
		return nil
	}
}

func TestRateLimitSharedBucket(t *testing.T) {
	var handled, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		OnLimited: countingHandler(&limited),
	})
	h := mw(countingHandler(&handled))

	_ = h(newStubContext(1, "hi", false))
	_ = h(newStubContext(1, "again", false))
	_ = h(newStubContext(2, "hi", false))

	assert.Equal(t, 2, handled)
	assert.Equal(t, 1, limited)
}

func TestRateLimitExcludedKindPasses(t *testing.T) {
	var handled int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{"callback": {}},
	})
	h := mw(countingHandler(&handled))

	_ = h(newStubContext(1, "", true))
	_ = h(newStubContext(1, "", true))
	assert.Equal(t, 2, handled)
}

func TestRateLimitScopedBucketIsSeparate(t *testing.T) {
	var handled int
	mw := RateLimitMiddleware(RateLimitOptions{
		Exclude: map[string]struct{}{"message": {}},
		Scope: func(c tele.Context) (string, time.Duration) {
			if c.Text() != "" && c.Text()[0] >= '0' && c.Text()[0] <= '9' {
				return "amount", time.Hour
			}
			return "", 0
		},
	})
	h := mw(countingHandler(&handled))

	_ = h(newStubContext(1, "10", false))
	_ = h(newStubContext(1, "11", false))
	_ = h(newStubContext(1, "/pay", false))
	_ = h(newStubContext(1, "", true))

	// second amount is dropped; commands and callbacks have no interval
	assert.Equal(t, 3, handled)
}

func TestLimiterSweepsExpiredBuckets(t *testing.T) {
	lim := newLimiter()
	start := time.Now()
	for i := 0; i < sweepThreshold-1; i++ {
		assert.True(t, lim.allow(bucketKey{userID: int64(i)}, start, time.Second))
	}
	assert.Equal(t, sweepThreshold-1, lim.size())

	assert.True(t, lim.allow(bucketKey{userID: -1}, start.Add(time.Minute), time.Second))
	assert.Equal(t, 1, lim.size())
}

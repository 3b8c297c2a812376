package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 8})
	var runs atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
			runs.Add(1)
			return nil
		}))
	}
	d.Close()
	assert.Equal(t, int32(5), runs.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var runs atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		if runs.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	}))
	d.Close()
	assert.Equal(t, int32(3), runs.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var runs atomic.Int32
	require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func() error {
		runs.Add(1)
		return errors.New("telegram: bad request (400)")
	}))
	d.Close()
	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	err := d.Enqueue(context.Background(), "send.text", "sendMessage", func() error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
	assert.Error(t, d.Enqueue(context.Background(), "x", "y", nil))
}

func TestClassifyAndSanitize(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", classifyError(errors.New("telegram: chat not found (400)")))
	assert.Equal(t, "unknown", classifyError(errors.New("boom")))

	msg := sanitizeErrorMessage(errors.New("Post https://api.telegram.org/bot123:ABC-def/sendMessage: EOF"))
	assert.NotContains(t, msg, "123:ABC-def")
	assert.Contains(t, msg, "bot<redacted>")
}

func TestRetryDelayHonoursFloodWait(t *testing.T) {
	d := &Dispatcher{opts: Options{RetryBackoff: time.Second}.withDefaults()}

	delay, retry := d.retryDelay(tele.FloodError{RetryAfter: 3}, 1)
	assert.True(t, retry)
	assert.Equal(t, 3*time.Second, delay)

	delay, retry = d.retryDelay(&net.OpError{Op: "dial", Err: errors.New("refused")}, 2)
	assert.True(t, retry)
	assert.Equal(t, 2*time.Second, delay)

	_, retry = d.retryDelay(errors.New("telegram: bad request (400)"), 1)
	assert.False(t, retry)
}

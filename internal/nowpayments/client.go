package nowpayments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/paybot/core/logger"
	"github.com/m3rciful/paybot/core/netutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.nowpayments.io/v1"

const logBodyLimit = 512

// ErrUnexpectedStatus is matched by every *StatusError.
var ErrUnexpectedStatus = errors.New("nowpayments: unexpected status")

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paybot_nowpayments_requests_total",
		Help: "Requests to the payment processor by operation and HTTP code.",
	}, []string{"op", "code"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paybot_nowpayments_request_duration_seconds",
		Help:    "Payment processor round-trip latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// StatusError captures non-200 responses.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nowpayments: %s returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Code is used by handler summaries as err_code.
func (e *StatusError) Code() string { return "HTTP_" + strconv.Itoa(e.StatusCode) }

func (e *StatusError) Is(target error) bool { return target == ErrUnexpectedStatus }

// Client talks to the NOWPayments REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if u := strings.TrimSpace(baseURL); u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the transport. The client must not retry invoice creation.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = netutil.BuildHTTPClient(netutil.ClientOptions{Timeout: d})
		}
	}
}

// NewClient builds a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("nowpayments: api key must not be empty")
	}
	logger.RegisterSecret(apiKey)
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: netutil.BuildHTTPClient(netutil.ClientOptions{Timeout: 15 * time.Second}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends the request, logs the outcome with the raw body and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("nowpayments: marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("nowpayments: create %s request: %w", op, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	res, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	requestDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		kind := netutil.TransportKind(err)
		if kind == "" {
			kind = netutil.KindUnknown
		}
		requestsTotal.WithLabelValues(op, kind).Inc()
		logger.LogEvent(ctx, logger.NOWPay, slog.LevelWarn, op+".response",
			slog.String("status", "fail"),
			slog.String("method", method),
			slog.String("url", url),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", kind),
			slog.Int64("elapsed_ms", logger.RoundMS(elapsed).Milliseconds()),
		)
		return nil, fmt.Errorf("nowpayments: %s request failed: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	requestsTotal.WithLabelValues(op, strconv.Itoa(res.StatusCode)).Inc()

	status, level := "ok", slog.LevelInfo
	if res.StatusCode != http.StatusOK {
		status, level = "fail", slog.LevelWarn
	}
	logger.LogEvent(ctx, logger.NOWPay, level, op+".response",
		slog.String("status", status),
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("http_code", res.StatusCode),
		slog.String("body", logger.SanitizeLimit(string(raw), logBodyLimit)),
		slog.Int64("elapsed_ms", logger.RoundMS(elapsed).Milliseconds()),
	)

	if readErr != nil {
		return nil, fmt.Errorf("nowpayments: read %s response: %w", op, readErr)
	}
	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{Op: op, StatusCode: res.StatusCode, Body: logger.SanitizeLimit(string(raw), logBodyLimit)}
	}
	return raw, nil
}

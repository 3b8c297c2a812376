package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/paybot/core/logger"
	tghelpers "github.com/m3rciful/paybot/core/telegram/helpers"
	"github.com/m3rciful/paybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary describes one routed update. It is logged as handler.handled once the handler returns.
type summary struct {
	handler string
	start   time.Time
	// status and outcome override the values derived from the handler error.
	status  string
	outcome string
	attrs   []slog.Attr
}

func newSummary(handler string, attrs ...slog.Attr) summary {
	return summary{handler: handler, start: time.Now(), attrs: attrs}
}

func (s summary) skipped(cause string) summary {
	s.status = "skip"
	s.attrs = append(s.attrs, slog.String("cause", cause))
	return s
}

// run calls fn (which may be nil) with the handler name in context, then logs the summary.
func (s summary) run(c tele.Context, fn tele.HandlerFunc) error {
	tghelpers.WithHandler(c, s.handler)
	var err error
	if fn != nil {
		err = fn(c)
	}
	s.log(c, err)
	return err
}

func (s summary) log(c tele.Context, err error) {
	result, level := "ok", slog.LevelInfo
	if err != nil {
		result, level = "fail", slog.LevelWarn
	}
	msgs, kb := middleware.GetCounters(c)
	attrs := []slog.Attr{
		slog.String("status", firstNonEmpty(s.status, result)),
		slog.String("handler", s.handler),
		slog.String("outcome", firstNonEmpty(s.outcome, result)),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(s.start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	attrs = append(attrs, s.attrs...)
	attrs = append(attrs, tghelpers.Annotations(c)...)
	logger.LogEvent(tghelpers.WithHandler(c, s.handler), logger.TG, level, "handler.handled", attrs...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// normalizeHandlerName turns a command or callback key into a log-friendly handler name.
func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// deriveErrorCode prefers an error's own Code() and falls back to its type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}

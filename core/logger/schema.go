package logger

import "strings"

// Level names written to the level field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Known status and outcome values. Unknown outcomes are dropped from the line.
var (
	statusValues  = valueSet("ok", "fail", "skip", "rate_limited")
	outcomeValues = valueSet("ok", "fail", "rejected", "stale", "empty")
)

func valueSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func normalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "", "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	}
	return strings.ToUpper(level)
}

// normalizeStatus lower-cases status and reports whether it is a known value.
func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	_, known := statusValues[status]
	return status, known
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	_, known := outcomeValues[outcome]
	return outcome, known
}

// defaultKeyOrder puts identity and correlation first, then the update,
// then payment fields, then transport and error details.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "trace_id", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "chat_type", "handler", "cb_key",
	"outcome", "duration_ms", "messages", "kb",
	"step", "amount", "currency", "currencies", "count", "payload", "username", "lang", "registered_at",
	"mode", "listen", "public_url", "method", "url", "http_code", "body",
	"err", "err_code", "cause", "attempts", "elapsed_ms",
}

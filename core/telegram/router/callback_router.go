package router

import (
	"log/slog"

	tg "github.com/m3rciful/paybot/core/telegram"
	"github.com/m3rciful/paybot/core/telegram/callbacks"
	"github.com/m3rciful/paybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute routes callbacks through the registry. Every callback is
// acknowledged first so the client spinner clears even when nothing matches.
// Prefix routes are summarised under their pattern, e.g. callback.pay_*.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		_ = c.Respond()

		key, _ := callbacks.ParseCallbackData(c.Callback())
		cbHandler, route, ok := reg.MatchCallback(key)
		if !ok {
			fallback := opts.NotFound
			if fallback == nil {
				fallback = reg.CallbackNotFound()
			}
			s := newSummary("callback."+normalizeHandlerName(key), slog.String("cb_key", key))
			return s.skipped("not_found").run(c, fallback)
		}
		s := newSummary("callback."+normalizeHandlerName(route), slog.String("cb_key", key))
		return s.run(c, cbHandler)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}

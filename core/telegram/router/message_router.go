package router

import (
	"log/slog"
	"strings"

	tg "github.com/m3rciful/paybot/core/telegram"
	"github.com/m3rciful/paybot/core/telegram/middleware"
	"github.com/m3rciful/paybot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// FSM is the part of state.Manager the text route needs.
type FSM interface {
	GetState(userID int64) state.State
	ManagerHandler(c tele.Context) error
}

// TextOptions sets handlers for text and documents nobody else claims.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes text and documents. A user with an active conversation
// reaches the FSM first and the summary carries the step being answered.
// Otherwise slash text is matched against command aliases, then the
// registry fallback, then UnknownText.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	text := func(c tele.Context) error {
		if s, ok := conversation(c, fsm, "fsm"); ok {
			return s.run(c, fsm.ManagerHandler)
		}
		if reg != nil && strings.HasPrefix(c.Text(), "/") {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok {
				return newSummary(normalizeHandlerName(key)).run(c, cmd.Handler)
			}
		}
		if reg != nil && reg.TextFallback() != nil {
			return newSummary("fallback").run(c, reg.TextFallback())
		}
		if opts.UnknownText != nil {
			return newSummary("unknown_text").run(c, opts.UnknownText)
		}
		return newSummary("unknown_text").skipped("no_route").run(c, nil)
	}

	document := func(c tele.Context) error {
		if s, ok := conversation(c, fsm, "fsm_document"); ok {
			return s.run(c, fsm.ManagerHandler)
		}
		if opts.UnknownDocument != nil {
			return newSummary("unexpected_document").run(c, opts.UnknownDocument)
		}
		return newSummary("unexpected_document").skipped("no_route").run(c, nil)
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(text)},
		{Endpoint: tele.OnDocument, Handler: wrap(document)},
	}
}

// conversation returns a summary for the sender's active step, if any.
func conversation(c tele.Context, fsm FSM, name string) (summary, bool) {
	if fsm == nil || c.Sender() == nil {
		return summary{}, false
	}
	step := fsm.GetState(c.Sender().ID)
	if step == "" || step == state.StateIdle {
		return summary{}, false
	}
	return newSummary(name, slog.String("step", string(step))), true
}

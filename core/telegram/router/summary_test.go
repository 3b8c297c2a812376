package router

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/m3rciful/paybot/core/logger"
	tg "github.com/m3rciful/paybot/core/telegram"
	tghelpers "github.com/m3rciful/paybot/core/telegram/helpers"
	"github.com/m3rciful/paybot/core/telegram/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type routeContext struct {
	tele.Context
	upd   tele.Update
	user  *tele.User
	store map[string]any
}

func textUpdate(user *tele.User, text string) *routeContext {
	return &routeContext{
		upd:   tele.Update{ID: 3, Message: &tele.Message{Text: text, Sender: user}},
		user:  user,
		store: map[string]any{},
	}
}

func callbackUpdate(user *tele.User, data string) *routeContext {
	return &routeContext{
		upd:   tele.Update{ID: 4, Callback: &tele.Callback{Data: data, Sender: user}},
		user:  user,
		store: map[string]any{},
	}
}

func (r *routeContext) Update() tele.Update      { return r.upd }
func (r *routeContext) Sender() *tele.User       { return r.user }
func (r *routeContext) Chat() *tele.Chat         { return &tele.Chat{ID: r.user.ID} }
func (r *routeContext) Callback() *tele.Callback { return r.upd.Callback }
func (r *routeContext) Get(key string) any       { return r.store[key] }
func (r *routeContext) Set(key string, v any)    { r.store[key] = v }
func (r *routeContext) Respond(...*tele.CallbackResponse) error {
	return nil
}
func (r *routeContext) Text() string {
	if r.upd.Message == nil {
		return ""
	}
	return r.upd.Message.Text
}

// captureSummaries redirects the tg component logger and returns the handler.handled records.
func captureSummaries(t *testing.T) func() []map[string]any {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := logger.TG
	logger.TG = slog.New(slog.NewJSONHandler(buf, nil))
	t.Cleanup(func() { logger.TG = prev })
	return func() []map[string]any {
		var out []map[string]any
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			if line == "" {
				continue
			}
			rec := map[string]any{}
			require.NoError(t, json.Unmarshal([]byte(line), &rec))
			if rec["event"] == "handler.handled" {
				out = append(out, rec)
			}
		}
		return out
	}
}

func TestTextRouteSummaryCarriesStep(t *testing.T) {
	records := captureSummaries(t)
	fsm := state.NewMemoryManager()
	var got string
	fsm.RegisterHandler("awaiting_amount", func(c tele.Context) error {
		got = c.Text()
		return nil
	})
	user := &tele.User{ID: 5}
	fsm.SetState(user.ID, "awaiting_amount")

	routes := TextRoutes(fsm, tg.NewRegistry(), TextOptions{})
	require.NoError(t, routes[0].Handler(textUpdate(user, "10")))
	assert.Equal(t, "10", got)

	require.NoError(t, routes[0].Handler(textUpdate(&tele.User{ID: 6}, "hello")))

	recs := records()
	require.Len(t, recs, 2)
	assert.Equal(t, "fsm", recs[0]["handler"])
	assert.Equal(t, "awaiting_amount", recs[0]["step"])
	assert.Equal(t, "unknown_text", recs[1]["handler"])
	assert.Equal(t, "skip", recs[1]["status"])
	assert.Nil(t, recs[1]["step"])
}

func TestCallbackSummaryUsesRoutePattern(t *testing.T) {
	records := captureSummaries(t)
	reg := tg.NewRegistry()
	require.NoError(t, reg.RegisterCallbackPrefix("pay_", func(c tele.Context) error {
		tghelpers.Annotate(c, slog.String("currency", "btc"))
		return nil
	}))
	route := CallbackRoute(reg, CallbackOptions{})
	user := &tele.User{ID: 5}

	require.NoError(t, route.Handler(callbackUpdate(user, "pay_btc")))
	require.NoError(t, route.Handler(callbackUpdate(user, "nope")))

	recs := records()
	require.Len(t, recs, 2)
	assert.Equal(t, "callback.pay_*", recs[0]["handler"])
	assert.Equal(t, "pay_btc", recs[0]["cb_key"])
	assert.Equal(t, "btc", recs[0]["currency"])
	assert.Equal(t, "callback.nope", recs[1]["handler"])
	assert.Equal(t, "not_found", recs[1]["cause"])
}

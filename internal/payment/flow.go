package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/m3rciful/paybot/core/logger"
	"github.com/m3rciful/paybot/core/telegram/state"
	"github.com/shopspring/decimal"
)

// Conversation steps.
const (
	StepAwaitingAmount   state.State = "awaiting_amount"
	StepAwaitingCurrency state.State = "awaiting_currency"
)

const amountKey = "amount"

var (
	// ErrNoAmount means a currency was chosen with no amount on record.
	ErrNoAmount = errors.New("payment: no amount on record")
	// ErrInvalidAmount means the text is not a decimal number.
	ErrInvalidAmount = errors.New("payment: invalid amount")
	// ErrAmountTooSmall means the amount is below the configured minimum.
	ErrAmountTooSmall = errors.New("payment: amount below minimum")
)

// CurrencyLister yields the coins that can be offered now.
type CurrencyLister interface {
	Available(ctx context.Context) []string
}

// Invoicer creates a single invoice.
type Invoicer interface {
	Request(ctx context.Context, amount decimal.Decimal, currency string) (Invoice, bool)
}

// FlowOptions wires a Flow.
type FlowOptions struct {
	States        state.Manager
	Catalog       CurrencyLister
	Invoices      Invoicer
	MinAmount     decimal.Decimal
	ButtonsPerRow int
}

// Flow drives NONE -> AWAITING_AMOUNT -> AWAITING_CURRENCY -> cleared.
type Flow struct {
	states   state.Manager
	catalog  CurrencyLister
	invoices Invoicer
	min      decimal.Decimal
	perRow   int

	// claimMu serialises taking the amount out of a session.
	claimMu sync.Mutex
}

// NewFlow builds a Flow. A zero MinAmount means 1 USD; ButtonsPerRow defaults to 2.
func NewFlow(opts FlowOptions) *Flow {
	f := &Flow{
		states:   opts.States,
		catalog:  opts.Catalog,
		invoices: opts.Invoices,
		min:      opts.MinAmount,
		perRow:   opts.ButtonsPerRow,
	}
	if f.states == nil {
		f.states = state.NewMemoryManager()
	}
	if !f.min.IsPositive() {
		f.min = decimal.NewFromInt(1)
	}
	if f.perRow <= 0 {
		f.perRow = 2
	}
	return f
}

// States exposes the session manager backing the flow.
func (f *Flow) States() state.Manager { return f.states }

// Bounds on typed amounts. Decimal arithmetic expands the exponent, so it is checked before any comparison.
const (
	maxAmountText     = 32
	minAmountExponent = -18
	maxAmountExponent = 15
)

// ParseAmount reads a USD amount. It returns ErrInvalidAmount or ErrAmountTooSmall.
func ParseAmount(text string, min decimal.Decimal) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if len(text) > maxAmountText {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if exp := v.Exponent(); exp < minAmountExponent || exp > maxAmountExponent {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if v.LessThan(min) {
		return decimal.Decimal{}, ErrAmountTooSmall
	}
	return v, nil
}

// Begin starts or restarts the flow for userID, dropping any stored amount.
func (f *Flow) Begin(ctx context.Context, userID int64) Reply {
	f.states.Reset(userID, StepAwaitingAmount)
	logger.Info(ctx, "service.payments", "flow.begin",
		slog.String("status", "ok"),
		slog.String("step", string(StepAwaitingAmount)),
	)
	return Reply{Text: MsgEnterAmount}
}

// AwaitingAmount reports whether the next text from userID is an amount.
func (f *Flow) AwaitingAmount(userID int64) bool {
	return f.states.GetState(userID) == StepAwaitingAmount
}

// SubmitAmount handles text while the user is awaiting an amount. Invalid
// input leaves the session untouched.
func (f *Flow) SubmitAmount(ctx context.Context, userID int64, text string) Reply {
	if !f.AwaitingAmount(userID) {
		return Reply{}
	}

	amount, err := ParseAmount(text, f.min)
	switch {
	case errors.Is(err, ErrInvalidAmount):
		amountsTotal.WithLabelValues("invalid").Inc()
		logger.Info(ctx, "service.payments", "flow.amount",
			slog.String("status", "ok"),
			slog.String("outcome", "rejected"),
			slog.String("cause", "invalid"),
			slog.String("payload", logger.SanitizeLimit(text, 64)),
		)
		return Reply{Text: MsgInvalidNumber}
	case errors.Is(err, ErrAmountTooSmall):
		amountsTotal.WithLabelValues("too_small").Inc()
		logger.Info(ctx, "service.payments", "flow.amount",
			slog.String("status", "ok"),
			slog.String("outcome", "rejected"),
			slog.String("cause", "too_small"),
			slog.String("payload", logger.SanitizeLimit(text, 64)),
		)
		return Reply{Text: MinAmountMessage(f.min)}
	}

	amountsTotal.WithLabelValues("accepted").Inc()
	f.states.SetTemp(userID, amountKey, amount)
	f.states.SetState(userID, StepAwaitingCurrency)
	logger.Info(ctx, "service.payments", "flow.amount",
		slog.String("status", "ok"),
		slog.String("step", string(StepAwaitingCurrency)),
		slog.String("amount", amount.String()),
	)

	var codes []string
	if f.catalog != nil {
		codes = f.catalog.Available(ctx)
	}
	if len(codes) == 0 {
		logger.Warn(ctx, "service.payments", "flow.currencies",
			slog.String("status", "ok"),
			slog.String("outcome", "empty"),
		)
		return Reply{Text: MsgNoCurrencies}
	}
	return Reply{
		Text:    MsgChooseCurrency,
		Buttons: CurrencyButtons(codes),
		PerRow:  f.perRow,
	}
}

// claim takes the stored amount and removes the session in one step, so a
// double-tapped button produces at most one invoice.
func (f *Flow) claim(userID int64) (decimal.Decimal, error) {
	f.claimMu.Lock()
	defer f.claimMu.Unlock()
	amount, ok := state.TempAs[decimal.Decimal](f.states, userID, amountKey)
	if !ok {
		return decimal.Decimal{}, ErrNoAmount
	}
	f.states.Clear(userID)
	return amount, nil
}

// SelectCurrency requests an invoice for the stored amount. The session is
// removed whatever the outcome; without a stored amount nothing is requested.
func (f *Flow) SelectCurrency(ctx context.Context, userID int64, currency string) Reply {
	currency = strings.ToLower(strings.TrimSpace(currency))
	amount, err := f.claim(userID)
	if err != nil {
		logger.Info(ctx, "service.payments", "flow.currency",
			slog.String("status", "skip"),
			slog.String("outcome", "stale"),
			slog.String("currency", currency),
		)
		return Reply{Text: MsgStale, Edit: true}
	}

	var (
		inv Invoice
		ok  bool
	)
	if f.invoices != nil {
		inv, ok = f.invoices.Request(ctx, amount, currency)
	}
	if !ok {
		return Reply{Text: InvoiceErrorMessage(currency), Edit: true}
	}
	return Reply{
		Text:    PayMessage(amount, currency),
		Buttons: []Button{{Text: PayNowLabel, URL: inv.URL}},
		PerRow:  1,
		Edit:    true,
	}
}

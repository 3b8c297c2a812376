package payment

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m3rciful/paybot/core/telegram/state"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCatalog []string

func (s staticCatalog) Available(context.Context) []string { return append([]string(nil), s...) }

type recordingInvoicer struct {
	calls    int32
	url      string
	fail     bool
	amount   decimal.Decimal
	currency string
	mu       sync.Mutex
}

func (r *recordingInvoicer) Request(_ context.Context, amount decimal.Decimal, currency string) (Invoice, bool) {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	r.amount, r.currency = amount, currency
	r.mu.Unlock()
	if r.fail {
		return Invoice{}, false
	}
	return Invoice{URL: r.url, Amount: amount, Currency: currency}, true
}

const uid int64 = 42

func newFlow(cat CurrencyLister, inv Invoicer) *Flow {
	return NewFlow(FlowOptions{States: state.NewMemoryManager(), Catalog: cat, Invoices: inv})
}

func TestFlowHappyPath(t *testing.T) {
	ctx := context.Background()
	inv := &recordingInvoicer{url: "https://nowpayments.io/payment/?iid=1"}
	f := newFlow(staticCatalog{"btc", "eth", "sol"}, inv)

	r := f.Begin(ctx, uid)
	assert.Equal(t, MsgEnterAmount, r.Text)
	assert.True(t, f.AwaitingAmount(uid))

	r = f.SubmitAmount(ctx, uid, "10")
	assert.Equal(t, MsgChooseCurrency, r.Text)
	require.Len(t, r.Buttons, 3)
	assert.Equal(t, Button{Text: "BTC", Data: "pay_btc"}, r.Buttons[0])
	assert.Equal(t, 2, r.PerRow)
	assert.Equal(t, StepAwaitingCurrency, f.States().GetState(uid))

	r = f.SelectCurrency(ctx, uid, "btc")
	assert.True(t, r.Edit)
	assert.Equal(t, "Pay $10.00 in BTC using the button below:", r.Text)
	require.Len(t, r.Buttons, 1)
	assert.Equal(t, PayNowLabel, r.Buttons[0].Text)
	assert.Equal(t, "https://nowpayments.io/payment/?iid=1", r.Buttons[0].URL)

	assert.Equal(t, int32(1), inv.calls)
	assert.True(t, inv.amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "btc", inv.currency)
	assert.Equal(t, state.StateIdle, f.States().GetState(uid))
	assert.Empty(t, f.States().Get(uid).TempData)
}

func TestFlowInvalidNumberKeepsState(t *testing.T) {
	ctx := context.Background()
	f := newFlow(staticCatalog{"btc"}, &recordingInvoicer{})
	f.Begin(ctx, uid)

	r := f.SubmitAmount(ctx, uid, "abc")
	assert.Equal(t, MsgInvalidNumber, r.Text)
	assert.Empty(t, r.Buttons)
	assert.True(t, f.AwaitingAmount(uid))
	_, ok := f.States().GetTemp(uid, amountKey)
	assert.False(t, ok)
}

func TestFlowBelowMinimumKeepsState(t *testing.T) {
	ctx := context.Background()
	f := newFlow(staticCatalog{"btc"}, &recordingInvoicer{})
	f.Begin(ctx, uid)

	r := f.SubmitAmount(ctx, uid, "0.5")
	assert.Equal(t, "Minimum payment is $1. Please enter a higher amount.", r.Text)
	assert.True(t, f.AwaitingAmount(uid))
	_, ok := f.States().GetTemp(uid, amountKey)
	assert.False(t, ok)
}

func TestFlowRejectsHugeExponentsQuickly(t *testing.T) {
	ctx := context.Background()
	f := newFlow(staticCatalog{"btc"}, &recordingInvoicer{})
	for _, in := range []string{"1e900000000", "1e-900000000"} {
		f.Begin(ctx, uid)
		done := make(chan Reply, 1)
		go func() { done <- f.SubmitAmount(ctx, uid, in) }()
		select {
		case r := <-done:
			assert.Equal(t, MsgInvalidNumber, r.Text, in)
			assert.True(t, f.AwaitingAmount(uid), in)
		case <-time.After(2 * time.Second):
			t.Fatalf("amount %q was not rejected in time", in)
		}
	}
}

func TestFlowNoCurrencies(t *testing.T) {
	ctx := context.Background()
	f := newFlow(staticCatalog{}, &recordingInvoicer{})
	f.Begin(ctx, uid)

	r := f.SubmitAmount(ctx, uid, "25.5")
	assert.Equal(t, MsgNoCurrencies, r.Text)
	assert.Empty(t, r.Buttons)
	assert.Equal(t, StepAwaitingCurrency, f.States().GetState(uid))
	amount, ok := state.TempAs[decimal.Decimal](f.States(), uid, amountKey)
	require.True(t, ok)
	assert.Equal(t, "25.5", amount.String())
}

func TestFlowStaleSelectionNeverRequests(t *testing.T) {
	ctx := context.Background()
	inv := &recordingInvoicer{url: "https://x"}
	f := newFlow(staticCatalog{"btc"}, inv)

	r := f.SelectCurrency(ctx, uid, "btc")
	assert.Equal(t, MsgStale, r.Text)
	assert.True(t, r.Edit)

	f.Begin(ctx, uid)
	r = f.SelectCurrency(ctx, uid, "btc")
	assert.Equal(t, MsgStale, r.Text)
	assert.True(t, f.AwaitingAmount(uid))

	assert.Equal(t, int32(0), inv.calls)
}

func TestFlowInvoiceFailureClearsState(t *testing.T) {
	ctx := context.Background()
	f := newFlow(staticCatalog{"eth"}, &recordingInvoicer{fail: true})
	f.Begin(ctx, uid)
	f.SubmitAmount(ctx, uid, "12")

	r := f.SelectCurrency(ctx, uid, "eth")
	assert.Equal(t, "Error generating payment invoice for ETH.", r.Text)
	assert.Empty(t, r.Buttons)
	assert.Equal(t, state.StateIdle, f.States().GetState(uid))
}

func TestFlowBeginDropsStaleAmount(t *testing.T) {
	ctx := context.Background()
	f := newFlow(staticCatalog{"btc"}, &recordingInvoicer{})
	f.Begin(ctx, uid)
	f.SubmitAmount(ctx, uid, "50")

	f.Begin(ctx, uid)
	assert.True(t, f.AwaitingAmount(uid))
	_, ok := f.States().GetTemp(uid, amountKey)
	assert.False(t, ok)
}

func TestFlowTextOutsideAmountStepIsInert(t *testing.T) {
	ctx := context.Background()
	f := newFlow(staticCatalog{"btc"}, &recordingInvoicer{})
	assert.Equal(t, Reply{}, f.SubmitAmount(ctx, uid, "10"))
	assert.Equal(t, state.StateIdle, f.States().GetState(uid))
}

func TestFlowDoubleTapRequestsOnce(t *testing.T) {
	ctx := context.Background()
	inv := &recordingInvoicer{url: "https://x"}
	f := newFlow(staticCatalog{"btc"}, inv)
	f.Begin(ctx, uid)
	f.SubmitAmount(ctx, uid, "10")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.SelectCurrency(ctx, uid, "btc")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&inv.calls))
}

func TestFlowCustomMinimum(t *testing.T) {
	ctx := context.Background()
	f := NewFlow(FlowOptions{Catalog: staticCatalog{"btc"}, MinAmount: decimal.RequireFromString("5"), ButtonsPerRow: 3})
	f.Begin(ctx, uid)
	assert.Equal(t, "Minimum payment is $5. Please enter a higher amount.", f.SubmitAmount(ctx, uid, "4.99").Text)
	r := f.SubmitAmount(ctx, uid, "5")
	assert.Equal(t, 3, r.PerRow)
}

func TestParseAmount(t *testing.T) {
	one := decimal.NewFromInt(1)
	cases := []struct {
		in   string
		want string
		err  error
	}{
		{"10", "10", nil},
		{" 100.0 ", "100", nil},
		{"1", "1", nil},
		{"0.99", "", ErrAmountTooSmall},
		{"-3", "", ErrAmountTooSmall},
		{"ten", "", ErrInvalidAmount},
		{"", "", ErrInvalidAmount},
		{"10,5", "", ErrInvalidAmount},
		{"1e900000000", "", ErrInvalidAmount},
		{"1e-900000000", "", ErrInvalidAmount},
		{"1e3", "1000", nil},
		{"123456789012345678901234567890123", "", ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in, one)
		if tc.err != nil {
			assert.ErrorIs(t, err, tc.err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), tc.in)
	}
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "10.00", FormatUSD(decimal.RequireFromString("10")))
	assert.Equal(t, "10.50", FormatUSD(decimal.RequireFromString("10.5")))
	assert.Equal(t, "10.125", FormatUSD(decimal.RequireFromString("10.125")))
}

package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/m3rciful/paybot/internal/nowpayments"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	got []nowpayments.InvoiceRequest
	inv *nowpayments.Invoice
	err error
}

func (f *fakeCreator) CreateInvoice(_ context.Context, req nowpayments.InvoiceRequest) (*nowpayments.Invoice, error) {
	f.got = append(f.got, req)
	return f.inv, f.err
}

func TestInvoiceRequesterBuildsRequest(t *testing.T) {
	api := &fakeCreator{inv: &nowpayments.Invoice{ID: "99", InvoiceURL: " https://pay/99 "}}
	r := NewInvoiceRequester(api, "telegram_order_123")

	inv, ok := r.Request(context.Background(), decimal.RequireFromString("10.5"), "BTC")
	require.True(t, ok)
	assert.Equal(t, "https://pay/99", inv.URL)
	assert.Equal(t, "99", inv.ID)
	assert.Equal(t, "btc", inv.Currency)

	require.Len(t, api.got, 1)
	req := api.got[0]
	assert.Equal(t, "10.5", req.PriceAmount.String())
	assert.Equal(t, "usd", req.PriceCurrency)
	assert.Equal(t, "btc", req.PayCurrency)
	assert.Equal(t, "telegram_order_123", req.OrderID)
	assert.Equal(t, "Telegram Crypto Payment in BTC", req.OrderDescription)
	assert.True(t, req.IsFixedRate)
	assert.False(t, req.IsFeePaidByUser)
}

func TestInvoiceRequesterFailures(t *testing.T) {
	ctx := context.Background()
	ten := decimal.NewFromInt(10)

	api := &fakeCreator{err: &nowpayments.StatusError{Op: "invoice", StatusCode: 400}}
	_, ok := NewInvoiceRequester(api, "o").Request(ctx, ten, "btc")
	assert.False(t, ok)
	assert.Len(t, api.got, 1)

	api = &fakeCreator{err: errors.New("dial tcp: refused")}
	_, ok = NewInvoiceRequester(api, "o").Request(ctx, ten, "btc")
	assert.False(t, ok)

	api = &fakeCreator{inv: &nowpayments.Invoice{ID: "1"}}
	_, ok = NewInvoiceRequester(api, "o").Request(ctx, ten, "btc")
	assert.False(t, ok, "200 without invoice_url is a failure")

	api = &fakeCreator{inv: &nowpayments.Invoice{InvoiceURL: "https://x"}}
	_, ok = NewInvoiceRequester(api, "o").Request(ctx, ten, " ")
	assert.False(t, ok)
	assert.Empty(t, api.got)
}

func TestOrderDescription(t *testing.T) {
	assert.Equal(t, "Telegram Crypto Payment in USDTTRC20", OrderDescription("usdttrc20"))
}

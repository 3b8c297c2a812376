package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/paybot/core/logger"
	"github.com/m3rciful/paybot/internal/nowpayments"
	"github.com/shopspring/decimal"
)

// PriceCurrency is the fiat currency every invoice is priced in.
const PriceCurrency = "usd"

// InvoiceCreator is the processor call used by InvoiceRequester.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, req nowpayments.InvoiceRequest) (*nowpayments.Invoice, error)
}

// Invoice is a created invoice with its hosted payment page.
type Invoice struct {
	ID       string
	URL      string
	Amount   decimal.Decimal
	Currency string
}

// InvoiceRequester prices invoices in USD with a fixed order id.
type InvoiceRequester struct {
	api     InvoiceCreator
	orderID string
}

// NewInvoiceRequester returns a requester that tags every invoice with orderID.
func NewInvoiceRequester(api InvoiceCreator, orderID string) *InvoiceRequester {
	return &InvoiceRequester{api: api, orderID: orderID}
}

// OrderDescription is the description attached to an invoice paid in currency.
func OrderDescription(currency string) string {
	return fmt.Sprintf("Telegram Crypto Payment in %s", strings.ToUpper(currency))
}

// Request creates one invoice. The bool is false on any processor failure
// or when the response carries no invoice URL.
func (r *InvoiceRequester) Request(ctx context.Context, amount decimal.Decimal, currency string) (Invoice, bool) {
	currency = strings.ToLower(strings.TrimSpace(currency))
	attrs := []slog.Attr{
		slog.String("amount", amount.String()),
		slog.String("currency", currency),
	}
	if r == nil || r.api == nil || currency == "" || !amount.IsPositive() {
		invoicesTotal.WithLabelValues("rejected").Inc()
		logger.Warn(ctx, "service.payments", "invoice.create", append(attrs,
			slog.String("status", "skip"),
			slog.String("outcome", "rejected"),
		)...)
		return Invoice{}, false
	}

	inv, err := r.api.CreateInvoice(ctx, nowpayments.InvoiceRequest{
		PriceAmount:      amount,
		PriceCurrency:    PriceCurrency,
		PayCurrency:      currency,
		OrderID:          r.orderID,
		OrderDescription: OrderDescription(currency),
		IsFixedRate:      true,
		IsFeePaidByUser:  false,
	})
	if err != nil {
		invoicesTotal.WithLabelValues("fail").Inc()
		logger.Warn(ctx, "service.payments", "invoice.create", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)...)
		return Invoice{}, false
	}
	if inv == nil || strings.TrimSpace(inv.InvoiceURL) == "" {
		invoicesTotal.WithLabelValues("fail").Inc()
		logger.Warn(ctx, "service.payments", "invoice.create", append(attrs,
			slog.String("status", "fail"),
			slog.String("outcome", "empty"),
		)...)
		return Invoice{}, false
	}

	invoicesTotal.WithLabelValues("ok").Inc()
	logger.Info(ctx, "service.payments", "invoice.create", append(attrs,
		slog.String("status", "ok"),
		slog.String("payload", string(inv.ID)),
	)...)
	return Invoice{
		ID:       string(inv.ID),
		URL:      strings.TrimSpace(inv.InvoiceURL),
		Amount:   amount,
		Currency: currency,
	}, true
}

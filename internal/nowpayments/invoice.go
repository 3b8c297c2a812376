package nowpayments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// InvoiceRequest is the body of POST /invoice.
type InvoiceRequest struct {
	PriceAmount      decimal.Decimal `json:"-"`
	PriceCurrency    string          `json:"price_currency"`
	PayCurrency      string          `json:"pay_currency"`
	OrderID          string          `json:"order_id"`
	OrderDescription string          `json:"order_description"`
	IsFixedRate      bool            `json:"is_fixed_rate"`
	IsFeePaidByUser  bool            `json:"is_fee_paid_by_user"`
}

// MarshalJSON writes price_amount as a JSON number with the exact decimal digits.
func (r InvoiceRequest) MarshalJSON() ([]byte, error) {
	type plain InvoiceRequest
	return json.Marshal(struct {
		PriceAmount json.Number `json:"price_amount"`
		plain
	}{
		PriceAmount: json.Number(r.PriceAmount.String()),
		plain:       plain(r),
	})
}

// Invoice is the subset of the processor's invoice record the bot uses.
type Invoice struct {
	ID               ID              `json:"id"`
	OrderID          string          `json:"order_id"`
	OrderDescription string          `json:"order_description"`
	PriceAmount      decimal.Decimal `json:"price_amount"`
	PriceCurrency    string          `json:"price_currency"`
	PayCurrency      string          `json:"pay_currency"`
	InvoiceURL       string          `json:"invoice_url"`
	CreatedAt        string          `json:"created_at"`
}

// ID is a processor identifier that may arrive as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invoice id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// CreateInvoice posts a single invoice request. It never retries.
func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	raw, err := c.do(ctx, "invoice", http.MethodPost, "/invoice", req)
	if err != nil {
		return nil, err
	}
	var inv Invoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return nil, fmt.Errorf("nowpayments: decode invoice: %w", err)
	}
	return &inv, nil
}

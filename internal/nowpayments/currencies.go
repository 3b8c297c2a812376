package nowpayments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Shape tells which form the currency list arrived in.
type Shape int

const (
	// ShapeBareList is a top-level JSON array.
	ShapeBareList Shape = iota + 1
	// ShapeWrapped is an object carrying the array under "currencies".
	ShapeWrapped
)

// CurrencyList is the advertised currency set. Codes are lower-cased and trimmed.
type CurrencyList struct {
	Shape Shape
	Codes []string
}

type currencyItem struct {
	code string
}

func (ci *currencyItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		ci.code = s
		return nil
	}
	var obj struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("currency item: %w", err)
	}
	ci.code = obj.Code
	return nil
}

// UnmarshalJSON accepts both a bare array and {"currencies": [...]}.
// Items may be plain codes or objects with a "code" field.
func (l *CurrencyList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	var items []currencyItem
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		l.Shape = ShapeBareList
	case strings.HasPrefix(trimmed, "{"):
		var wrapped struct {
			Currencies *[]currencyItem `json:"currencies"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		if wrapped.Currencies == nil {
			return errors.New("currency list: missing \"currencies\" field")
		}
		items = *wrapped.Currencies
		l.Shape = ShapeWrapped
	default:
		return fmt.Errorf("currency list: unsupported JSON %.32q", trimmed)
	}

	l.Codes = make([]string, 0, len(items))
	for _, it := range items {
		if code := strings.ToLower(strings.TrimSpace(it.code)); code != "" {
			l.Codes = append(l.Codes, code)
		}
	}
	return nil
}

// Currencies fetches the advertised currency set.
func (c *Client) Currencies(ctx context.Context) ([]string, error) {
	raw, err := c.do(ctx, "currencies", http.MethodGet, "/currencies", nil)
	if err != nil {
		return nil, err
	}
	var list CurrencyList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("nowpayments: decode currencies: %w", err)
	}
	return list.Codes, nil
}

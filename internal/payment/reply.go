package payment

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// User-facing texts.
const (
	MsgEnterAmount    = "Please enter the amount in USD you want to pay (using . ex: 10.0 for 10 or 100.0 for 100):"
	MsgInvalidNumber  = "Please enter a valid number."
	MsgChooseCurrency = "Choose your preferred cryptocurrency for payment:"
	MsgNoCurrencies   = "No major cryptocurrencies available at the moment."
	MsgStale          = "Please use /pay to start a new payment."
	PayNowLabel       = "Pay Now"
)

// CallbackPrefix starts the data of every currency button.
const CallbackPrefix = "pay_"

// Button is an inline button: either callback Data or a URL.
type Button struct {
	Text string
	Data string
	URL  string
}

// Reply is what the bot answers. Edit asks to replace the message that
// carried the pressed button instead of sending a new one.
type Reply struct {
	Text    string
	Buttons []Button
	PerRow  int
	Edit    bool
}

// MinAmountMessage warns that amount is below min.
func MinAmountMessage(min decimal.Decimal) string {
	return fmt.Sprintf("Minimum payment is $%s. Please enter a higher amount.", min.String())
}

// PayMessage introduces the payment link.
func PayMessage(amount decimal.Decimal, currency string) string {
	return fmt.Sprintf("Pay $%s in %s using the button below:", FormatUSD(amount), strings.ToUpper(currency))
}

// InvoiceErrorMessage reports a failed invoice for currency.
func InvoiceErrorMessage(currency string) string {
	return fmt.Sprintf("Error generating payment invoice for %s.", strings.ToUpper(currency))
}

// FormatUSD renders at least two fraction digits without dropping precision.
func FormatUSD(amount decimal.Decimal) string {
	places := int32(2)
	if exp := -amount.Exponent(); exp > places {
		places = exp
	}
	return amount.StringFixed(places)
}

// CurrencyButtons labels each code upper-case with data "pay_<code>".
func CurrencyButtons(codes []string) []Button {
	out := make([]Button, 0, len(codes))
	for _, code := range codes {
		out = append(out, Button{Text: strings.ToUpper(code), Data: CallbackPrefix + code})
	}
	return out
}

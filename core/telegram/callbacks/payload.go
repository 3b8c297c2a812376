package callbacks

import (
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// SplitPrefixed splits data of the form <prefix><value>, e.g. "pay_btc" with
// prefix "pay_" yields "btc". It fails when the prefix is absent or value is empty.
func SplitPrefixed(data, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(data, prefix) {
		return "", false
	}
	value := data[len(prefix):]
	if value == "" {
		return "", false
	}
	return value, true
}

// PrefixedPayload extracts the value following prefix from the callback data.
func PrefixedPayload(c tele.Context, prefix string) (string, error) {
	value, ok := SplitPrefixed(CallbackData(c), prefix)
	if !ok {
		return "", strconv.ErrSyntax
	}
	return value, nil
}

// PrefixedData builds callback data understood by SplitPrefixed.
func PrefixedData(prefix, value string) string {
	return prefix + value
}

package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	codes []string
	err   error
}

func (f fakeSource) Currencies(context.Context) ([]string, error) { return f.codes, f.err }

func TestFilterCurrenciesKeepsAllowOrder(t *testing.T) {
	got := FilterCurrencies([]string{"XMR", "sol", "BTC", "doge", "ltc"}, TopCoins)
	assert.Equal(t, []string{"btc", "sol", "doge"}, got)
}

func TestFilterCurrenciesEmpty(t *testing.T) {
	assert.Empty(t, FilterCurrencies(nil, TopCoins))
	assert.Empty(t, FilterCurrencies([]string{"xmr", "ltc"}, TopCoins))
	assert.NotNil(t, FilterCurrencies(nil, TopCoins))
}

func TestCatalogAvailable(t *testing.T) {
	ctx := context.Background()

	c := NewCatalog(fakeSource{codes: []string{"eth", "btc", "trump"}}, nil)
	assert.Equal(t, []string{"btc", "eth", "trump"}, c.Available(ctx))

	c = NewCatalog(fakeSource{err: errors.New("status 500")}, nil)
	assert.Empty(t, c.Available(ctx))

	c = NewCatalog(fakeSource{codes: []string{"eth", "btc"}}, []string{"eth"})
	assert.Equal(t, []string{"eth"}, c.Available(ctx))

	var nilCatalog *Catalog
	assert.Empty(t, nilCatalog.Available(ctx))
}

package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPrice(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		amount string
		symbol string
	}{
		{"dollar", "$0.99", "0.99", "$"},
		{"hong kong dollar", "HK$78.00", "78", "HK$"},
		{"yen no decimals", "¥130", "130", "¥"},
		{"euro comma decimal", "0,99 €", "0.99", "€"},
		{"euro grouped thousands", "1.299,00 €", "1299", "€"},
		{"dot thousands no decimal", "1.299 €", "1299", "€"},
		{"dot grouped large", "1.234.567", "1234567", ""},
		{"comma thousands", "₩1,100", "1100", "₩"},
		{"brazilian real", "R$ 4,90", "4.9", "R$"},
		{"grouped with dot decimal", "$1,299.50", "1299.5", "$"},
		{"plain number", "68", "68", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, symbol, err := CleanPrice(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.amount, amount.String())
			assert.Equal(t, tt.symbol, symbol)
		})
	}

	t.Run("bad: empty input", func(t *testing.T) {
		_, _, err := CleanPrice("   ")
		assert.Error(t, err)
	})

	t.Run("bad: no numeric value", func(t *testing.T) {
		_, _, err := CleanPrice("Free")
		assert.Error(t, err)
	})
}

func TestMapCurrency(t *testing.T) {
	tests := []struct {
		symbol string
		region string
		want   string
	}{
		{"$", "US", "USD"},
		{"$", "CA", "CAD"},
		{"$", "AU", "AUD"},
		{"$", "SG", "SGD"},
		{"HK$", "HK", "HKD"},
		{"NZ$", "NZ", "NZD"},
		{"R$", "BR", "BRL"},
		{"¥", "CN", "CNY"},
		{"¥", "JP", "JPY"},
		{"￥", "JP", "JPY"},
		{"€", "DE", "EUR"},
		{"£", "GB", "GBP"},
		{"₹", "IN", "INR"},
		{"₩", "KR", "KRW"},
		{"₺", "TR", "TRY"},
		{"USD", "US", "USD"},
		{"RMB", "CN", "CNY"},
		{"", "GB", "GBP"},
		{"", "TR", "TRY"},
	}

	for _, tt := range tests {
		t.Run(tt.symbol+"/"+tt.region, func(t *testing.T) {
			assert.Equal(t, tt.want, MapCurrency(tt.symbol, tt.region))
		})
	}

	t.Run("bad: unknown symbol and region", func(t *testing.T) {
		assert.Equal(t, "", MapCurrency("¤", "ZZ"))
	})
}

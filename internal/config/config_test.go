package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FallbackRates(t *testing.T) {
	t.Run("happy: parses currency:rate pairs", func(t *testing.T) {
		t.Setenv("FALLBACK_RATES", "usd:7.30, EUR:7.90")

		cfg := Load()
		require.Len(t, cfg.FallbackRates, 2)
		assert.True(t, cfg.FallbackRates["USD"].Equal(decimal.RequireFromString("7.30")))
		assert.True(t, cfg.FallbackRates["EUR"].Equal(decimal.RequireFromString("7.90")))
	})

	t.Run("edge: malformed and non-positive entries are dropped", func(t *testing.T) {
		t.Setenv("FALLBACK_RATES", "USD:7.30,nonsense,GBP:abc,TRY:-1,:2")

		cfg := Load()
		require.Len(t, cfg.FallbackRates, 1)
		assert.True(t, cfg.FallbackRates["USD"].Equal(decimal.RequireFromString("7.30")))
	})

	t.Run("edge: empty means no overrides", func(t *testing.T) {
		t.Setenv("FALLBACK_RATES", "")

		cfg := Load()
		assert.Nil(t, cfg.FallbackRates)
	})
}

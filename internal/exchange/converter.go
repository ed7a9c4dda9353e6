package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Source reports where a conversion rate came from.
type Source int

const (
	SourceNone Source = iota
	SourceLive
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceLive:
		return "live"
	case SourceFallback:
		return "fallback"
	default:
		return "none"
	}
}

const referenceCurrency = "CNY"

// Converter turns local-currency amounts into CNY. It caches the full rate
// table from one live fetch and guards the live provider with a circuit
// breaker; when no live rate is reachable it falls back to a static table.
// Safe for concurrent use; a breaker trip seen by one conversion is visible
// to every later conversion.
type Converter struct {
	client   *http.Client
	apiURL   string
	apiKey   string
	fallback map[string]decimal.Decimal

	mu        sync.Mutex
	rates     map[string]decimal.Decimal
	fetchedAt time.Time
	br        breaker

	cacheTTL time.Duration
	now      func() time.Time
}

func New(apiURL, apiKey string) *Converter {
	return &Converter{
		client:   &http.Client{Timeout: 15 * time.Second},
		apiURL:   strings.TrimRight(apiURL, "/"),
		apiKey:   apiKey,
		fallback: defaultFallbackRates(),
		br:       breaker{cooldown: defaultCooldown},
		cacheTTL: defaultCooldown,
		now:      time.Now,
	}
}

// SetFallbackRates overlays configured currency→CNY entries on the built-in
// table, overriding matching currencies and adding new ones.
func (c *Converter) SetFallbackRates(rates map[string]decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for cur, rate := range rates {
		c.fallback[strings.ToUpper(cur)] = rate
	}
}

// Convert returns the CNY amount for price in the given currency, rounded to
// two decimal places, along with the rate source. An invalid NullDecimal with
// SourceNone means the currency is unknown to both the live table and the
// fallback table; callers persist such records without a reference price.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, currency string) (decimal.NullDecimal, Source) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == referenceCurrency {
		return decimal.NewNullDecimal(amount.Round(2)), SourceLive
	}
	if currency == "" {
		return decimal.NullDecimal{}, SourceNone
	}

	// One conversion at a time: the breaker transition made here must be
	// observed by every subsequent conversion in the run.
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	cacheFresh := c.rates != nil && now.Sub(c.fetchedAt) < c.cacheTTL
	if cacheFresh {
		if rate, ok := c.rates[currency]; ok {
			return decimal.NewNullDecimal(amount.Mul(rate).Round(2)), SourceLive
		}
		// A fresh table that lacks the currency settles the question;
		// refetching would return the same table.
	} else if c.br.allow(now) {
		rates, err := c.fetchRates(ctx)
		if err != nil {
			c.br.failure(now)
			log.Warn().Err(err).
				Int("failures", c.br.failures).
				Msg("live rate fetch failed")
		} else {
			c.br.success()
			c.rates = rates
			c.fetchedAt = now
			if rate, ok := rates[currency]; ok {
				return decimal.NewNullDecimal(amount.Mul(rate).Round(2)), SourceLive
			}
		}
	}

	if rate, ok := c.fallback[currency]; ok {
		return decimal.NewNullDecimal(amount.Mul(rate).Round(2)), SourceFallback
	}

	log.Warn().Str("currency", currency).Msg("no conversion rate available")
	return decimal.NullDecimal{}, SourceNone
}

type ratesResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// fetchRates pulls the full table from the provider. The endpoint returns
// units of each currency per 1 CNY, so rates are inverted before caching.
func (c *Converter) fetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", c.apiURL, c.apiKey, referenceCurrency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var parsed ratesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse rate response: %w", err)
	}
	if parsed.Result != "success" {
		return nil, fmt.Errorf("rate API error: %s", parsed.ErrorType)
	}
	if len(parsed.ConversionRates) == 0 {
		return nil, fmt.Errorf("rate API returned empty table")
	}

	one := decimal.NewFromInt(1)
	rates := make(map[string]decimal.Decimal, len(parsed.ConversionRates))
	for cur, perCNY := range parsed.ConversionRates {
		if perCNY <= 0 {
			continue
		}
		rates[strings.ToUpper(cur)] = one.Div(decimal.NewFromFloat(perCNY))
	}

	log.Info().Int("currencies", len(rates)).Msg("exchange rate table refreshed")
	return rates, nil
}

// defaultFallbackRates is a manually maintained currency→CNY table used when
// the live provider is unavailable. Values are approximate.
func defaultFallbackRates() map[string]decimal.Decimal {
	raw := map[string]string{
		"USD": "7.25", "EUR": "7.85", "GBP": "9.15", "JPY": "0.048",
		"HKD": "0.93", "KRW": "0.0052", "INR": "0.086", "AUD": "4.70",
		"CAD": "5.25", "BRL": "1.30", "MXN": "0.39", "TRY": "0.21",
		"SGD": "5.40", "CHF": "8.10", "NZD": "4.35", "SEK": "0.68",
		"NOK": "0.67", "DKK": "1.05", "PLN": "1.80", "RUB": "0.078",
		"ZAR": "0.40", "AED": "1.97", "SAR": "1.93", "IDR": "0.00045",
		"MYR": "1.62", "THB": "0.21", "VND": "0.00029", "PHP": "0.125",
	}
	rates := make(map[string]decimal.Decimal, len(raw))
	for cur, v := range raw {
		rates[cur] = decimal.RequireFromString(v)
	}
	return rates
}

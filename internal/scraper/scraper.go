// Package scraper fetches subscription prices from regional storefronts.
// Each tracked app has a strategy implementing Scraper; new apps are added
// as new variants, not by branching inside shared code.
package scraper

import (
	"context"
	"net/http"
	"time"

	"github.com/nie11kun/price-comparator/internal/model"
)

// Status distinguishes "the app has no listing in this region" from a real
// failure. Hard failures (network, non-2xx other than 404, unparseable
// markup) are returned as errors instead.
type Status int

const (
	StatusFound Status = iota
	StatusNotAvailable
)

// Result carries the records scraped for one (app, region) pair.
type Result struct {
	Status  Status
	Records []model.PriceRecord
}

type Scraper interface {
	AppName() string
	Scrape(ctx context.Context, region string) (Result, error)
}

// Storefronts are picky about obviously non-browser clients.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.127 Safari/537.36"

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 20 * time.Second}
}

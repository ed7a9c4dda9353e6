package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/nie11kun/price-comparator/internal/exchange"
	"github.com/nie11kun/price-comparator/internal/model"
	"github.com/nie11kun/price-comparator/internal/scraper"
)

// PriceStore is the persistence contract the pipeline and read path depend
// on, implemented by repository.PriceRepository.
type PriceStore interface {
	ReplaceAppPrices(ctx context.Context, records []model.PriceRecord) (int, error)
	QueryPrices(ctx context.Context, appName, planName string) ([]model.PriceRecord, error)
	LastUpdated(ctx context.Context) (time.Time, error)
}

// Converter fills the reference-currency price of a record.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, currency string) (decimal.NullDecimal, exchange.Source)
}

// ScraperFactory builds a fresh scraper set for one run, so per-run caches
// (the iCloud support page) start cold each time.
type ScraperFactory func() []scraper.Scraper

// DefaultScraperFactory covers the tracked app catalog.
func DefaultScraperFactory() []scraper.Scraper {
	scrapers := make([]scraper.Scraper, 0, len(model.Apps))
	for _, app := range model.Apps {
		switch app.Source {
		case model.SourceSupportPage:
			scrapers = append(scrapers, scraper.NewICloudScraper())
		case model.SourceAppStore:
			scrapers = append(scrapers, scraper.NewAppStoreScraper(app))
		}
	}
	return scrapers
}

// RunState tracks the pipeline lifecycle.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// RunError records one (app, region) pair that contributed nothing.
type RunError struct {
	App    string `json:"app"`
	Region string `json:"region"`
	Reason string `json:"reason"`
}

// Summary reports the outcome of one pipeline run.
type Summary struct {
	RecordsWritten  int        `json:"records_written"`
	RegionsExcluded int        `json:"regions_excluded"`
	Errors          []RunError `json:"errors"`
	StartedAt       time.Time  `json:"started_at"`
	DurationMS      int64      `json:"duration_ms"`
}

// UpdateService orchestrates a full price refresh: scrape all apps across
// all target regions, convert to CNY, filter, dedupe, and persist. At most
// one run executes at a time.
type UpdateService struct {
	store       PriceStore
	converter   Converter
	newScrapers ScraperFactory

	regions  []string
	excluded map[string]bool
	delay    time.Duration

	runMu sync.Mutex

	stateMu sync.Mutex
	state   RunState

	now func() time.Time
}

func NewUpdateService(store PriceStore, conv Converter, factory ScraperFactory, targetRegions, excludedRegions []string, delay time.Duration) *UpdateService {
	excluded := make(map[string]bool, len(excludedRegions))
	for _, r := range excludedRegions {
		excluded[r] = true
	}
	return &UpdateService{
		store:       store,
		converter:   conv,
		newScrapers: factory,
		regions:     targetRegions,
		excluded:    excluded,
		delay:       delay,
		state:       StateIdle,
		now:         time.Now,
	}
}

// State returns the current pipeline state.
func (s *UpdateService) State() RunState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *UpdateService) setState(st RunState) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// Run executes one pipeline pass. A scrape failure for one (app, region)
// pair lands in Summary.Errors and never stops the rest; only a storage
// failure makes the run itself fail. A second Run while one is active
// returns ErrUpdateRunning.
func (s *UpdateService) Run(ctx context.Context) (Summary, error) {
	if !s.runMu.TryLock() {
		return Summary{}, ErrUpdateRunning
	}
	defer s.runMu.Unlock()

	s.setState(StateRunning)
	startedAt := s.now().UTC()
	log.Info().Msg("price update run started")

	collected, runErrs := s.scrapeAll(ctx)

	var excludedCount int
	final := make([]model.PriceRecord, 0, len(collected))
	seen := make(map[string]bool, len(collected))
	for _, rec := range collected {
		if s.excluded[rec.Region] {
			excludedCount++
			continue
		}

		cny, src := s.converter.Convert(ctx, rec.Price, rec.Currency)
		rec.PriceCNY = cny
		if src == exchange.SourceNone {
			log.Warn().
				Str("app", rec.AppName).
				Str("region", rec.Region).
				Str("currency", rec.Currency).
				Msg("record persisted without reference price")
		}

		if rec.PlanName == "" {
			rec.PlanName = inferPlan(rec.AppName, rec.Currency, rec.Price)
		}
		rec.LastUpdated = startedAt

		if seen[rec.Key()] {
			continue
		}
		seen[rec.Key()] = true
		final = append(final, rec)
	}

	written, err := s.store.ReplaceAppPrices(ctx, final)
	summary := Summary{
		RecordsWritten:  written,
		RegionsExcluded: excludedCount,
		Errors:          runErrs,
		StartedAt:       startedAt,
		DurationMS:      s.now().UTC().Sub(startedAt).Milliseconds(),
	}
	if err != nil {
		s.setState(StateFailed)
		log.Error().Err(err).Msg("price update run failed")
		return summary, fmt.Errorf("persist price records: %w", err)
	}

	s.setState(StateCompleted)
	log.Info().
		Int("records_written", written).
		Int("regions_excluded", excludedCount).
		Int("errors", len(runErrs)).
		Dur("duration", time.Duration(summary.DurationMS)*time.Millisecond).
		Msg("price update run completed")
	return summary, nil
}

// scrapeAll fans out per app; regions within one app stay serial with the
// configured delay to avoid storefront rate limiting.
func (s *UpdateService) scrapeAll(ctx context.Context) ([]model.PriceRecord, []RunError) {
	var (
		mu        sync.Mutex
		collected []model.PriceRecord
		runErrs   []RunError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)

	for _, sc := range s.newScrapers() {
		sc := sc
		g.Go(func() error {
			for i, region := range s.regions {
				if i > 0 && s.delay > 0 {
					select {
					case <-time.After(s.delay):
					case <-gctx.Done():
						return nil
					}
				}

				result, err := sc.Scrape(gctx, region)
				mu.Lock()
				switch {
				case err != nil:
					runErrs = append(runErrs, RunError{App: sc.AppName(), Region: region, Reason: err.Error()})
					log.Warn().Err(err).
						Str("app", sc.AppName()).
						Str("region", region).
						Msg("scrape failed")
				case result.Status == scraper.StatusNotAvailable:
					log.Debug().
						Str("app", sc.AppName()).
						Str("region", region).
						Msg("app not available in region")
				default:
					collected = append(collected, result.Records...)
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return collected, runErrs
}

// icloudUSDTiers maps US storefront prices to storage tiers, for records
// whose source page exposes no plan label.
var icloudUSDTiers = map[string]string{
	"0.99":  "50GB",
	"2.99":  "200GB",
	"9.99":  "2TB",
	"29.99": "6TB",
	"59.99": "12TB",
}

func inferPlan(appName, currency string, price decimal.Decimal) string {
	if appName != model.AppICloud || currency != "USD" {
		return ""
	}
	return icloudUSDTiers[price.StringFixed(2)]
}

package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/nie11kun/price-comparator/internal/model"
)

const defaultAppStoreURL = "https://apps.apple.com"

// AppStoreScraper reads in-app-purchase prices from a region-specific App
// Store listing page. Selectors target stable layout classes rather than
// localized text, so a translated page still parses.
type AppStoreScraper struct {
	client  *http.Client
	app     model.App
	baseURL string
}

func NewAppStoreScraper(app model.App) *AppStoreScraper {
	return &AppStoreScraper{
		client:  newHTTPClient(),
		app:     app,
		baseURL: defaultAppStoreURL,
	}
}

func (s *AppStoreScraper) AppName() string { return s.app.Name }

func (s *AppStoreScraper) Scrape(ctx context.Context, region string) (Result, error) {
	region = strings.ToUpper(region)
	url := fmt.Sprintf("%s/%s/app/id%s", s.baseURL, strings.ToLower(region), s.app.AppStoreID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", fmt.Sprintf("%s-%s,en-US;q=0.9,en;q=0.8", strings.ToLower(region), region))

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	// Apps simply have no listing in some storefronts; that is not a failure.
	if resp.StatusCode == http.StatusNotFound {
		return Result{Status: StatusNotAvailable}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("parse %s: %w", url, err)
	}

	records := s.parseInAppPurchases(doc, region)
	if len(records) == 0 {
		return Result{}, fmt.Errorf("no in-app purchase items parsed for %s/%s", s.app.Name, region)
	}
	return Result{Status: StatusFound, Records: records}, nil
}

func (s *AppStoreScraper) parseInAppPurchases(doc *goquery.Document, region string) []model.PriceRecord {
	var records []model.PriceRecord

	doc.Find("li.list-with-numbers__item").Each(func(_ int, item *goquery.Selection) {
		plan := strings.TrimSpace(item.Find(".list-with-numbers__item__title").First().Text())
		priceText := strings.TrimSpace(item.Find(".list-with-numbers__item__price").First().Text())
		if plan == "" || priceText == "" {
			return
		}

		amount, symbol, err := CleanPrice(priceText)
		if err != nil {
			log.Warn().Err(err).
				Str("app", s.app.Name).
				Str("region", region).
				Str("plan", plan).
				Msg("unparseable price text")
			return
		}
		currency := MapCurrency(symbol, region)
		if currency == "" {
			log.Warn().
				Str("app", s.app.Name).
				Str("region", region).
				Str("symbol", symbol).
				Msg("could not determine currency")
			return
		}

		records = append(records, model.PriceRecord{
			AppName:  s.app.Name,
			PlanName: plan,
			Region:   region,
			Currency: currency,
			Price:    amount,
		})
	})

	return records
}

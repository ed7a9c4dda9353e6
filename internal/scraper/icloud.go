package scraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/nie11kun/price-comparator/internal/model"
)

const defaultICloudURL = "https://support.apple.com/en-us/108047"

// countryHeading matches table cells like "United States (USD)".
var countryHeading = regexp.MustCompile(`^(.+?)\s*\(([A-Z]{3})\)$`)

// ICloudScraper reads iCloud+ tier prices from Apple's support page, which
// lists every region on a single structured table. The page is fetched once
// per scraper instance; the pipeline constructs a fresh instance per run.
type ICloudScraper struct {
	client  *http.Client
	pageURL string

	once     sync.Once
	byRegion map[string][]model.PriceRecord
	loadErr  error
}

func NewICloudScraper() *ICloudScraper {
	return &ICloudScraper{
		client:  newHTTPClient(),
		pageURL: defaultICloudURL,
	}
}

func (s *ICloudScraper) AppName() string { return model.AppICloud }

// Scrape returns the tiers for one region. A region missing from the table
// is an empty Found result, not an error: the page simply does not list it.
func (s *ICloudScraper) Scrape(ctx context.Context, region string) (Result, error) {
	s.once.Do(func() { s.load(ctx) })
	if s.loadErr != nil {
		return Result{}, s.loadErr
	}
	return Result{Status: StatusFound, Records: s.byRegion[strings.ToUpper(region)]}, nil
}

func (s *ICloudScraper) load(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		s.loadErr = fmt.Errorf("create request: %w", err)
		return
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.loadErr = fmt.Errorf("fetch %s: %w", s.pageURL, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.loadErr = fmt.Errorf("fetch %s: status %d", s.pageURL, resp.StatusCode)
		return
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		s.loadErr = fmt.Errorf("parse %s: %w", s.pageURL, err)
		return
	}

	s.byRegion = parsePricingTables(doc)
	if len(s.byRegion) == 0 {
		s.loadErr = fmt.Errorf("no pricing tables parsed from %s", s.pageURL)
		return
	}
	log.Info().Int("regions", len(s.byRegion)).Msg("iCloud+ pricing table loaded")
}

// parsePricingTables walks every table on the page. The header row names the
// storage tiers; each body row starts with "Country (CUR)" followed by one
// local price per tier.
func parsePricingTables(doc *goquery.Document) map[string][]model.PriceRecord {
	byRegion := make(map[string][]model.PriceRecord)

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		var tiers []string
		rows.First().Find("th, td").Each(func(i int, cell *goquery.Selection) {
			if i == 0 {
				return
			}
			tiers = append(tiers, strings.TrimSpace(cell.Text()))
		})
		if len(tiers) == 0 {
			return
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("th, td")
			if cells.Length() < 2 {
				return
			}

			heading := strings.TrimSpace(cells.First().Text())
			m := countryHeading.FindStringSubmatch(heading)
			if m == nil {
				return
			}
			region := regionForCountry(m[1])
			if region == "" {
				log.Debug().Str("country", m[1]).Msg("unrecognized country in pricing table")
				return
			}
			currency := m[2]

			cells.Slice(1, cells.Length()).Each(func(i int, cell *goquery.Selection) {
				if i >= len(tiers) {
					return
				}
				amount, _, err := CleanPrice(cell.Text())
				if err != nil {
					return
				}
				byRegion[region] = append(byRegion[region], model.PriceRecord{
					AppName:  model.AppICloud,
					PlanName: tiers[i],
					Region:   region,
					Currency: currency,
					Price:    amount,
				})
			})
		})
	})

	return byRegion
}

var (
	countryRegionOnce sync.Once
	countryRegion     map[string]string
)

func regionForCountry(name string) string {
	countryRegionOnce.Do(func() {
		countryRegion = make(map[string]string, len(model.CountryNames))
		for code, n := range model.CountryNames {
			countryRegion[strings.ToLower(n)] = code
		}
	})
	return countryRegion[strings.ToLower(strings.TrimSpace(name))]
}

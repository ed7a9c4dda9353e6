package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one observed subscription price point for an app in a
// regional storefront. PlanName is empty when the source page carries no
// distinct plan label; PriceCNY is invalid when no conversion rate exists.
type PriceRecord struct {
	ID          int64               `json:"-"`
	AppName     string              `json:"app_name"`
	PlanName    string              `json:"plan_name,omitempty"`
	Region      string              `json:"region"`
	CountryName string              `json:"country_name,omitempty"`
	Currency    string              `json:"currency"`
	Price       decimal.Decimal     `json:"price"`
	PriceCNY    decimal.NullDecimal `json:"price_cny"`
	LastUpdated time.Time           `json:"last_updated"`
}

// Key identifies the row a record replaces: one price per app/plan/region.
func (r PriceRecord) Key() string {
	return r.AppName + "|" + r.PlanName + "|" + r.Region
}

type AppSource string

const (
	SourceSupportPage AppSource = "support_page"
	SourceAppStore    AppSource = "app_store"
)

// App describes one entry of the fixed catalog of tracked applications.
type App struct {
	Name       string
	AppStoreID string
	Source     AppSource
}

const (
	AppICloud    = "iCloud+"
	AppChatGPT   = "ChatGPT"
	AppClaude    = "Claude"
	AppGoogleOne = "Google One"
)

// Apps is the catalog of tracked applications. iCloud+ pricing lives on a
// single support page covering all regions; the rest are scraped per-region
// from their App Store listings.
var Apps = []App{
	{Name: AppICloud, Source: SourceSupportPage},
	{Name: AppChatGPT, AppStoreID: "6448311069", Source: SourceAppStore},
	{Name: AppClaude, AppStoreID: "6473753684", Source: SourceAppStore},
	{Name: AppGoogleOne, AppStoreID: "1451784328", Source: SourceAppStore},
}

// KnownApp reports whether name is in the tracked catalog.
func KnownApp(name string) bool {
	for _, a := range Apps {
		if a.Name == name {
			return true
		}
	}
	return false
}

// RegionCurrency maps ISO 3166-1 alpha-2 region codes to the primary
// currency of that storefront. Used when a scraped price carries an
// ambiguous symbol.
var RegionCurrency = map[string]string{
	"US": "USD", "CN": "CNY", "JP": "JPY", "GB": "GBP", "DE": "EUR",
	"FR": "EUR", "IT": "EUR", "ES": "EUR", "AU": "AUD", "CA": "CAD",
	"IN": "INR", "BR": "BRL", "TR": "TRY", "MX": "MXN", "KR": "KRW",
	"HK": "HKD", "SG": "SGD", "RU": "RUB", "CH": "CHF", "NZ": "NZD",
	"SE": "SEK", "NO": "NOK", "DK": "DKK", "PL": "PLN", "ZA": "ZAR",
	"AE": "AED", "SA": "SAR", "ID": "IDR", "MY": "MYR", "TH": "THB",
	"VN": "VND", "PH": "PHP", "CL": "CLP", "CO": "COP", "PE": "PEN",
	"AR": "ARS", "NG": "NGN", "EG": "EGP",
}

// CountryNames maps region codes to display names for API responses.
var CountryNames = map[string]string{
	"US": "United States", "CN": "China", "JP": "Japan",
	"GB": "United Kingdom", "DE": "Germany", "FR": "France",
	"IT": "Italy", "ES": "Spain", "AU": "Australia", "CA": "Canada",
	"IN": "India", "BR": "Brazil", "TR": "Turkey", "MX": "Mexico",
	"KR": "South Korea", "HK": "Hong Kong", "SG": "Singapore",
	"RU": "Russia", "CH": "Switzerland", "NZ": "New Zealand",
	"SE": "Sweden", "NO": "Norway", "DK": "Denmark", "PL": "Poland",
	"ZA": "South Africa", "AE": "United Arab Emirates",
	"SA": "Saudi Arabia", "ID": "Indonesia", "MY": "Malaysia",
	"TH": "Thailand", "VN": "Vietnam", "PH": "Philippines",
	"CL": "Chile", "CO": "Colombia", "PE": "Peru", "AR": "Argentina",
	"NG": "Nigeria", "EG": "Egypt",
}

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port        string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	AutoMigrate bool
	GinMode     string

	// Pipeline settings.
	TargetRegions   []string
	ExcludedRegions []string
	ScrapeInterval  time.Duration
	ScrapeDelay     time.Duration
	RunOnStart      bool

	// Exchange rate provider.
	ExchangeRateAPIURL string
	ExchangeRateAPIKey string
	FallbackRates      map[string]decimal.Decimal
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "pricecmp"),
		DBPassword:  getEnv("DB_PASSWORD", "pricecmp_secret"),
		DBName:      getEnv("DB_NAME", "pricecmp"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		AutoMigrate: getEnv("AUTO_MIGRATE", "false") == "true",
		GinMode:     getEnv("GIN_MODE", "debug"),

		TargetRegions: getEnvList("TARGET_REGIONS",
			"US,CN,JP,GB,DE,AU,CA,IN,BR,TR,MX,KR,HK,SG,FR,IT,ES"),
		ExcludedRegions: getEnvList("EXCLUDED_REGIONS", "EG,PH"),
		ScrapeInterval:  getEnvDuration("SCRAPE_INTERVAL", 6*time.Hour),
		ScrapeDelay:     getEnvDuration("SCRAPE_DELAY", time.Second),
		RunOnStart:      getEnv("RUN_ON_START", "false") == "true",

		ExchangeRateAPIURL: getEnv("EXCHANGE_RATE_API_URL", "https://v6.exchangerate-api.com/v6"),
		ExchangeRateAPIKey: getEnv("EXCHANGE_RATE_API_KEY", ""),
		FallbackRates:      getEnvRates("FALLBACK_RATES"),
	}
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvRates parses currency→CNY overrides for the converter's fallback
// table, e.g. "USD:7.30,EUR:7.90". Malformed or non-positive entries are
// dropped.
func getEnvRates(key string) map[string]decimal.Decimal {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	rates := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		cur, val, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil || !rate.IsPositive() {
			continue
		}
		cur = strings.ToUpper(strings.TrimSpace(cur))
		if cur != "" {
			rates[cur] = rate
		}
	}
	return rates
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

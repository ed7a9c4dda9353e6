package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nie11kun/price-comparator/internal/model"
)

var numericRun = regexp.MustCompile(`[\d.,]+`)

// CleanPrice extracts a decimal amount and the leftover currency symbol from
// a raw storefront price string such as "HK$78.00" or "1.299,00 €".
func CleanPrice(text string) (decimal.Decimal, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Decimal{}, "", fmt.Errorf("empty price text")
	}

	run := numericRun.FindString(text)
	if run == "" {
		return decimal.Decimal{}, "", fmt.Errorf("no numeric value in %q", text)
	}
	symbol := strings.TrimSpace(strings.Replace(text, run, "", 1))

	amount, err := decimal.NewFromString(normalizeSeparators(run))
	if err != nil {
		return decimal.Decimal{}, symbol, fmt.Errorf("parse price %q: %w", text, err)
	}
	if amount.IsNegative() {
		return decimal.Decimal{}, symbol, fmt.Errorf("negative price %q", text)
	}
	return amount, symbol, nil
}

// normalizeSeparators rewrites locale-specific grouping so the string parses
// as a plain decimal: in "1.299,00" the dot groups thousands, in "1,299.00"
// the comma does.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		digitsAfter := len(s) - lastComma - 1
		if strings.Count(s, ",") == 1 && digitsAfter > 0 && digitsAfter <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		// Same heuristic for a dot-grouped price like "1.299": only a lone
		// dot followed by one or two digits is a decimal point.
		digitsAfter := len(s) - lastDot - 1
		if strings.Count(s, ".") > 1 || digitsAfter == 0 || digitsAfter > 2 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}
	return s
}

// MapCurrency resolves an ISO currency code from a storefront price symbol,
// falling back to the region's primary currency when the symbol is absent or
// ambiguous ("$" in CA means CAD, "¥" in CN means CNY but JPY elsewhere).
func MapCurrency(symbol, region string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	region = strings.ToUpper(strings.TrimSpace(region))

	compound := []struct{ marker, code string }{
		{"HK$", "HKD"}, {"NZ$", "NZD"}, {"R$", "BRL"}, {"S/", "PEN"},
		{"USD", "USD"}, {"EUR", "EUR"}, {"GBP", "GBP"}, {"CAD", "CAD"},
		{"AUD", "AUD"}, {"SGD", "SGD"}, {"MXN", "MXN"}, {"RMB", "CNY"},
		{"CNY", "CNY"}, {"CHF", "CHF"}, {"INR", "INR"}, {"KRW", "KRW"},
		{"TRY", "TRY"}, {"NGN", "NGN"}, {"RUB", "RUB"},
	}
	for _, c := range compound {
		if strings.Contains(symbol, c.marker) {
			return c.code
		}
	}

	switch symbol {
	case "€":
		return "EUR"
	case "£":
		return "GBP"
	case "₹":
		return "INR"
	case "₽":
		return "RUB"
	case "₩":
		return "KRW"
	case "₺":
		return "TRY"
	case "₦":
		return "NGN"
	case "¥", "￥":
		if region == "CN" {
			return "CNY"
		}
		return "JPY"
	}

	// Bare "$" and everything else: trust the region's storefront currency.
	if code, ok := model.RegionCurrency[region]; ok {
		return code
	}
	if symbol == "$" {
		return "USD"
	}
	return ""
}

package service

import (
	"context"
	"sort"
	"time"

	"github.com/nie11kun/price-comparator/internal/model"
)

// NeverUpdated is the last_updated sentinel for an empty store.
const NeverUpdated = "Never"

// topPriced caps how many cheapest rows the read path returns before the
// US and CN anchor rows are merged in.
const topPriced = 10

type PricesResponse struct {
	App         string              `json:"app"`
	PlanFilter  string              `json:"plan_filter,omitempty"`
	Prices      []model.PriceRecord `json:"prices"`
	LastUpdated string              `json:"last_updated"`
}

// PriceService serves stored prices to the read API.
type PriceService struct {
	store PriceStore
}

func NewPriceService(store PriceStore) *PriceService {
	return &PriceService{store: store}
}

// GetPrices returns the cheapest rows in the reference currency for an app,
// always including the US and CN rows when present so the two anchor markets
// stay comparable, followed by rows that have no converted price.
func (s *PriceService) GetPrices(ctx context.Context, appName, planName string) (*PricesResponse, error) {
	if !model.KnownApp(appName) {
		return nil, ErrUnknownApp
	}

	rows, err := s.store.QueryPrices(ctx, appName, planName)
	if err != nil {
		return nil, err
	}

	lastUpdated, err := s.store.LastUpdated(ctx)
	if err != nil {
		return nil, err
	}

	resp := &PricesResponse{
		App:         appName,
		PlanFilter:  planName,
		Prices:      shapePrices(rows),
		LastUpdated: NeverUpdated,
	}
	if !lastUpdated.IsZero() {
		resp.LastUpdated = lastUpdated.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// shapePrices assumes rows arrive ordered by price_cny ascending with nulls
// last, which the store guarantees.
func shapePrices(rows []model.PriceRecord) []model.PriceRecord {
	var priced, unpriced []model.PriceRecord
	for _, r := range rows {
		r.CountryName = model.CountryNames[r.Region]
		if r.PriceCNY.Valid {
			priced = append(priced, r)
		} else {
			unpriced = append(unpriced, r)
		}
	}

	selected := make([]model.PriceRecord, 0, topPriced+2)
	seen := make(map[string]bool, topPriced+2)
	add := func(r model.PriceRecord) {
		key := r.Region + "|" + r.PlanName
		if !seen[key] {
			seen[key] = true
			selected = append(selected, r)
		}
	}

	for i, r := range priced {
		if i >= topPriced {
			break
		}
		add(r)
	}
	for _, anchor := range []string{"US", "CN"} {
		for _, r := range priced {
			if r.Region == anchor {
				add(r)
				break
			}
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].PriceCNY.Decimal.LessThan(selected[j].PriceCNY.Decimal)
	})

	out := make([]model.PriceRecord, 0, len(selected)+len(unpriced))
	out = append(out, selected...)
	out = append(out, unpriced...)
	return out
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/nie11kun/price-comparator/internal/model"
)

type PriceRepository struct {
	pool *pgxpool.Pool
}

func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// ReplaceAppPrices commits one pipeline run: inside a single transaction it
// drops all rows for every app present in the batch, then inserts the new
// rows. Records failing basic validation are skipped individually so one bad
// row cannot sink the batch. Returns the number of rows written.
func (r *PriceRepository) ReplaceAppPrices(ctx context.Context, records []model.PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	apps := make([]string, 0, 4)
	seen := make(map[string]bool, 4)
	valid := make([]model.PriceRecord, 0, len(records))
	for _, rec := range records {
		if rec.AppName == "" || rec.Region == "" || rec.Currency == "" || rec.Price.IsNegative() {
			log.Warn().
				Str("app", rec.AppName).
				Str("region", rec.Region).
				Msg("skipping invalid price record")
			continue
		}
		valid = append(valid, rec)
		if !seen[rec.AppName] {
			seen[rec.AppName] = true
			apps = append(apps, rec.AppName)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin replace transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM prices WHERE app_name = ANY($1)`, apps); err != nil {
		return 0, fmt.Errorf("delete stale prices: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rec := range valid {
		batch.Queue(
			`INSERT INTO prices (app_name, plan_name, region, currency, price, price_cny, last_updated)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (app_name, plan_name, region) DO UPDATE SET
				currency = EXCLUDED.currency,
				price = EXCLUDED.price,
				price_cny = EXCLUDED.price_cny,
				last_updated = EXCLUDED.last_updated`,
			rec.AppName, rec.PlanName, rec.Region, rec.Currency,
			rec.Price, rec.PriceCNY, rec.LastUpdated,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range valid {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("insert price record %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit replace transaction: %w", err)
	}
	return len(valid), nil
}

// QueryPrices returns all rows for an app, optionally narrowed to one plan,
// cheapest in the reference currency first; rows without a converted price
// sort last.
func (r *PriceRepository) QueryPrices(ctx context.Context, appName, planName string) ([]model.PriceRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, app_name, plan_name, region, currency, price, price_cny, last_updated
		FROM prices
		WHERE app_name = $1 AND ($2 = '' OR plan_name = $2)
		ORDER BY price_cny ASC NULLS LAST, region ASC`,
		appName, planName,
	)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var results []model.PriceRecord
	for rows.Next() {
		var rec model.PriceRecord
		if err := rows.Scan(
			&rec.ID, &rec.AppName, &rec.PlanName, &rec.Region,
			&rec.Currency, &rec.Price, &rec.PriceCNY, &rec.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("scan price row: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// LastUpdated returns the most recent run timestamp across all rows, or the
// zero time when the store is empty.
func (r *PriceRepository) LastUpdated(ctx context.Context) (time.Time, error) {
	var ts *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(last_updated) FROM prices`).Scan(&ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("query last updated: %w", err)
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return *ts, nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CurrencyRates loads the persisted rate snapshot and the time of its
// most recent update. An empty table returns a nil map and zero time.
func (r *Repository) CurrencyRates(ctx context.Context) (map[string]float64, time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT currency, rate, updated_at FROM currency_rates`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load currency rates: %w", err)
	}
	defer rows.Close()

	var rates map[string]float64
	var lastUpdate time.Time
	for rows.Next() {
		var currency string
		var rate float64
		var updatedAt sql.NullTime
		if err := rows.Scan(&currency, &rate, &updatedAt); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan currency rate: %w", err)
		}
		if rates == nil {
			rates = map[string]float64{}
		}
		rates[currency] = rate
		if updatedAt.Valid && updatedAt.Time.After(lastUpdate) {
			lastUpdate = updatedAt.Time
		}
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("iterate currency rates: %w", err)
	}

	return rates, lastUpdate, nil
}

// UpdateCurrencyRates replaces the persisted snapshot in one
// transaction: either every currency lands with the new timestamp or
// none do.
func (r *Repository) UpdateCurrencyRates(ctx context.Context, rates map[string]float64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rates update: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for currency, rate := range rates {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO currency_rates (currency, rate, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(currency) DO UPDATE SET rate = excluded.rate, updated_at = excluded.updated_at`,
			currency, rate, now)
		if err != nil {
			return fmt.Errorf("upsert rate %s: %w", currency, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rates update: %w", err)
	}
	return nil
}

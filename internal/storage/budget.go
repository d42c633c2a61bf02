package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/core"
)

// SetBudget upserts the budget for a (month, owner) key. The conflict
// clause makes concurrent sets for the same key collapse to one row with
// the last committed amount; there is no read-then-write window.
func (r *Repository) SetBudget(ctx context.Context, owner core.Owner, month string, amount float64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budget (month, amount, owner) VALUES (?, ?, ?)
		 ON CONFLICT(month, owner) DO UPDATE SET amount = excluded.amount`,
		month, amount, string(owner))
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget set", "owner", string(owner), "month", month, "amount", amount)
	return nil
}

// ClearBudget deletes the budget row for a month. An absent row is a
// no-op.
func (r *Repository) ClearBudget(ctx context.Context, owner core.Owner, month string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM budget WHERE month = ? AND owner = ?`, month, string(owner))
	if err != nil {
		return fmt.Errorf("clear budget: %w", err)
	}
	return nil
}

// Budget returns the budget amount for a month, zero when none is set.
// Zero is a valid sentinel at this layer, not a distinguishable "unset".
func (r *Repository) Budget(ctx context.Context, owner core.Owner, month string) (float64, error) {
	var amount float64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount FROM budget WHERE month = ? AND owner = ?`,
		month, string(owner)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get budget: %w", err)
	}
	return amount, nil
}

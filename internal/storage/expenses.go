package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/core"
)

// DefaultPageSize caps a listing page when the caller does not say.
const DefaultPageSize = 50

// ListFilter narrows and pages an expense listing. Search matches the
// name or category as a case-insensitive substring; Category is an
// exact match. Page is 1-indexed.
type ListFilter struct {
	Page     int
	PageSize int
	Search   string
	Category string
}

// AddExpense inserts a new expense and returns its store-assigned id.
// The amount must already be normalized to base currency by the caller.
func (r *Repository) AddExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, name, amount, category, due_date, owner)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Date, e.Name, e.Amount, e.Category, e.DueDate, string(e.Owner))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"name", e.Name,
		"amount", e.Amount,
		"category", e.Category)

	return id, nil
}

// ListExpenses returns one page of an owner's expenses plus the total
// count of rows matching the filter before pagination. Ordering is date
// descending with id descending as the tie-break, so the most recently
// inserted row within a date comes first. An out-of-range page yields an
// empty slice with the correct total.
func (r *Repository) ListExpenses(ctx context.Context, owner core.Owner, f ListFilter) ([]core.Expense, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}

	where := ` WHERE owner = ?`
	args := []any{string(owner)}
	if f.Search != "" {
		where += ` AND (name LIKE ? OR category LIKE ?)`
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if f.Category != "" {
		where += ` AND category = ?`
		args = append(args, f.Category)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count expenses: %w", err)
	}

	query := `SELECT id, date, name, amount, category, due_date, owner, created_at FROM expenses` +
		where + ` ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	items := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expenses: %w", err)
	}

	return items, total, nil
}

// ExpenseByID fetches a single expense scoped to its owner. A foreign
// owner's id is core.ErrNotFound, indistinguishable from a missing row.
func (r *Repository) ExpenseByID(ctx context.Context, id int64, owner core.Owner) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, date, name, amount, category, due_date, owner, created_at
		 FROM expenses WHERE id = ? AND owner = ?`,
		id, string(owner))

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

// UpdateExpense replaces the mutable fields of an expense. Updating an
// id that does not belong to the owner affects zero rows and is not an
// error.
func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET date = ?, name = ?, amount = ?, category = ?, due_date = ?
		 WHERE id = ? AND owner = ?`,
		e.Date, e.Name, e.Amount, e.Category, e.DueDate, e.ID, string(e.Owner))
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return nil
}

// DeleteExpense removes an owner's expense. Missing or foreign ids are
// harmless no-ops.
func (r *Repository) DeleteExpense(ctx context.Context, id int64, owner core.Owner) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND owner = ?`, id, string(owner))
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

// DeleteAllExpenses wipes every expense for one owner.
func (r *Repository) DeleteAllExpenses(ctx context.Context, owner core.Owner) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE owner = ?`, string(owner))
	if err != nil {
		return fmt.Errorf("delete all expenses: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		slog.InfoContext(ctx, "Deleted all expenses", "owner", string(owner), "count", n)
	}
	return nil
}

// ReportAggregate computes the full report for an owner: grand total,
// per-category and per-month sums, and the complete ordered expense
// list. The month bucket is the first seven characters of the stored
// date, which is safe because dates are normalized to YYYY-MM-DD at the
// boundary.
func (r *Repository) ReportAggregate(ctx context.Context, owner core.Owner) (core.Report, error) {
	report := core.Report{
		CategoryTotals: map[string]float64{},
		MonthlyTotals:  map[string]float64{},
		Expenses:       []core.Expense{},
	}

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE owner = ?`,
		string(owner)).Scan(&report.Total)
	if err != nil {
		return core.Report{}, fmt.Errorf("sum expenses: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount) FROM expenses WHERE owner = ? GROUP BY category`,
		string(owner))
	if err != nil {
		return core.Report{}, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var sum float64
		if err := rows.Scan(&category, &sum); err != nil {
			return core.Report{}, fmt.Errorf("scan category total: %w", err)
		}
		report.CategoryTotals[category] = sum
	}
	if err := rows.Err(); err != nil {
		return core.Report{}, fmt.Errorf("iterate category totals: %w", err)
	}

	months, err := r.db.QueryContext(ctx,
		`SELECT substr(date, 1, 7) AS month, SUM(amount)
		 FROM expenses WHERE owner = ? GROUP BY month`,
		string(owner))
	if err != nil {
		return core.Report{}, fmt.Errorf("monthly totals: %w", err)
	}
	defer months.Close()
	for months.Next() {
		var month string
		var sum float64
		if err := months.Scan(&month, &sum); err != nil {
			return core.Report{}, fmt.Errorf("scan monthly total: %w", err)
		}
		report.MonthlyTotals[month] = sum
	}
	if err := months.Err(); err != nil {
		return core.Report{}, fmt.Errorf("iterate monthly totals: %w", err)
	}

	all, err := r.db.QueryContext(ctx,
		`SELECT id, date, name, amount, category, due_date, owner, created_at
		 FROM expenses WHERE owner = ? ORDER BY date DESC, id DESC`,
		string(owner))
	if err != nil {
		return core.Report{}, fmt.Errorf("list all expenses: %w", err)
	}
	defer all.Close()
	for all.Next() {
		e, err := scanExpense(all)
		if err != nil {
			return core.Report{}, err
		}
		report.Expenses = append(report.Expenses, e)
	}
	if err := all.Err(); err != nil {
		return core.Report{}, fmt.Errorf("iterate all expenses: %w", err)
	}

	return report, nil
}

// MonthSpend sums an owner's expenses whose date falls in the given
// YYYY-MM month.
func (r *Repository) MonthSpend(ctx context.Context, owner core.Owner, month string) (float64, error) {
	var spent float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses
		 WHERE substr(date, 1, 7) = ? AND owner = ?`,
		month, string(owner)).Scan(&spent)
	if err != nil {
		return 0, fmt.Errorf("sum month spend: %w", err)
	}
	return spent, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var owner string
	var createdAt sql.NullTime
	if err := row.Scan(&e.ID, &e.Date, &e.Name, &e.Amount, &e.Category, &e.DueDate, &owner, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Expense{}, err
		}
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Owner = core.Owner(owner)
	if createdAt.Valid {
		e.CreatedAt = createdAt.Time
	}
	return e, nil
}

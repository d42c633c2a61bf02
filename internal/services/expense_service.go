// Package services orchestrates the stores, the currency converter and
// the event publisher behind the request handlers. Amounts cross this
// layer in display currency and are persisted in base currency.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"gastos/internal/amqp"
	"gastos/internal/core"
	"gastos/internal/currency"
	"gastos/internal/storage"
)

// ExpenseInput carries the user-entered fields of an expense. Amount is
// in the caller's display currency.
type ExpenseInput struct {
	Date     string
	Name     string
	Amount   float64
	Category string
	DueDate  string
}

// ExpenseService owns the write path of the expense store: it is the
// single place where display amounts are normalized to base currency.
type ExpenseService struct {
	repo      *storage.Repository
	converter *currency.Converter
	events    *amqp.Client
}

// NewExpenseService wires the expense workflow. events may be nil when
// no broker is configured.
func NewExpenseService(repo *storage.Repository, converter *currency.Converter, events *amqp.Client) *ExpenseService {
	return &ExpenseService{
		repo:      repo,
		converter: converter,
		events:    events,
	}
}

// Create normalizes the amount to base currency, validates the record
// and persists it.
func (s *ExpenseService) Create(ctx context.Context, owner core.Owner, in ExpenseInput, displayCurrency string) (int64, error) {
	e := core.Expense{
		Date:     in.Date,
		Name:     in.Name,
		Amount:   s.converter.ToBase(in.Amount, displayCurrency),
		Category: in.Category,
		DueDate:  in.DueDate,
		Owner:    owner,
	}
	if err := e.Validate(); err != nil {
		return 0, err
	}

	id, err := s.repo.AddExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, id, owner, amqp.ActionCreated)
	return id, nil
}

// Update replaces an expense's mutable fields. An id belonging to
// another owner affects zero rows and reports no error.
func (s *ExpenseService) Update(ctx context.Context, owner core.Owner, id int64, in ExpenseInput, displayCurrency string) error {
	e := core.Expense{
		ID:       id,
		Date:     in.Date,
		Name:     in.Name,
		Amount:   s.converter.ToBase(in.Amount, displayCurrency),
		Category: in.Category,
		DueDate:  in.DueDate,
		Owner:    owner,
	}
	if err := e.Validate(); err != nil {
		return err
	}

	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}

	s.publish(ctx, id, owner, amqp.ActionUpdated)
	return nil
}

// Get fetches one expense with its amount converted for display.
func (s *ExpenseService) Get(ctx context.Context, owner core.Owner, id int64, displayCurrency string) (core.Expense, error) {
	e, err := s.repo.ExpenseByID(ctx, id, owner)
	if err != nil {
		return core.Expense{}, err
	}
	e.Amount = s.converter.FromBase(e.Amount, displayCurrency)
	return e, nil
}

// List returns one page of expenses plus the pre-pagination match
// count, amounts converted for display.
func (s *ExpenseService) List(ctx context.Context, owner core.Owner, f storage.ListFilter, displayCurrency string) ([]core.Expense, int, error) {
	items, total, err := s.repo.ListExpenses(ctx, owner, f)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].Amount = s.converter.FromBase(items[i].Amount, displayCurrency)
	}
	return items, total, nil
}

// Delete removes one expense; missing or foreign ids are no-ops.
func (s *ExpenseService) Delete(ctx context.Context, owner core.Owner, id int64) error {
	if err := s.repo.DeleteExpense(ctx, id, owner); err != nil {
		return err
	}
	s.publish(ctx, id, owner, amqp.ActionDeleted)
	return nil
}

// DeleteAll wipes the owner's full history.
func (s *ExpenseService) DeleteAll(ctx context.Context, owner core.Owner) error {
	return s.repo.DeleteAllExpenses(ctx, owner)
}

// Report builds the aggregate report with every amount converted for
// display.
func (s *ExpenseService) Report(ctx context.Context, owner core.Owner, displayCurrency string) (core.Report, error) {
	report, err := s.repo.ReportAggregate(ctx, owner)
	if err != nil {
		return core.Report{}, err
	}

	report.Total = s.converter.FromBase(report.Total, displayCurrency)
	for category, sum := range report.CategoryTotals {
		report.CategoryTotals[category] = s.converter.FromBase(sum, displayCurrency)
	}
	for month, sum := range report.MonthlyTotals {
		report.MonthlyTotals[month] = s.converter.FromBase(sum, displayCurrency)
	}
	for i := range report.Expenses {
		report.Expenses[i].Amount = s.converter.FromBase(report.Expenses[i].Amount, displayCurrency)
	}
	return report, nil
}

func (s *ExpenseService) publish(ctx context.Context, id int64, owner core.Owner, action string) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(id, string(owner), action)); err != nil {
		// The expense is already persisted; a lost event is not worth
		// failing the request.
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"id", id, "action", action, "error", err)
	}
}

// Close releases the event publisher. The repository is owned by the
// caller and closed separately.
func (s *ExpenseService) Close() error {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			return fmt.Errorf("close events: %w", err)
		}
	}
	return nil
}

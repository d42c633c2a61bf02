package services

import (
	"context"
	"fmt"
	"time"

	"gastos/internal/core"
	"gastos/internal/currency"
	"gastos/internal/storage"
)

// BudgetService manages the one-budget-per-month limit and derives its
// status from the expense store's monthly aggregate.
type BudgetService struct {
	repo      *storage.Repository
	converter *currency.Converter
	now       func() time.Time
}

func NewBudgetService(repo *storage.Repository, converter *currency.Converter) *BudgetService {
	return &BudgetService{
		repo:      repo,
		converter: converter,
		now:       time.Now,
	}
}

// Set upserts the budget for a month, defaulting to the current month
// when none is given. The amount arrives in display currency.
func (s *BudgetService) Set(ctx context.Context, owner core.Owner, month string, amount float64, displayCurrency string) error {
	if month == "" {
		month = core.CurrentMonth(s.now())
	}
	if !core.ValidMonth(month) {
		return core.ErrInvalidMonth
	}

	base := s.converter.ToBase(amount, displayCurrency)
	if err := s.repo.SetBudget(ctx, owner, month, base); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

// Clear removes a month's budget; a missing row is a no-op.
func (s *BudgetService) Clear(ctx context.Context, owner core.Owner, month string) error {
	if month == "" {
		month = core.CurrentMonth(s.now())
	}
	return s.repo.ClearBudget(ctx, owner, month)
}

// Status reports budget, spend, remaining and percentage for a month,
// converted to the display currency. A zero budget reports percentage 0
// even with nonzero spend; that quirk is long-standing and callers
// display it as-is.
func (s *BudgetService) Status(ctx context.Context, owner core.Owner, month string, displayCurrency string) (core.BudgetStatus, error) {
	if month == "" {
		month = core.CurrentMonth(s.now())
	}

	budget, err := s.repo.Budget(ctx, owner, month)
	if err != nil {
		return core.BudgetStatus{}, err
	}

	spent, err := s.repo.MonthSpend(ctx, owner, month)
	if err != nil {
		return core.BudgetStatus{}, err
	}

	percentage := 0.0
	if budget > 0 {
		percentage = spent / budget * 100
	}

	return core.BudgetStatus{
		Budget:     s.converter.FromBase(budget, displayCurrency),
		Spent:      s.converter.FromBase(spent, displayCurrency),
		Remaining:  s.converter.FromBase(budget-spent, displayCurrency),
		Percentage: percentage,
		Month:      month,
	}, nil
}

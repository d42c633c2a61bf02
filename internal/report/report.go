// Package report renders the aggregate expense report as CSV or PDF.
// Every amount handed to this package is already converted to the
// display currency; rendering only formats.
package report

import (
	"fmt"
	"sort"
	"time"

	"gastos/internal/core"
)

// Data is everything a rendered report needs.
type Data struct {
	Country   string
	Currency  string
	Symbol    string
	Status    core.BudgetStatus
	Report    core.Report
	Generated time.Time
}

// budget status thresholds for the status line
const warnPercentage = 80

func (d Data) statusLine() string {
	switch {
	case d.Status.Remaining < 0:
		return fmt.Sprintf("OVER BUDGET by %s", d.amount(-d.Status.Remaining))
	case d.Status.Percentage > warnPercentage:
		return fmt.Sprintf("WARNING: %.1f%% used", d.Status.Percentage)
	default:
		return "On Track"
	}
}

func (d Data) amount(v float64) string {
	return fmt.Sprintf("%s%.2f", d.Symbol, v)
}

type categoryTotal struct {
	Name   string
	Amount float64
}

// categoriesByAmount returns category totals sorted largest first.
func (d Data) categoriesByAmount() []categoryTotal {
	out := make([]categoryTotal, 0, len(d.Report.CategoryTotals))
	for name, amount := range d.Report.CategoryTotals {
		out = append(out, categoryTotal{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// monthsNewestFirst returns the monthly bucket keys in reverse
// chronological order.
func (d Data) monthsNewestFirst() []string {
	months := make([]string, 0, len(d.Report.MonthlyTotals))
	for month := range d.Report.MonthlyTotals {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

func (d Data) categoryShare(amount float64) float64 {
	if d.Report.Total <= 0 {
		return 0
	}
	return amount / d.Report.Total * 100
}

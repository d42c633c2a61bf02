package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV renders the full report as a sectioned CSV document: budget
// status, expense details, summary, category breakdown and monthly
// breakdown.
func WriteCSV(w io.Writer, d Data) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"MONTHLY BUDGET STATUS"},
		{"Country", d.Country},
		{"Currency", d.Currency},
		{"Month", d.Status.Month},
		{"Budget Amount", d.amount(d.Status.Budget)},
		{"Total Spent", d.amount(d.Status.Spent)},
		{"Remaining", d.amount(d.Status.Remaining)},
		{"Percentage Used", fmt.Sprintf("%.1f%%", d.Status.Percentage)},
		{"Status", d.statusLine()},
		{},
		{"EXPENSE DETAILS"},
		{"Date", "Expense Name", "Amount", "Category", "Due Date"},
	}
	for _, e := range d.Report.Expenses {
		rows = append(rows, []string{e.Date, e.Name, fmt.Sprintf("%.2f", e.Amount), e.Category, e.DueDate})
	}

	rows = append(rows,
		[]string{},
		[]string{"SUMMARY"},
		[]string{"Total Expenses", d.amount(d.Report.Total)},
		[]string{"Total Transactions", strconv.Itoa(len(d.Report.Expenses))},
		[]string{},
		[]string{"CATEGORY BREAKDOWN"},
		[]string{"Category", "Amount", "Percentage"},
	)
	for _, ct := range d.categoriesByAmount() {
		rows = append(rows, []string{
			ct.Name,
			d.amount(ct.Amount),
			fmt.Sprintf("%.1f%%", d.categoryShare(ct.Amount)),
		})
	}

	rows = append(rows,
		[]string{},
		[]string{"MONTHLY BREAKDOWN"},
		[]string{"Month", "Amount"},
	)
	for _, month := range d.monthsNewestFirst() {
		rows = append(rows, []string{month, d.amount(d.Report.MonthlyTotals[month])})
	}

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// pdfDetailLimit caps the expense detail table at the most recent rows
// so a long history does not balloon the document.
const pdfDetailLimit = 50

// WritePDF renders the report as a PDF document: summary, category
// breakdown, monthly breakdown and a capped expense detail table.
func WritePDF(w io.Writer, d Data) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	headerFill := [3]int{102, 126, 234}
	altFill := [3]int{245, 245, 220}
	lineColor := [3]int{200, 200, 200}

	sectionTitle := func(title string) {
		pdf.SetFont("Arial", "B", 14)
		pdf.SetTextColor(118, 75, 162)
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(7)
		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
		pdf.Ln(4)
		pdf.SetTextColor(50, 50, 50)
	}

	tableHeader := func(widths []float64, labels []string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
		pdf.SetTextColor(255, 255, 255)
		for i, label := range labels {
			pdf.CellFormat(widths[i], 8, tr(label), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(50, 50, 50)
	}

	tableRow := func(widths []float64, cells []string, fill bool) {
		pdf.SetFillColor(altFill[0], altFill[1], altFill[2])
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 7, tr(cell), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.AddPage()

	pdf.SetFont("Arial", "B", 22)
	pdf.SetTextColor(102, 126, 234)
	pdf.CellFormat(0, 14, "Expense Tracker Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(50, 50, 50)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Generated: %s", d.Generated.Format("January 2, 2006 3:04 PM"))), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Currency: %s %s", d.Symbol, d.Currency)), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	sectionTitle("Summary")
	summary := [][2]string{
		{"Total Expenses:", d.amount(d.Report.Total)},
		{"Total Transactions:", fmt.Sprintf("%d", len(d.Report.Expenses))},
		{"Categories:", fmt.Sprintf("%d", len(d.Report.CategoryTotals))},
		{"Monthly Budget:", d.amount(d.Status.Budget)},
		{"Budget Used:", fmt.Sprintf("%.1f%%", d.Status.Percentage)},
		{"Remaining:", d.amount(d.Status.Remaining)},
		{"Status:", d.statusLine()},
	}
	pdf.SetFont("Arial", "", 10)
	for _, row := range summary {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 7, tr(row[0]), "1", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(70, 7, tr(row[1]), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	sectionTitle("Category Breakdown")
	catWidths := []float64{80, 55, 55}
	tableHeader(catWidths, []string{"Category", "Amount", "Percentage"})
	for i, ct := range d.categoriesByAmount() {
		tableRow(catWidths, []string{
			ct.Name,
			d.amount(ct.Amount),
			fmt.Sprintf("%.1f%%", d.categoryShare(ct.Amount)),
		}, i%2 == 1)
	}
	pdf.Ln(8)

	sectionTitle("Monthly Breakdown")
	monthWidths := []float64{95, 95}
	tableHeader(monthWidths, []string{"Month", "Amount"})
	for i, month := range d.monthsNewestFirst() {
		tableRow(monthWidths, []string{month, d.amount(d.Report.MonthlyTotals[month])}, i%2 == 1)
	}

	pdf.AddPage()
	sectionTitle("Expense Details")
	detailWidths := []float64{30, 75, 35, 50}
	tableHeader(detailWidths, []string{"Date", "Name", "Amount", "Category"})
	expenses := d.Report.Expenses
	if len(expenses) > pdfDetailLimit {
		expenses = expenses[:pdfDetailLimit]
	}
	for i, e := range expenses {
		name := e.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		tableRow(detailWidths, []string{e.Date, name, d.amount(e.Amount), e.Category}, i%2 == 1)
	}

	pdf.SetY(-15)
	pdf.SetFont("Arial", "I", 8)
	pdf.SetTextColor(128, 128, 128)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Expense Tracker | %s", d.Generated.Format("2006-01-02"))), "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

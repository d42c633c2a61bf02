package http

import (
	"fmt"
	"net/http"
	"time"

	"gastos/internal/core"
	"gastos/internal/currency"
	"gastos/internal/report"
)

func (s *Server) loadReport(r *http.Request) (core.Report, error) {
	owner := s.ownerFromRequest(r)
	cur := s.displayCurrency(r)

	key := reportCacheKey(owner, cur)
	if cached, ok := s.reportCache.Get(key); ok {
		return cached, nil
	}

	rep, err := s.expenses.Report(r.Context(), owner, cur)
	if err != nil {
		return core.Report{}, err
	}

	s.reportCache.Set(key, rep)
	return rep, nil
}

func (s *Server) buildReportData(r *http.Request) (report.Data, error) {
	rep, err := s.loadReport(r)
	if err != nil {
		return report.Data{}, err
	}

	status, err := s.budgets.Status(r.Context(), s.ownerFromRequest(r), "", s.displayCurrency(r))
	if err != nil {
		return report.Data{}, err
	}

	country := s.countryFromRequest(r)
	info := currency.CountryInfo(country)
	return report.Data{
		Country:   country,
		Currency:  info.Currency,
		Symbol:    info.Symbol,
		Status:    status,
		Report:    rep,
		Generated: time.Now(),
	}, nil
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	data, err := s.buildReportData(r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "building report failed")
		return
	}

	items := make([]expenseJSON, len(data.Report.Expenses))
	for i, e := range data.Report.Expenses {
		items[i] = toExpenseJSON(e)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":           data.Report.Total,
		"category_totals": data.Report.CategoryTotals,
		"monthly_totals":  data.Report.MonthlyTotals,
		"expenses":        items,
		"budget_status":   data.Status,
		"country":         data.Country,
		"currency":        data.Currency,
		"symbol":          data.Symbol,
	})
}

func (s *Server) handleReportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := s.buildReportData(r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "CSV report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "building report failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="expenses_report_%s.csv"`, data.Generated.Format("20060102")))

	if err := report.WriteCSV(w, data); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV rendering failed", "error", err)
	}
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	data, err := s.buildReportData(r)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "PDF report failed", "error", err)
		writeError(w, http.StatusInternalServerError, "building report failed")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="expense_report_%s.pdf"`, data.Generated.Format("20060102")))

	if err := report.WritePDF(w, data); err != nil {
		s.logger.ErrorContext(r.Context(), "PDF rendering failed", "error", err)
	}
}

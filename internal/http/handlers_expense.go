package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"gastos/internal/core"
	"gastos/internal/currency"
	"gastos/internal/services"
	"gastos/internal/storage"
)

type expenseJSON struct {
	ID       int64   `json:"id"`
	Date     string  `json:"date"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	DueDate  string  `json:"due_date,omitempty"`
}

type expenseRequest struct {
	Date     string  `json:"date"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	DueDate  string  `json:"due_date"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:       e.ID,
		Date:     e.Date,
		Name:     e.Name,
		Amount:   e.Amount,
		Category: e.Category,
		DueDate:  e.DueDate,
	}
}

func (in expenseRequest) toInput() services.ExpenseInput {
	return services.ExpenseInput{
		Date:     sanitizeInput(in.Date),
		Name:     sanitizeInput(in.Name),
		Amount:   in.Amount,
		Category: sanitizeInput(in.Category),
		DueDate:  sanitizeInput(in.DueDate),
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerFromRequest(r)
	cur := s.displayCurrency(r)

	filter := storage.ListFilter{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", storage.DefaultPageSize),
		Search:   sanitizeInput(r.URL.Query().Get("search")),
		Category: sanitizeInput(r.URL.Query().Get("category")),
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = storage.DefaultPageSize
	}

	items, total, err := s.expenses.List(r.Context(), owner, filter, cur)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List expenses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing expenses failed")
		return
	}

	out := make([]expenseJSON, len(items))
	for i, e := range items {
		out[i] = toExpenseJSON(e)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":       out,
		"total":       total,
		"page":        filter.Page,
		"page_size":   filter.PageSize,
		"total_pages": (total + filter.PageSize - 1) / filter.PageSize,
		"currency":    cur,
		"symbol":      currency.Symbol(s.countryFromRequest(r)),
	})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := s.ownerFromRequest(r)
	cur := s.displayCurrency(r)

	in := req.toInput()
	id, err := s.expenses.Create(r.Context(), owner, in, cur)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "Create expense failed", "error", err)
		writeError(w, http.StatusInternalServerError, "saving expense failed")
		return
	}

	s.invalidate(owner, cur, core.MonthOf(in.Date), core.CurrentMonth(time.Now()))
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	e, err := s.expenses.Get(r.Context(), s.ownerFromRequest(r), id, s.displayCurrency(r))
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, "expense not found")
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Get expense failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "loading expense failed")
		return
	}

	writeJSON(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := s.ownerFromRequest(r)
	cur := s.displayCurrency(r)
	in := req.toInput()

	// The update can move the expense to a different month; the cached
	// status of the month it leaves goes stale too.
	months := []string{core.MonthOf(in.Date), core.CurrentMonth(time.Now())}
	if prev, err := s.expenses.Get(r.Context(), owner, id, cur); err == nil {
		months = append(months, core.MonthOf(prev.Date))
	}

	if err := s.expenses.Update(r.Context(), owner, id, in, cur); err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "Update expense failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "updating expense failed")
		return
	}

	s.invalidate(owner, cur, months...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	owner := s.ownerFromRequest(r)
	cur := s.displayCurrency(r)

	// Resolve the month before the row disappears so its cached status
	// can be dropped.
	months := []string{core.CurrentMonth(time.Now())}
	if e, err := s.expenses.Get(r.Context(), owner, id, cur); err == nil {
		months = append(months, core.MonthOf(e.Date))
	}

	if err := s.expenses.Delete(r.Context(), owner, id); err != nil {
		s.logger.ErrorContext(r.Context(), "Delete expense failed", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "deleting expense failed")
		return
	}

	s.invalidate(owner, cur, months...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAllExpenses(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerFromRequest(r)
	cur := s.displayCurrency(r)

	if err := s.expenses.DeleteAll(r.Context(), owner); err != nil {
		s.logger.ErrorContext(r.Context(), "Delete all expenses failed", "error", err)
		writeError(w, http.StatusInternalServerError, "deleting expenses failed")
		return
	}

	// Every month's spend just changed; drop the owner's entries wholesale.
	s.invalidateOwner(owner, cur)
	w.WriteHeader(http.StatusNoContent)
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidDate) ||
		errors.Is(err, core.ErrEmptyName) ||
		errors.Is(err, core.ErrNegativeAmount) ||
		errors.Is(err, core.ErrInvalidMonth)
}

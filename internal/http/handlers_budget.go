package http

import (
	"net/http"
	"time"

	"gastos/internal/core"
)

type budgetRequest struct {
	Amount float64 `json:"amount"`
	Month  string  `json:"month"`
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerFromRequest(r)
	cur := s.displayCurrency(r)

	month := sanitizeInput(r.URL.Query().Get("month"))
	if month == "" {
		month = core.CurrentMonth(time.Now())
	}
	if !core.ValidMonth(month) {
		writeError(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
		return
	}

	key := statusCacheKey(owner, month, cur)
	if status, ok := s.statusCache.Get(key); ok {
		writeJSON(w, http.StatusOK, status)
		return
	}

	status, err := s.budgets.Status(r.Context(), owner, month, cur)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Budget status failed", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "loading budget status failed")
		return
	}

	s.statusCache.Set(key, status)
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	owner := s.ownerFromRequest(r)
	cur := s.displayCurrency(r)

	req.Month = sanitizeInput(req.Month)
	if err := s.budgets.Set(r.Context(), owner, req.Month, req.Amount, cur); err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.ErrorContext(r.Context(), "Set budget failed", "error", err, "month", req.Month)
		writeError(w, http.StatusInternalServerError, "setting budget failed")
		return
	}

	month := req.Month
	if month == "" {
		month = core.CurrentMonth(time.Now())
	}
	s.invalidate(owner, cur, month)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearBudget(w http.ResponseWriter, r *http.Request) {
	owner := s.ownerFromRequest(r)
	cur := s.displayCurrency(r)

	month := sanitizeInput(r.URL.Query().Get("month"))
	if month != "" && !core.ValidMonth(month) {
		writeError(w, http.StatusBadRequest, "invalid month, expected YYYY-MM")
		return
	}

	if err := s.budgets.Clear(r.Context(), owner, month); err != nil {
		s.logger.ErrorContext(r.Context(), "Clear budget failed", "error", err, "month", month)
		writeError(w, http.StatusInternalServerError, "clearing budget failed")
		return
	}

	if month == "" {
		month = core.CurrentMonth(time.Now())
	}
	s.invalidate(owner, cur, month)
	w.WriteHeader(http.StatusNoContent)
}

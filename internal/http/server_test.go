package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/config"
	"gastos/internal/currency"
	"gastos/internal/identity"
	applog "gastos/internal/log"
	"gastos/internal/services"
	"gastos/internal/storage"
)

func newTestServer(t *testing.T, mode string) *Server {
	t.Helper()

	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ident := identity.NewService(repo)
	require.NoError(t, ident.EnsureSeedUsers(context.Background()))

	// No rate store or network: the fallback table serves every lookup
	// and the default country keeps conversions at identity.
	rates := currency.NewService(nil, "http://127.0.0.1:0", time.Hour)
	converter := currency.NewConverter(rates)

	expenses := services.NewExpenseService(repo, converter, nil)
	budgets := services.NewBudgetService(repo, converter)

	cfg := &config.Config{
		Port:           "8080",
		Mode:           mode,
		DefaultCountry: currency.DefaultCountry,
	}
	logger := applog.New(applog.Config{
		Handler: slog.NewTextHandler(io.Discard, nil),
	})

	srv := NewServer(cfg, expenses, budgets, rates, ident, logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestExpenseLifecyclePersonalMode(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	// Create.
	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2025-03-14", "name": "Groceries", "amount": 120.5, "category": "Food",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &created)
	require.Greater(t, created.ID, int64(0))
	path := fmt.Sprintf("/api/expenses/%d", created.ID)

	// Read back.
	rec = doJSON(t, srv, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Name   string  `json:"name"`
		Amount float64 `json:"amount"`
	}
	decodeBody(t, rec, &got)
	assert.Equal(t, "Groceries", got.Name)
	assert.InDelta(t, 120.5, got.Amount, 1e-9)

	// List.
	rec = doJSON(t, srv, http.MethodGet, "/api/expenses?page=1&page_size=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Items      []json.RawMessage `json:"items"`
		Total      int               `json:"total"`
		TotalPages int               `json:"total_pages"`
		Currency   string            `json:"currency"`
	}
	decodeBody(t, rec, &listing)
	assert.Equal(t, 1, listing.Total)
	assert.Equal(t, 1, listing.TotalPages)
	assert.Len(t, listing.Items, 1)
	assert.Equal(t, "PHP", listing.Currency)

	// Update.
	rec = doJSON(t, srv, http.MethodPut, path, map[string]any{
		"date": "2025-03-15", "name": "Groceries and gas", "amount": 200, "category": "Food",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Delete is an admin route, implicit in personal mode.
	rec = doJSON(t, srv, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateExpenseValidation(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad date", map[string]any{"date": "soon", "name": "X", "amount": 1}, http.StatusUnprocessableEntity},
		{"empty name", map[string]any{"date": "2025-03-14", "name": " ", "amount": 1}, http.StatusUnprocessableEntity},
		{"negative amount", map[string]any{"date": "2025-03-14", "name": "X", "amount": -1}, http.StatusUnprocessableEntity},
		{"unknown field", map[string]any{"date": "2025-03-14", "name": "X", "amount": 1, "nope": true}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/expenses", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestExpenseBadID(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	rec := doJSON(t, srv, http.MethodGet, "/api/expenses/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBudgetStatusReflectsNewExpenses(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	rec := doJSON(t, srv, http.MethodPost, "/api/budget", map[string]any{
		"amount": 1000, "month": "2025-03",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	// Prime the status cache.
	rec = doJSON(t, srv, http.MethodGet, "/api/budget?month=2025-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Budget     float64 `json:"budget"`
		Spent      float64 `json:"spent"`
		Percentage float64 `json:"percentage"`
	}
	decodeBody(t, rec, &status)
	assert.InDelta(t, 1000, status.Budget, 1e-9)
	assert.Zero(t, status.Spent)

	// A write in that month must invalidate the cached status.
	rec = doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2025-03-10", "name": "Rent", "amount": 400, "category": "Housing",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/budget?month=2025-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &status)
	assert.InDelta(t, 400, status.Spent, 1e-9)
	assert.InDelta(t, 40, status.Percentage, 1e-9)
}

func TestBudgetStatusRejectsBadMonth(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	rec := doJSON(t, srv, http.MethodGet, "/api/budget?month=march", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportEndpoints(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2025-03-10", "name": "Rent", "amount": 400, "category": "Housing",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var report struct {
		Total          float64            `json:"total"`
		CategoryTotals map[string]float64 `json:"category_totals"`
		Currency       string             `json:"currency"`
	}
	decodeBody(t, rec, &report)
	assert.InDelta(t, 400, report.Total, 1e-9)
	assert.InDelta(t, 400, report.CategoryTotals["Housing"], 1e-9)
	assert.Equal(t, "PHP", report.Currency)

	rec = doJSON(t, srv, http.MethodGet, "/api/report/csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".csv")
	assert.Contains(t, rec.Body.String(), "EXPENSE DETAILS")

	rec = doJSON(t, srv, http.MethodGet, "/api/report/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestCountrySelection(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	rec := doJSON(t, srv, http.MethodPost, "/api/country", map[string]any{"country": "Atlantis"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/country", map[string]any{"country": "Japan"})
	require.Equal(t, http.StatusNoContent, rec.Code)

	var countryCookieSet *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == countryCookie {
			countryCookieSet = c
		}
	}
	require.NotNil(t, countryCookieSet)
	assert.Equal(t, "Japan", countryCookieSet.Value)

	// Listings now render in the selected currency.
	rec = doJSON(t, srv, http.MethodGet, "/api/expenses", nil, countryCookieSet)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Currency string `json:"currency"`
	}
	decodeBody(t, rec, &listing)
	assert.Equal(t, "JPY", listing.Currency)

	rec = doJSON(t, srv, http.MethodGet, "/api/countries", nil, countryCookieSet)
	require.Equal(t, http.StatusOK, rec.Code)
	var countries struct {
		Current  string  `json:"current"`
		Currency string  `json:"currency"`
		Rate     float64 `json:"rate"`
	}
	decodeBody(t, rec, &countries)
	assert.Equal(t, "Japan", countries.Current)
	assert.Equal(t, "JPY", countries.Currency)
	assert.InDelta(t, currency.FallbackRates["JPY"], countries.Rate, 1e-9)
}

func TestCorporateModeRequiresLogin(t *testing.T) {
	srv := newTestServer(t, config.ModeCorporate)

	rec := doJSON(t, srv, http.MethodGet, "/api/expenses", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/api/login", map[string]any{
		"username": "admin", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func login(t *testing.T, srv *Server, username, password string) *http.Cookie {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/login", map[string]any{
		"username": username, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("login response did not set a session cookie")
	return nil
}

func TestCorporateModeSessionFlow(t *testing.T) {
	srv := newTestServer(t, config.ModeCorporate)

	session := login(t, srv, "admin", "admin123")

	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2025-03-14", "name": "Office chair", "amount": 300, "category": "Equipment",
	}, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/api/expenses", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Total int `json:"total"`
	}
	decodeBody(t, rec, &listing)
	assert.Equal(t, 1, listing.Total)

	// Logout kills the session.
	rec = doJSON(t, srv, http.MethodPost, "/api/logout", nil, session)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/expenses", nil, session)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCorporateModeOwnerIsolation(t *testing.T) {
	srv := newTestServer(t, config.ModeCorporate)

	adminSession := login(t, srv, "admin", "admin123")
	userSession := login(t, srv, "user", "user123")

	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2025-03-14", "name": "Admin only", "amount": 100, "category": "Misc",
	}, adminSession)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The plain user sees an empty history.
	rec = doJSON(t, srv, http.MethodGet, "/api/expenses", nil, userSession)
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Total int `json:"total"`
	}
	decodeBody(t, rec, &listing)
	assert.Zero(t, listing.Total)
}

func TestCorporateModeAdminGate(t *testing.T) {
	srv := newTestServer(t, config.ModeCorporate)

	userSession := login(t, srv, "user", "user123")

	rec := doJSON(t, srv, http.MethodPost, "/api/budget", map[string]any{
		"amount": 1000, "month": "2025-03",
	}, userSession)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/expenses", nil, userSession)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminSession := login(t, srv, "admin", "admin123")
	rec = doJSON(t, srv, http.MethodPost, "/api/budget", map[string]any{
		"amount": 1000, "month": "2025-03",
	}, adminSession)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRefreshRatesEndpoint(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	// The unreachable rate source degrades to the fallback table instead
	// of failing the request.
	rec := doJSON(t, srv, http.MethodPost, "/api/rates/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		OK      bool               `json:"ok"`
		Message string             `json:"message"`
		Rates   map[string]float64 `json:"rates"`
	}
	decodeBody(t, rec, &out)
	assert.False(t, out.OK)
	assert.Equal(t, "rate source unavailable, using fallback rates", out.Message)
	assert.InDelta(t, 1.0, out.Rates["PHP"], 1e-9)
}

func monthSpent(t *testing.T, srv *Server, month string) float64 {
	t.Helper()
	rec := doJSON(t, srv, http.MethodGet, "/api/budget?month="+month, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var status struct {
		Spent float64 `json:"spent"`
	}
	decodeBody(t, rec, &status)
	return status.Spent
}

func TestBudgetStatusAfterDeletingPastExpense(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2020-01-15", "name": "Old rent", "amount": 500, "category": "Housing",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &created)

	// Prime the status cache for the expense's month, which is not the
	// current month.
	assert.InDelta(t, 500, monthSpent(t, srv, "2020-01"), 1e-9)

	rec = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/expenses/%d", created.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Zero(t, monthSpent(t, srv, "2020-01"))
}

func TestBudgetStatusAfterDeleteAll(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	for _, date := range []string{"2020-01-15", "2020-02-20"} {
		rec := doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
			"date": date, "name": "Old expense", "amount": 100, "category": "Misc",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	// Cache both months before the wipe.
	assert.InDelta(t, 100, monthSpent(t, srv, "2020-01"), 1e-9)
	assert.InDelta(t, 100, monthSpent(t, srv, "2020-02"), 1e-9)

	rec := doJSON(t, srv, http.MethodDelete, "/api/expenses", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Zero(t, monthSpent(t, srv, "2020-01"))
	assert.Zero(t, monthSpent(t, srv, "2020-02"))
}

func TestBudgetStatusAfterMovingExpenseAcrossMonths(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"date": "2020-01-15", "name": "Subscription", "amount": 300, "category": "Misc",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &created)

	// Cache both the month it leaves and the month it lands in.
	assert.InDelta(t, 300, monthSpent(t, srv, "2020-01"), 1e-9)
	assert.Zero(t, monthSpent(t, srv, "2020-02"))

	rec = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/expenses/%d", created.ID), map[string]any{
		"date": "2020-02-10", "name": "Subscription", "amount": 300, "category": "Misc",
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.Zero(t, monthSpent(t, srv, "2020-01"))
	assert.InDelta(t, 300, monthSpent(t, srv, "2020-02"), 1e-9)
}

func TestCreateWithPaddedDateInvalidatesStatus(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	assert.Zero(t, monthSpent(t, srv, "2020-05"))

	// The stored date is trimmed, so the trimmed month's cache entry is
	// the one that has to go.
	rec := doJSON(t, srv, http.MethodPost, "/api/expenses", map[string]any{
		"date": "  2020-05-10", "name": "Padded", "amount": 100, "category": "Misc",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.InDelta(t, 100, monthSpent(t, srv, "2020-05"), 1e-9)
}

func TestRateLimitResponseKeepsSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	var rec *httptest.ResponseRecorder
	for i := 0; i <= requestsPerMinute; i++ {
		rec = doJSON(t, srv, http.MethodPost, "/api/country", map[string]any{"country": "Japan"})
	}

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, config.ModePersonal)

	rec := doJSON(t, srv, http.MethodGet, "/api/expenses", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

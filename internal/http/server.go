// Package http exposes the expense tracker as a JSON API. Handlers
// resolve the acting owner, convert user-entered amounts to base
// currency through the service layer and convert results back to the
// display currency before rendering.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"gastos/internal/cache"
	"gastos/internal/config"
	"gastos/internal/core"
	"gastos/internal/currency"
	"gastos/internal/identity"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

type ctxKey string

const userContextKey ctxKey = "user"

// Server wires the services behind the route tree.
type Server struct {
	http.Server

	expenses *services.ExpenseService
	budgets  *services.BudgetService
	rates    *currency.Service
	identity *identity.Service
	logger   *applog.Logger

	mode           string
	defaultCountry string

	sessions *sessionStore
	limiter  *rateLimiter

	statusCache *cache.LRUCache[core.BudgetStatus]
	reportCache *cache.LRUCache[core.Report]

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a
// ready-to-run server.
func NewServer(cfg *config.Config, expenses *services.ExpenseService, budgets *services.BudgetService, rates *currency.Service, ident *identity.Service, logger *applog.Logger) *Server {
	s := &Server{
		expenses:       expenses,
		budgets:        budgets,
		rates:          rates,
		identity:       ident,
		logger:         logger.WithComponent(applog.ComponentHTTP),
		mode:           cfg.Mode,
		defaultCountry: cfg.DefaultCountry,
		sessions:       newSessionStore(),
		limiter:        newRateLimiter(),
		statusCache:    cache.NewLRUCache[core.BudgetStatus](200, 5*time.Minute),
		reportCache:    cache.NewLRUCache[core.Report](100, 5*time.Minute),
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.withRequestLog)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)

	r.Post("/api/login", s.handleLogin)
	r.Post("/api/logout", s.handleLogout)

	r.Group(func(api chi.Router) {
		api.Use(s.requireUser)

		api.Get("/api/expenses", s.handleListExpenses)
		api.Post("/api/expenses", s.handleCreateExpense)
		api.Get("/api/expenses/{id}", s.handleGetExpense)
		api.Put("/api/expenses/{id}", s.handleUpdateExpense)

		api.Get("/api/budget", s.handleBudgetStatus)

		api.Get("/api/report", s.handleReport)
		api.Get("/api/report/csv", s.handleReportCSV)
		api.Get("/api/report/pdf", s.handleReportPDF)

		api.Get("/api/countries", s.handleCountries)
		api.Post("/api/country", s.handleSetCountry)
		api.Post("/api/rates/refresh", s.handleRefreshRates)

		// Destructive operations stay admin-only, as does setting the
		// spending limit.
		api.Group(func(admin chi.Router) {
			admin.Use(s.requireAdmin)
			admin.Delete("/api/expenses/{id}", s.handleDeleteExpense)
			admin.Delete("/api/expenses", s.handleDeleteAllExpenses)
			admin.Post("/api/budget", s.handleSetBudget)
			admin.Delete("/api/budget", s.handleClearBudget)
		})
	})

	s.Addr = ":" + cfg.Port
	s.Handler = r

	return s
}

// Shutdown stops the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withRequestLog adds security headers, rate limiting on mutating
// methods, and request logging.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ip := clientIP(r)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if isMutating(r.Method) && !s.limiter.allow(ip) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				"client_ip", ip, "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.InfoContext(r.Context(), "Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", ip)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// requireUser resolves the acting user. Personal mode implies the admin
// account without a login; corporate mode needs a live session.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.mode == config.ModePersonal {
			user := core.User{ID: 1, Username: "admin", Role: identity.RoleAdmin}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
			return
		}

		c, err := r.Cookie(sessionCookie)
		if err != nil || c.Value == "" {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		user, ok := s.sessions.lookup(c.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userContextKey, user)))
	})
}

// requireAdmin gates destructive routes in corporate mode.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.mode != config.ModePersonal {
			user, ok := userFromContext(r.Context())
			if !ok || user.Role != identity.RoleAdmin {
				writeError(w, http.StatusForbidden, "admin access required")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) (core.User, bool) {
	user, ok := ctx.Value(userContextKey).(core.User)
	return user, ok
}

// ownerFromRequest derives the owner key scoping the request's data. In
// personal mode all data collapses to the implicit owner; in corporate
// mode the account name is the owner.
func (s *Server) ownerFromRequest(r *http.Request) core.Owner {
	if s.mode == config.ModePersonal {
		return core.DefaultOwner
	}
	if user, ok := userFromContext(r.Context()); ok {
		return core.Owner(user.Username)
	}
	return core.DefaultOwner
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// cache keys and write invalidation

func statusCacheKey(owner core.Owner, month, cur string) string {
	return strings.Join([]string{string(owner), month, cur}, "|")
}

func reportCacheKey(owner core.Owner, cur string) string {
	return string(owner) + "|" + cur
}

// invalidate drops the cached report and the status entries for the
// given months in the request's display currency.
func (s *Server) invalidate(owner core.Owner, cur string, months ...string) {
	s.reportCache.Delete(reportCacheKey(owner, cur))
	for _, month := range months {
		s.statusCache.Delete(statusCacheKey(owner, month, cur))
	}
}

// invalidateOwner drops every cached status entry for the owner, for
// writes that touch an unbounded set of months.
func (s *Server) invalidateOwner(owner core.Owner, cur string) {
	s.reportCache.Delete(reportCacheKey(owner, cur))
	s.statusCache.DeletePrefix(string(owner) + "|")
}

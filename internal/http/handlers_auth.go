package http

import (
	"net/http"

	"gastos/internal/config"
	"gastos/internal/currency"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	// Personal mode has no accounts; every request already acts as the
	// implicit admin.
	if s.mode == config.ModePersonal {
		writeJSON(w, http.StatusOK, map[string]any{"username": "admin", "role": "admin"})
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.identity.VerifyCredentials(r.Context(), sanitizeInput(req.Username), req.Password)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Credential check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	setSessionCookie(w, s.sessions.create(*user))
	writeJSON(w, http.StatusOK, map[string]any{"username": user.Username, "role": user.Role})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		s.sessions.revoke(c.Value)
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type countryRequest struct {
	Country string `json:"country"`
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	country := s.countryFromRequest(r)
	info := currency.CountryInfo(country)
	writeJSON(w, http.StatusOK, map[string]any{
		"countries": currency.Countries,
		"current":   country,
		"currency":  info.Currency,
		"symbol":    info.Symbol,
		"rate":      s.rates.Rate(info.Currency),
	})
}

func (s *Server) handleSetCountry(w http.ResponseWriter, r *http.Request) {
	var req countryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := sanitizeInput(req.Country)
	if _, ok := currency.Countries[name]; !ok {
		writeError(w, http.StatusUnprocessableEntity, "unknown country")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     countryCookie,
		Value:    name,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   365 * 24 * 60 * 60,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	ok, message := s.rates.Refresh(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      ok,
		"message": message,
		"rates":   s.rates.Snapshot(),
	})
}

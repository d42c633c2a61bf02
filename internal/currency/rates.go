package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DefaultAPIURL is the live rate source, anchored on the base currency.
const DefaultAPIURL = "https://api.exchangerate-api.com/v4/latest/PHP"

// DefaultRefreshTTL is how long a persisted snapshot stays fresh before
// a refresh attempts the network again.
const DefaultRefreshTTL = 24 * time.Hour

const fetchTimeout = 5 * time.Second

// RateStore persists rate snapshots between runs. The update must be
// atomic: either the whole snapshot lands or none of it.
type RateStore interface {
	CurrencyRates(ctx context.Context) (map[string]float64, time.Time, error)
	UpdateCurrencyRates(ctx context.Context, rates map[string]float64) error
}

// Service owns the in-process rate table. It starts on the fallback
// table and is refreshed on demand; the table is swapped wholesale under
// a lock so readers never observe a torn update. Concurrent refreshes
// are last-writer-wins.
type Service struct {
	store  RateStore
	client *http.Client
	apiURL string
	ttl    time.Duration

	mu    sync.RWMutex
	rates map[string]float64
}

func NewService(store RateStore, apiURL string, ttl time.Duration) *Service {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if ttl <= 0 {
		ttl = DefaultRefreshTTL
	}
	return &Service{
		store:  store,
		client: &http.Client{Timeout: fetchTimeout},
		apiURL: apiURL,
		ttl:    ttl,
		rates:  fallbackCopy(),
	}
}

// Rate returns the current rate for a currency, 1.0 when unknown. The
// permissive default mirrors the long-standing behavior of treating an
// unrecognized currency as base.
func (s *Service) Rate(currency string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.rates[currency]; ok {
		return r
	}
	slog.Debug("Unknown currency, defaulting rate to 1.0", "currency", currency)
	return 1.0
}

// Snapshot returns a copy of the current rate table.
func (s *Service) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.rates))
	for c, r := range s.rates {
		out[c] = r
	}
	return out
}

// Refresh brings the rate table up to date. A persisted snapshot younger
// than the TTL is adopted without touching the network; otherwise the
// live source is fetched with a bounded timeout. Any failure degrades to
// the fallback table and is reported only as advisory text, never as an
// error to the caller.
func (s *Service) Refresh(ctx context.Context) (bool, string) {
	if s.store != nil {
		cached, updatedAt, err := s.store.CurrencyRates(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Reading cached rates failed", "error", err)
		} else if len(cached) > 0 && !updatedAt.IsZero() {
			age := time.Since(updatedAt)
			if age < s.ttl {
				s.adopt(cached)
				return true, fmt.Sprintf("using cached rates (updated %d hours ago)", int(age.Hours()))
			}
		}
	}

	fresh, err := s.fetch(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Live rate fetch failed, using fallback rates", "error", err, "url", s.apiURL)
		s.adopt(fallbackCopy())
		return false, "rate source unavailable, using fallback rates"
	}

	if s.store != nil {
		if err := s.store.UpdateCurrencyRates(ctx, fresh); err != nil {
			slog.ErrorContext(ctx, "Persisting rate snapshot failed", "error", err)
		}
	}
	s.adopt(fresh)
	return true, "live rates fetched successfully"
}

// adopt merges a snapshot over the fallback table so currencies missing
// from the snapshot keep a sane rate, then swaps the table wholesale.
func (s *Service) adopt(snapshot map[string]float64) {
	rates := fallbackCopy()
	for c, r := range snapshot {
		rates[c] = r
	}
	rates[Base] = 1.0

	s.mu.Lock()
	s.rates = rates
	s.mu.Unlock()
}

func (s *Service) fetch(ctx context.Context) (map[string]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode rate payload: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("rate payload has no rates")
	}

	// Only the currencies we know about; a field missing from the payload
	// falls back to the built-in value for that currency.
	fresh := make(map[string]float64, len(FallbackRates))
	for c, fallback := range FallbackRates {
		if r, ok := payload.Rates[c]; ok && r > 0 {
			fresh[c] = r
		} else {
			fresh[c] = fallback
		}
	}
	fresh[Base] = 1.0
	return fresh, nil
}

package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"gastos/internal/core"
)

const (
	sessionCookie = "session"
	countryCookie = "country"

	sessionTTL = 24 * time.Hour
)

// sessionStore keeps logged-in users in memory. Sessions do not survive
// a restart, which is acceptable for a small-team deployment.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	user      core.User
	expiresAt time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]sessionEntry)}
}

// create registers a session and returns its opaque token.
func (s *sessionStore) create(user core.User) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = sessionEntry{user: user, expiresAt: time.Now().Add(sessionTTL)}
	s.mu.Unlock()
	return token
}

func (s *sessionStore) lookup(token string) (core.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[token]
	if !ok {
		return core.User{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.sessions, token)
		return core.User{}, false
	}
	return entry.user, true
}

func (s *sessionStore) revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

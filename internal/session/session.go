// Package session keeps per-browser dashboard state: the watchlist, the
// identity typed by the user and one pending flash message. Sessions are
// keyed by a random cookie and expire after a period of inactivity.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"monitorb3/internal/watchlist"
)

// CookieName is the cookie carrying the session id.
const CookieName = "monitorb3_session"

// Level is the severity of a flash message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Level Level
	Text  string
}

// Session is the state of one browser. Callers hold Lock while running a
// watchlist command so that commands on one session are serialized.
type Session struct {
	sync.Mutex
	ID        string
	Watchlist watchlist.State
	Email     string
	flash     *Flash
}

// SetFlash replaces the pending flash message.
func (s *Session) SetFlash(level Level, text string) {
	s.flash = &Flash{Level: level, Text: text}
}

// TakeFlash returns and clears the pending flash message.
func (s *Session) TakeFlash() *Flash {
	f := s.flash
	s.flash = nil
	return f
}

// Registry maps session ids to sessions. Entries idle for longer than the
// TTL are dropped; size bounds the number of live sessions.
type Registry struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
	ttl      time.Duration
}

// NewRegistry creates a Registry holding at most size sessions.
func NewRegistry(size int, ttl time.Duration) *Registry {
	if size <= 0 {
		size = 4096
	}
	return &Registry{
		sessions: expirable.NewLRU[string, *Session](size, nil, ttl),
		ttl:      ttl,
	}
}

// Get returns the session named by r's cookie, creating a new one (and
// setting the cookie on w) when the cookie is missing or the session has
// expired. The boolean reports whether the session is new.
func (g *Registry) Get(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, err := r.Cookie(CookieName); err == nil {
		if s, ok := g.sessions.Get(c.Value); ok {
			// Re-adding refreshes the expiry.
			g.sessions.Add(c.Value, s)
			return s, false
		}
	}

	s := &Session{ID: uuid.NewString()}
	g.sessions.Add(s.ID, s)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(g.ttl / time.Second),
	})
	return s, true
}

// Len returns the number of live sessions.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessions.Len()
}

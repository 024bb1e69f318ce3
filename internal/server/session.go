package server

import (
	"meetgate/internal/gate"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const gateSessionCookie = "__gate_session"

// sessionEntry holds the gates of one browser session, one per meeting id.
type sessionEntry struct {
	gates     map[string]*gate.Gate
	expiresAt time.Time
}

// Registry owns the per-session gate instances and expires idle sessions in
// the background.
type Registry struct {
	mu           sync.Mutex
	sessions     map[string]*sessionEntry
	ttl          time.Duration
	stopCleanup  chan struct{}
	cleanupTimer *time.Ticker
}

// NewRegistry creates a Registry and starts the cleanup routine.
func NewRegistry(ttl, cleanupInterval time.Duration) *Registry {
	r := &Registry{
		sessions:     make(map[string]*sessionEntry),
		ttl:          ttl,
		stopCleanup:  make(chan struct{}),
		cleanupTimer: time.NewTicker(cleanupInterval),
	}
	go r.runCleanup()
	return r
}

// Stop stops the background cleanup routine.
func (r *Registry) Stop() {
	r.cleanupTimer.Stop()
	close(r.stopCleanup)
}

// Gate returns the gate for (sessionID, meetingID), creating it on first
// access and refreshing the session expiry.
func (r *Registry) Gate(sessionID, meetingID string) *gate.Gate {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{gates: make(map[string]*gate.Gate)}
		r.sessions[sessionID] = entry
	}
	entry.expiresAt = time.Now().Add(r.ttl)

	g, ok := entry.gates[meetingID]
	if !ok {
		g = gate.New(meetingID)
		entry.gates[meetingID] = g
	}
	return g
}

func (r *Registry) runCleanup() {
	for {
		select {
		case <-r.stopCleanup:
			return
		case <-r.cleanupTimer.C:
			now := time.Now()
			r.mu.Lock()
			for id, entry := range r.sessions {
				if entry.expiresAt.Before(now) {
					delete(r.sessions, id)
				}
			}
			r.mu.Unlock()
		}
	}
}

// ensureSession reads the gate session cookie, minting a new session id and
// setting the cookie when absent.
func ensureSession(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(gateSessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	sessionID := uuid.New().String()
	w.Header().Set("Set-Cookie", gateSessionCookie+"="+sessionID+"; Path=/; Max-Age=86400; Priority=High; HttpOnly;")
	return sessionID
}

package widget

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzansiprolife/platform/internal/chat"
)

// intakeStage tracks the pre-chat intake gate. The engine is only consulted
// once the visitor has given a name and a phone number.
type intakeStage int

const (
	intakeName intakeStage = iota
	intakePhone
	intakeDone
)

var phonePattern = regexp.MustCompile(`^[\d\s+\-()]{10,}$`)

// Sessions that go quiet for this long are evicted. WebSocket sessions are
// dropped on disconnect anyway; this bounds the map under HTTP-only traffic,
// where no disconnect ever arrives.
const (
	sessionIdleTTL     = time.Hour
	sessionSweepPeriod = 5 * time.Minute
)

// session holds one visitor's in-memory chat state. Flow progress lives only
// here; closing the widget mid-flow loses it.
type session struct {
	id     string
	engine *chat.Engine

	stage     intakeStage
	userName  string
	userPhone string

	// lastSeen is guarded by the owning sessionManager's mutex.
	lastSeen time.Time
}

func (s *session) ready() bool {
	return s.stage == intakeDone
}

// sessionManager owns the live sessions keyed by session id.
type sessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	engineCfg chat.Config
}

func newSessionManager(cfg chat.Config) *sessionManager {
	m := &sessionManager{
		sessions:  make(map[string]*session),
		engineCfg: cfg,
	}
	go m.cleanup()
	return m
}

// get returns the session for id, creating it on first use and marking it
// live either way.
func (m *sessionManager) get(id string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.lastSeen = time.Now()
		return s
	}
	s := &session{
		id:       id,
		engine:   chat.New(m.engineCfg),
		stage:    intakeName,
		lastSeen: time.Now(),
	}
	m.sessions[id] = s
	return s
}

func (m *sessionManager) drop(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *sessionManager) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *sessionManager) cleanup() {
	ticker := time.NewTicker(sessionSweepPeriod)
	defer ticker.Stop()
	for range ticker.C {
		m.evictIdle(time.Now().Add(-sessionIdleTTL))
	}
}

// evictIdle drops every session last seen before cutoff.
func (m *sessionManager) evictIdle(cutoff time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

func validPhone(text string) bool {
	return phonePattern.MatchString(strings.TrimSpace(text))
}

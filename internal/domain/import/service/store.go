package service

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/schedule-importer/pkg/metrics"
)

// ErrSessionNotFound is returned for unknown or evicted session ids
var ErrSessionNotFound = errors.New("import session not found")

// OrchestratorFactory builds the orchestrator of a new session
type OrchestratorFactory func() *Orchestrator

// SessionStore keeps import sessions in memory. Nothing is shared between
// sessions except the stateless import service.
type SessionStore struct {
	service         *ImportService
	newOrchestrator OrchestratorFactory
	metrics         *metrics.Metrics
	logger          *slog.Logger
	now             func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionStore creates an empty store
func NewSessionStore(svc *ImportService, factory OrchestratorFactory, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		service:         svc,
		newOrchestrator: factory,
		logger:          logger,
		now:             time.Now,
		sessions:        make(map[uuid.UUID]*Session),
	}
}

// WithMetrics adds metrics recording to the store
func (st *SessionStore) WithMetrics(m *metrics.Metrics) *SessionStore {
	st.metrics = m
	return st
}

// Create starts a session; an empty association key means a global import
func (st *SessionStore) Create(associationKey string) *Session {
	s := NewSession(uuid.New(), associationKey, st.service, st.newOrchestrator())
	s.now = st.now
	s.lastTouched = st.now()

	st.mu.Lock()
	st.sessions[s.id] = s
	n := len(st.sessions)
	st.mu.Unlock()

	st.metrics.SetActiveSessions(n)
	st.logger.Info("import session created",
		slog.String("session_id", s.id.String()),
		slog.String("mode", string(s.Mode())),
	)
	return s
}

// Get returns the session with id
func (st *SessionStore) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes the session with id
func (st *SessionStore) Delete(id uuid.UUID) error {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	n := len(st.sessions)
	st.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	st.metrics.SetActiveSessions(n)
	return nil
}

// Len returns the number of live sessions
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Evict removes sessions idle for longer than idle. Sessions with a
// submission in flight are kept.
func (st *SessionStore) Evict(idle time.Duration) int {
	cutoff := st.now().Add(-idle)

	st.mu.Lock()
	removed := 0
	for id, s := range st.sessions {
		if s.idleSince(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	n := len(st.sessions)
	st.mu.Unlock()

	if removed > 0 {
		st.metrics.SetActiveSessions(n)
		st.logger.Info("evicted idle import sessions",
			slog.Int("removed", removed),
			slog.Int("remaining", n),
		)
	}
	return removed
}

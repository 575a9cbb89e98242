package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/schedule-importer/internal/domain/import/model"
)

// Session is one import component instance: the current selection and the
// last outcome. A new selection or a clear supersedes any in-flight
// submission; its outcome is discarded when it arrives.
type Session struct {
	id             uuid.UUID
	associationKey string
	service        *ImportService
	orchestrator   *Orchestrator
	now            func() time.Time

	mu          sync.Mutex
	seq         uint64
	inFlight    bool
	prepared    *Prepared
	outcome     *model.Outcome
	lastTouched time.Time
}

// State is a point-in-time copy of a session
type State struct {
	ID             uuid.UUID
	Mode           model.Mode
	AssociationKey string
	File           *Prepared
	Outcome        *model.Outcome
	Busy           bool
	LastTouched    time.Time
}

// NewSession creates a session. An empty association key means a global import.
func NewSession(id uuid.UUID, associationKey string, svc *ImportService, orch *Orchestrator) *Session {
	s := &Session{
		id:             id,
		associationKey: associationKey,
		service:        svc,
		orchestrator:   orch,
		now:            time.Now,
	}
	s.lastTouched = s.now()
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Mode is fixed at creation by the association key
func (s *Session) Mode() model.Mode {
	return model.NewImportRequest("", s.associationKey).Mode()
}

// Select prepares file and makes it the current selection. A rejected file
// leaves the previous selection in place.
func (s *Session) Select(ctx context.Context, file model.UploadedFile, data []byte) (*Prepared, error) {
	s.touch()

	prepared, err := s.service.Prepare(ctx, file, data)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.prepared = prepared
	s.outcome = nil
	return prepared, nil
}

// Clear drops the selection and the last outcome
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.prepared = nil
	s.outcome = nil
	s.lastTouched = s.now()
}

// Import submits the current selection. The returned outcome is always the
// one produced by this call; the session only keeps it if nothing newer
// happened meanwhile. Cancelling ctx does not abort the remote call once it
// has started; the client timeout bounds it instead.
func (s *Session) Import(ctx context.Context) (*model.Outcome, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	payload := ""
	if s.prepared != nil {
		payload = s.prepared.Payload
	}
	if payload == "" {
		s.mu.Unlock()
		return nil, ErrEmptyInput
	}
	s.inFlight = true
	s.seq++
	seq := s.seq
	s.lastTouched = s.now()
	s.mu.Unlock()

	outcome, err := s.orchestrator.Submit(context.WithoutCancel(ctx), model.NewImportRequest(payload, s.associationKey))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
	s.lastTouched = s.now()
	if err != nil {
		return nil, err
	}
	if seq == s.seq {
		s.outcome = outcome
	}
	return outcome, nil
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:             s.id,
		Mode:           s.Mode(),
		AssociationKey: s.associationKey,
		File:           s.prepared,
		Outcome:        s.outcome,
		Busy:           s.inFlight,
		LastTouched:    s.lastTouched,
	}
}

// idleSince reports whether the session has been untouched since cutoff
// and has nothing in flight.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight && s.lastTouched.Before(cutoff)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastTouched = s.now()
	s.mu.Unlock()
}

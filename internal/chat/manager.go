package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"nexusai/internal/apperr"
	"nexusai/internal/config"
	"nexusai/internal/llm/adapter"
)

// StoreFactory returns the snapshot store for an account.
type StoreFactory func(ownerEmail string) SnapshotStore

// Manager creates a Controller per login and discards it at logout or once
// its TTL has passed.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	registry *adapter.Registry
	sqlgen   SQLGenerator
	stores   StoreFactory
	opts     Options
	ttl      time.Duration
	now      func() time.Time
}

type session struct {
	owner   string
	ctrl    *Controller
	expires time.Time
}

// NewManager builds a manager. A nil stores keeps every archive in memory.
func NewManager(registry *adapter.Registry, sqlgen SQLGenerator, stores StoreFactory, opts Options) *Manager {
	if stores == nil {
		stores = func(string) SnapshotStore { return NewMemoryStore() }
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = config.DefaultTokenTTL
	}
	return &Manager{
		sessions: make(map[string]*session),
		registry: registry,
		sqlgen:   sqlgen,
		stores:   stores,
		opts:     opts,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Start opens a new session for owner. Expired sessions are swept first.
func (m *Manager) Start(owner string) (string, *Controller) {
	m.Sweep()

	id := uuid.NewString()
	ctrl := NewController(id, m.registry, NewArchive(m.stores(owner), nil), m.sqlgen, m.opts)

	m.mu.Lock()
	m.sessions[id] = &session{owner: owner, ctrl: ctrl, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()

	log.WithFields(log.Fields{"session": id, "owner": owner}).Info("chat session started")
	return id, ctrl
}

// Get returns the controller for id, which must belong to owner. An expired
// session is ended on the spot.
func (m *Manager) Get(id, owner string) (*Controller, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && !m.now().Before(s.expires) {
		delete(m.sessions, id)
		m.mu.Unlock()
		m.closeSession(id, s, "expired")
		return nil, apperr.Unauthorized("Session expired, please log in again")
	}
	m.mu.Unlock()
	if !ok || s.owner != owner {
		return nil, apperr.Unauthorized("Session expired, please log in again")
	}
	return s.ctrl, nil
}

// End discards the session and reports whether it was live.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.closeSession(id, s, "ended")
	return true
}

// Sweep ends every expired session and returns how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	expired := make(map[string]*session)

	m.mu.Lock()
	for id, s := range m.sessions {
		if !now.Before(s.expires) {
			expired[id] = s
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for id, s := range expired {
		m.closeSession(id, s, "expired")
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				log.WithField("count", n).Debug("swept expired chat sessions")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) closeSession(id string, s *session, reason string) {
	s.ctrl.Close()
	log.WithFields(log.Fields{"session": id, "owner": s.owner}).Info("chat session " + reason)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

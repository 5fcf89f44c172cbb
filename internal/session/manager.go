package session

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sponge-spot/internal/dataset"
)

// ErrNotFound is returned for unknown or already closed session ids.
var ErrNotFound = eris.New("session: not found")

// Manager owns the live sessions of a server process.
type Manager struct {
	data    *dataset.Dataset
	opts    Options
	idleTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager. An idleTTL of zero disables reaping.
func NewManager(data *dataset.Dataset, opts Options, idleTTL time.Duration) *Manager {
	return &Manager{
		data:     data,
		opts:     opts,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session and arms its startup timer.
func (m *Manager) Create() *Session {
	m.mu.Lock()
	opts := m.opts
	if opts.Rand != nil {
		// Each session gets its own stream derived from the shared seed.
		opts.Rand = rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64()))
	}
	s := New(uuid.NewString(), m.data, opts)
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	delay := s.Start()
	zap.L().Info("session created", zap.String("session", s.ID()), zap.Duration("startup_delay", delay))
	return s
}

// Get returns a live session and marks it as recently used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "session %s", id)
	}
	s.touch(time.Now())
	return s, nil
}

// Close removes a session and cancels its pending timer.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return eris.Wrapf(ErrNotFound, "session %s", id)
	}

	cancelled := s.Close()
	zap.L().Info("session closed", zap.String("session", id), zap.Bool("timer_cancelled", cancelled))
	return nil
}

// CloseAll tears down every session and returns how many were closed.
func (m *Manager) CloseAll() int {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	return len(sessions)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle since before now minus the idle TTL.
func (m *Manager) Sweep(now time.Time) int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-m.idleTTL)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		zap.L().Info("reaped idle sessions", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps idle sessions every interval until ctx is done, then closes
// all remaining sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			n := m.CloseAll()
			zap.L().Info("session manager stopped", zap.Int("closed", n))
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

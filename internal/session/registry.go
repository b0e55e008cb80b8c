package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/tarkov-debrief/debrief/internal/export"
	"github.com/tarkov-debrief/debrief/internal/typeid"
)

// Registry holds the live sessions of a server process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg     Config
	loader  Loader
	exports *export.Store
	logger  *slog.Logger
}

func NewRegistry(cfg Config, loader Loader, exports *export.Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		loader:   loader,
		exports:  exports,
		logger:   logger,
	}
}

// Create starts a new session.
func (r *Registry) Create() (*Session, error) {
	s, err := New(typeid.NewSessionID(), r.cfg, r.loader, r.exports, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.logger.Info("session created", "session", s.ID())
	return s, nil
}

// Get looks up a session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Close()
	r.logger.Info("session deleted", "session", id)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

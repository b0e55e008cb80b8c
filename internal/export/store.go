package export

import (
	"errors"
	"sync"
	"time"

	"github.com/tarkov-debrief/debrief/internal/typeid"
)

var ErrNotFound = errors.New("export not found")

// DefaultCapacity bounds how many exports are kept in memory.
const DefaultCapacity = 32

// Export is one saved PNG.
type Export struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Filename  string    `json:"filename"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
	PNG       []byte    `json:"-"`
}

// Store keeps the most recent exports in memory. When full, the oldest is dropped.
type Store struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	exports  map[string]*Export
}

// NewStore creates a store holding at most capacity exports.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		exports:  make(map[string]*Export),
	}
}

// Put assigns e an id and stores it.
func (s *Store) Put(e *Export) *Export {
	e.ID = typeid.NewExportID()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.exports, oldest)
	}
	s.order = append(s.order, e.ID)
	s.exports[e.ID] = e
	return e
}

// Get returns the export with id.
func (s *Store) Get(id string) (*Export, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.exports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Len returns the number of stored exports.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.exports)
}

// Package memory holds the authoritative in-process working copy of the
// shared state. Mutations are written through to an optional persistence
// backend and fanned out to subscribers.
package memory

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"engtest-service/internal/app"
	"engtest-service/internal/domain"
)

// Backend persists the two shared records (Redis, Postgres). A missing key
// is reported via the bool, not an error.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// StateStore implements app.StateStore. The in-memory copy is the working
// copy; the backend copy is kept in sync on every mutation, best-effort.
type StateStore struct {
	backend Backend // nil means in-memory only

	mu          sync.RWMutex
	test        *domain.Test
	results     []domain.StudentResult
	subscribers map[chan app.StateChange]struct{}
}

// NewStateStore builds a store seeded from the backend. Malformed or
// missing stored data falls back to the empty default for that key.
func NewStateStore(ctx context.Context, backend Backend) *StateStore {
	s := &StateStore{
		backend:     backend,
		subscribers: make(map[chan app.StateChange]struct{}),
	}
	if backend != nil {
		s.reload(ctx, app.KeyActiveTest)
		s.reload(ctx, app.KeyResults)
	}
	return s
}

func (s *StateStore) ActiveTest() (domain.Test, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.test == nil {
		return domain.Test{}, false
	}
	return *s.test, true
}

func (s *StateStore) SaveTest(test domain.Test) {
	s.mu.Lock()
	s.test = &test
	s.persistLocked(app.KeyActiveTest)
	s.broadcastLocked(app.KeyActiveTest)
	s.mu.Unlock()
}

func (s *StateStore) DeleteTest() {
	s.mu.Lock()
	s.test = nil
	if s.backend != nil {
		if err := s.backend.Delete(context.Background(), app.KeyActiveTest); err != nil {
			log.Printf("delete %s from backend: %v", app.KeyActiveTest, err)
		}
	}
	s.broadcastLocked(app.KeyActiveTest)
	s.mu.Unlock()
}

func (s *StateStore) Results() []domain.StudentResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.StudentResult, len(s.results))
	copy(out, s.results)
	return out
}

func (s *StateStore) AppendResult(result domain.StudentResult) {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.persistLocked(app.KeyResults)
	s.broadcastLocked(app.KeyResults)
	s.mu.Unlock()
}

// Subscribe returns a channel of change events. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *StateStore) Subscribe() (<-chan app.StateChange, func()) {
	ch := make(chan app.StateChange, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// ApplyRemote refreshes one key from the backend after another process
// announced a change, then notifies local subscribers. It is the explicit
// replacement for storage-change events between browser tabs.
func (s *StateStore) ApplyRemote(ctx context.Context, key string) {
	if s.backend == nil {
		return
	}
	s.reload(ctx, key)
	s.mu.Lock()
	s.broadcastLocked(key)
	s.mu.Unlock()
}

func (s *StateStore) reload(ctx context.Context, key string) {
	raw, ok, err := s.backend.Load(ctx, key)
	if err != nil {
		log.Printf("load %s from backend: %v", key, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case app.KeyActiveTest:
		if !ok {
			s.test = nil
			return
		}
		var test domain.Test
		if err := json.Unmarshal(raw, &test); err != nil {
			log.Printf("malformed %s record, falling back to empty: %v", key, err)
			s.test = nil
			return
		}
		s.test = &test
	case app.KeyResults:
		if !ok {
			s.results = nil
			return
		}
		var results []domain.StudentResult
		if err := json.Unmarshal(raw, &results); err != nil {
			log.Printf("malformed %s record, falling back to empty: %v", key, err)
			s.results = nil
			return
		}
		s.results = results
	}
}

func (s *StateStore) persistLocked(key string) {
	if s.backend == nil {
		return
	}
	var value any
	switch key {
	case app.KeyActiveTest:
		value = s.test
	case app.KeyResults:
		value = s.results
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Printf("marshal %s: %v", key, err)
		return
	}
	if err := s.backend.Save(context.Background(), key, raw); err != nil {
		log.Printf("persist %s to backend: %v", key, err)
	}
}

func (s *StateStore) broadcastLocked(key string) {
	change := app.StateChange{Key: key}
	for ch := range s.subscribers {
		select {
		case ch <- change:
		default:
			// drop the oldest pending event rather than block the writer
			select {
			case <-ch:
			default:
			}
			ch <- change
		}
	}
}

// internal/store/memory.go
//
// In-memory registry of running game sessions.
//
// Characteristics:
//   - Stores *game.Runner values keyed by session ID (a random UUID).
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Delete and Reap stop the runner, which releases its tick source.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/devmemory/apps/go-server/internal/game"
)

// ErrNotFound is returned for unknown session IDs.
var ErrNotFound = errors.New("store: session not found")

// Store defines the registry interface for live sessions.
type Store interface {
	// Save registers or replaces a session.
	Save(ctx context.Context, r *game.Runner) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*game.Runner, error)

	// Delete stops and forgets a session.
	Delete(ctx context.Context, id string) error

	// Reap stops sessions idle for longer than ttl and returns how many.
	Reap(ctx context.Context, ttl time.Duration) int

	// Len reports the number of live sessions.
	Len() int
}

// NewID returns a fresh session identifier.
func NewID() string { return uuid.NewString() }

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex            // guards sessions map
	sessions map[string]*game.Runner // keyed by Runner.ID()
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*game.Runner)}
}

func (m *memory) Save(ctx context.Context, r *game.Runner) error {
	m.mu.Lock()
	old := m.sessions[r.ID()]
	m.sessions[r.ID()] = r
	m.mu.Unlock()
	if old != nil && old != r {
		old.Stop()
	}
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (*game.Runner, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.sessions[id]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	r, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	r.Stop()
	return nil
}

func (m *memory) Reap(ctx context.Context, ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)
	var stale []*game.Runner

	m.mu.Lock()
	for id, r := range m.sessions {
		if r.LastActive().Before(cutoff) {
			stale = append(stale, r)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, r := range stale {
		r.Stop()
		log.Debug().Str("gameId", r.ID()).Msg("reaped idle session")
	}
	return len(stale)
}

func (m *memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// RunReaper calls Reap every interval until ctx is done.
func RunReaper(ctx context.Context, s Store, interval, ttl time.Duration, onReap func(n int)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Reap(ctx, ttl); n > 0 {
				log.Info().Int("sessions", n).Msg("reaped idle sessions")
				if onReap != nil {
					onReap(n)
				}
			}
		}
	}
}

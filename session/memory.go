package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cirrustream/cirrus/errors"
)

// memSession is the mutable registry-owned state behind a Session snapshot.
type memSession struct {
	id          string
	pending     [][]byte
	lastEventID int64
	createdAt   time.Time
	lastActive  time.Time
}

// MemoryRegistry is the default in-process Registry. One coarse mutex guards
// the whole registry; contention is low because each invocation touches the
// registry a handful of times.
type MemoryRegistry struct {
	mu       sync.Mutex
	sessions map[string]*memSession
	order    []string

	// now is swappable for tests
	now func() time.Time
}

// compile-time interface check
var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]*memSession),
		now:      time.Now,
	}
}

// Create allocates a new session with a UUID id. IDs only need to be unique
// within the live set, so a collision is handled by drawing again rather
// than treated as fatal.
func (r *MemoryRegistry) Create(_ context.Context) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	for {
		if _, exists := r.sessions[id]; !exists {
			break
		}
		id = uuid.NewString()
	}

	now := r.now()
	s := &memSession{
		id:         id,
		createdAt:  now,
		lastActive: now,
	}
	r.sessions[id] = s
	r.order = append(r.order, id)

	return s.snapshot(), nil
}

// Find returns a snapshot of the session with the given id.
func (r *MemoryRegistry) Find(_ context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}
	return s.snapshot(), nil
}

// Append adds a payload to the session's buffer.
func (r *MemoryRegistry) Append(_ context.Context, id string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return errors.ErrSessionNotFound
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.pending = append(s.pending, buf)
	s.lastActive = r.now()
	return nil
}

// Drain empties the session's buffer and advances its event cursor by the
// number of drained payloads.
func (r *MemoryRegistry) Drain(_ context.Context, id string) ([][]byte, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, 0, errors.ErrSessionNotFound
	}

	start := s.lastEventID
	payloads := s.pending
	s.pending = nil
	s.lastEventID += int64(len(payloads))
	s.lastActive = r.now()

	return payloads, start, nil
}

// IDs returns live session ids in creation order.
func (r *MemoryRegistry) IDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids, nil
}

// Count returns the number of live sessions.
func (r *MemoryRegistry) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions), nil
}

// ExpireIdle removes sessions idle longer than maxIdle.
func (r *MemoryRegistry) ExpireIdle(_ context.Context, maxIdle time.Duration) (int, error) {
	if maxIdle <= 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxIdle)
	removed := 0
	kept := r.order[:0]
	for _, id := range r.order {
		s := r.sessions[id]
		if s.lastActive.Before(cutoff) {
			delete(r.sessions, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept

	return removed, nil
}

func (s *memSession) snapshot() Session {
	return Session{
		ID:          s.id,
		LastEventID: s.lastEventID,
		Pending:     len(s.pending),
		CreatedAt:   s.createdAt,
		LastActive:  s.lastActive,
	}
}

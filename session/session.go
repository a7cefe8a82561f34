package session

import (
	"context"
	"time"
)

// Session is a snapshot of one live logical connection. It is a value:
// mutating it does not affect registry state.
type Session struct {
	// ID is the opaque connection identifier handed to the client in the
	// "connected" event and required on every subsequent call.
	ID string

	// LastEventID is the event cursor: the id of the most recently drained
	// event. Strictly increasing, never reused while the session lives.
	LastEventID int64

	// Pending is the number of buffered payloads awaiting the next drain.
	Pending int

	CreatedAt  time.Time
	LastActive time.Time
}

// Registry stores live sessions and their pending-message buffers.
//
// All mutating operations on a single registry are serialized; callers may
// invoke them from concurrent requests without additional locking.
type Registry interface {
	// Create allocates a new session with an empty buffer and a zero event
	// cursor. The returned id is unique within the current live-session set.
	Create(ctx context.Context) (Session, error)

	// Find returns the session with the given id, or ErrSessionNotFound.
	Find(ctx context.Context, id string) (Session, error)

	// Append adds a serialized payload to the session's buffer, preserving
	// insertion order. Returns ErrSessionNotFound for unknown ids; callers
	// must surface that to the client rather than swallow it.
	Append(ctx context.Context, id string, payload []byte) error

	// Drain atomically empties the session's buffer and returns its prior
	// contents in order, together with the event cursor value from before
	// the drain. The cursor advances by the number of drained payloads, so
	// the drained payloads own event ids start+1 .. start+len(payloads).
	Drain(ctx context.Context, id string) (payloads [][]byte, start int64, err error)

	// IDs returns the ids of all live sessions in creation order.
	IDs(ctx context.Context) ([]string, error)

	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)

	// ExpireIdle removes sessions whose last activity is older than maxIdle
	// and returns how many were removed. A maxIdle of zero removes nothing.
	ExpireIdle(ctx context.Context, maxIdle time.Duration) (int, error)
}

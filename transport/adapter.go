// Package transport implements the duplex-channel contract the protocol
// handler expects, writing into the session registry instead of a socket.
//
// The adapter is the seam between two worlds: the handler side sees
// Connect/Close, Send, and an inbound-message callback, exactly as it would
// on a real persistent connection; the registry side sees buffer appends
// that a later poll invocation will drain. Outbound delivery is best-effort
// and at-most-once: a send while disconnected is dropped with a warning,
// never retried, and never surfaced to the handler as an error.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cirrustream/cirrus/errors"
	"github.com/cirrustream/cirrus/session"
)

// InboundHandler consumes one delivered message for one session and is
// expected to push any responses back through the adapter.
type InboundHandler func(ctx context.Context, sessionID string, payload []byte) error

// Adapter simulates a persistent duplex channel over the session registry.
type Adapter struct {
	registry session.Registry
	logger   *slog.Logger

	// Lifecycle state (atomic operations)
	connected atomic.Bool

	// Protects the inbound callback
	mu        sync.RWMutex
	onMessage InboundHandler
}

// NewAdapter creates an adapter over the given registry.
func NewAdapter(registry session.Registry, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		registry: registry,
		logger:   logger,
	}
}

// Connect marks the adapter logically connected. Safe to call repeatedly;
// the adapter is flag-based because the handler instance is process-wide
// and must not re-initialize per request.
func (a *Adapter) Connect() error {
	if a.connected.Swap(true) {
		return nil
	}
	a.logger.Info("transport connected")
	return nil
}

// Close marks the adapter disconnected. Subsequent sends are dropped.
func (a *Adapter) Close() error {
	if !a.connected.Swap(false) {
		return nil
	}
	a.logger.Info("transport closed")
	return nil
}

// Connected reports whether the adapter is logically connected.
func (a *Adapter) Connected() bool {
	return a.connected.Load()
}

// OnMessage registers the inbound-message callback. Only one callback is
// held; registering replaces any previous one.
func (a *Adapter) OnMessage(h InboundHandler) {
	a.mu.Lock()
	a.onMessage = h
	a.mu.Unlock()
}

// Send appends the payload to every live session's buffer. The adapter has
// no notion of which session a handler-initiated message belongs to, so
// this is a broadcast; use SendTo when the originating session is known.
// Per-session append failures are logged and skipped without aborting
// delivery to the remaining sessions.
func (a *Adapter) Send(ctx context.Context, payload []byte) error {
	if !a.connected.Load() {
		a.logger.Warn("send while disconnected, dropping message",
			"bytes", len(payload))
		return nil
	}

	ids, err := a.registry.IDs(ctx)
	if err != nil {
		return errors.Wrap(err, "Adapter", "Send", "session enumeration")
	}

	for _, id := range ids {
		if err := a.registry.Append(ctx, id, payload); err != nil {
			a.logger.Warn("broadcast append failed, skipping session",
				"session", id, "error", err)
		}
	}
	return nil
}

// SendTo appends the payload to a single session's buffer. Unlike the
// broadcast path, an unknown session is a caller-visible error.
func (a *Adapter) SendTo(ctx context.Context, sessionID string, payload []byte) error {
	if !a.connected.Load() {
		a.logger.Warn("targeted send while disconnected, dropping message",
			"session", sessionID, "bytes", len(payload))
		return nil
	}

	if err := a.registry.Append(ctx, sessionID, payload); err != nil {
		return errors.WrapNotFound(err, "Adapter", "SendTo", "session append")
	}
	return nil
}

// Receive is unsupported: inbound messages are pushed through the callback
// registered with OnMessage, driven by the request router, never pulled.
func (a *Adapter) Receive(context.Context) ([]byte, error) {
	return nil, errors.ErrPullUnsupported
}

// DeliverIncoming invokes the registered callback synchronously with the
// inbound payload. Without a callback the message is dropped silently. A
// panicking callback is contained here and surfaced as a handler failure so
// one bad message cannot take down the process or corrupt registry state.
func (a *Adapter) DeliverIncoming(ctx context.Context, sessionID string, payload []byte) (err error) {
	a.mu.RLock()
	h := a.onMessage
	a.mu.RUnlock()

	if h == nil {
		a.logger.Debug("no inbound callback registered, dropping message",
			"session", sessionID)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapFatal(
				fmt.Errorf("%w: panic: %v", errors.ErrHandlerFailure, r),
				"Adapter", "DeliverIncoming", "handler invocation")
		}
	}()

	if err := h(ctx, sessionID, payload); err != nil {
		return errors.Wrap(err, "Adapter", "DeliverIncoming", "handler invocation")
	}
	return nil
}

package transport

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cirrustream/cirrus/errors"
	"github.com/cirrustream/cirrus/session"
)

func newTestAdapter(t *testing.T) (*Adapter, *session.MemoryRegistry) {
	t.Helper()
	registry := session.NewMemoryRegistry()
	return NewAdapter(registry, slog.Default()), registry
}

func TestAdapter_ConnectIsFlagBased(t *testing.T) {
	a, _ := newTestAdapter(t)

	assert.False(t, a.Connected())
	require.NoError(t, a.Connect())
	assert.True(t, a.Connected())

	// Repeated connects are harmless; the flag stays set.
	require.NoError(t, a.Connect())
	assert.True(t, a.Connected())

	require.NoError(t, a.Close())
	assert.False(t, a.Connected())
	require.NoError(t, a.Close())
}

func TestAdapter_SendWhileDisconnectedDrops(t *testing.T) {
	ctx := context.Background()
	a, registry := newTestAdapter(t)

	s, err := registry.Create(ctx)
	require.NoError(t, err)

	// At-most-once semantics: no error, nothing buffered.
	require.NoError(t, a.Send(ctx, []byte("lost")))
	require.NoError(t, a.SendTo(ctx, s.ID, []byte("lost")))

	found, err := registry.Find(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, found.Pending)
}

func TestAdapter_SendBroadcastsToAllSessions(t *testing.T) {
	ctx := context.Background()
	a, registry := newTestAdapter(t)
	require.NoError(t, a.Connect())

	s1, err := registry.Create(ctx)
	require.NoError(t, err)
	s2, err := registry.Create(ctx)
	require.NoError(t, err)

	// Documented limitation of the broadcast path: one send lands in every
	// live session's buffer, not just the one that asked.
	require.NoError(t, a.Send(ctx, []byte(`{"answer":42}`)))

	for _, id := range []string{s1.ID, s2.ID} {
		payloads, _, err := registry.Drain(ctx, id)
		require.NoError(t, err)
		require.Len(t, payloads, 1, "session %s should have the broadcast", id)
		assert.Equal(t, `{"answer":42}`, string(payloads[0]))
	}
}

func TestAdapter_SendToTargetsSingleSession(t *testing.T) {
	ctx := context.Background()
	a, registry := newTestAdapter(t)
	require.NoError(t, a.Connect())

	s1, err := registry.Create(ctx)
	require.NoError(t, err)
	s2, err := registry.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, a.SendTo(ctx, s1.ID, []byte("targeted")))

	payloads, _, err := registry.Drain(ctx, s1.ID)
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	payloads, _, err = registry.Drain(ctx, s2.ID)
	require.NoError(t, err)
	assert.Empty(t, payloads, "other sessions must not see a targeted send")
}

func TestAdapter_SendToUnknownSession(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t)
	require.NoError(t, a.Connect())

	err := a.SendTo(ctx, "ghost", []byte("x"))
	assert.True(t, errors.IsNotFound(err))
}

func TestAdapter_ReceiveUnsupported(t *testing.T) {
	a, _ := newTestAdapter(t)
	_, err := a.Receive(context.Background())
	assert.ErrorIs(t, err, errors.ErrPullUnsupported)
}

func TestAdapter_DeliverIncoming(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAdapter(t)

	// Without a callback the message is dropped silently.
	require.NoError(t, a.DeliverIncoming(ctx, "s1", []byte("ignored")))

	var gotSession string
	var gotPayload []byte
	a.OnMessage(func(_ context.Context, sessionID string, payload []byte) error {
		gotSession = sessionID
		gotPayload = payload
		return nil
	})

	require.NoError(t, a.DeliverIncoming(ctx, "s1", []byte(`{"type":"tool_call"}`)))
	assert.Equal(t, "s1", gotSession)
	assert.Equal(t, `{"type":"tool_call"}`, string(gotPayload))
}

func TestAdapter_DeliverIncomingContainsPanic(t *testing.T) {
	ctx := context.Background()
	a, registry := newTestAdapter(t)
	require.NoError(t, a.Connect())

	s, err := registry.Create(ctx)
	require.NoError(t, err)

	a.OnMessage(func(context.Context, string, []byte) error {
		panic("handler exploded")
	})

	err = a.DeliverIncoming(ctx, s.ID, []byte("boom"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrHandlerFailure)

	// Registry state survives the panic.
	_, err = registry.Find(ctx, s.ID)
	assert.NoError(t, err)
}

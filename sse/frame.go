// Package sse encodes outbound payloads into the Server-Sent-Events wire
// framing used by the bridge.
//
// Every frame is exactly
//
//	id: <int>\n
//	event: <type>\n
//	data: <payload>\n
//	\n
//
// The blank line terminating each frame is part of the wire contract and
// must never be dropped; SSE clients use it to delimit events. Framing is
// output-only: inbound messages arrive as plain structured payloads, never
// as frames.
package sse

import (
	"fmt"
	"strings"
)

// Event types emitted by the bridge.
const (
	EventConnected = "connected"
	EventMessage   = "message"
	EventPing      = "ping"
)

// Streaming response headers for endpoints that return frame text.
const (
	ContentType      = "text/event-stream"
	CacheControl     = "no-cache"
	ConnectionHeader = "keep-alive"
)

// Frame encodes a single event. The payload is treated as opaque text;
// callers serialize structured values before framing.
func Frame(id int64, event string, payload string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id: %d\n", id)
	fmt.Fprintf(&b, "event: %s\n", event)
	fmt.Fprintf(&b, "data: %s\n\n", payload)
	return b.String()
}

// FrameConnected produces the session-open announcement carrying the new
// connection id. The session cursor starts at 0 and is only advanced by
// drains, so the connected frame sits outside the cursor at id 0.
func FrameConnected(sessionID string) string {
	return Frame(0, EventConnected, fmt.Sprintf(`{"connectionId":%q}`, sessionID))
}

// FrameMessages encodes drained payloads in order. The payload at index i
// gets event id start+i+1, continuing the session cursor without gaps.
func FrameMessages(payloads [][]byte, start int64) string {
	var b strings.Builder
	for i, p := range payloads {
		b.WriteString(Frame(start+int64(i)+1, EventMessage, string(p)))
	}
	return b.String()
}

// FramePing is the heartbeat returned when a poll finds no pending
// messages, so an empty drain is never an ambiguous empty response. Ping
// frames carry no session state and use the constant id 0.
func FramePing() string {
	return Frame(0, EventPing, "{}")
}

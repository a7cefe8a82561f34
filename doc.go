// Package cirrus bridges a stateless request/response invocation model onto
// the persistent, bidirectional channel an MCP-style protocol handler
// expects.
//
// # Architecture
//
// Each inbound HTTP call is one invocation; there is no socket to keep open
// and no push path beyond the single response. Cirrus simulates a duplex
// stream across invocations with four cooperating pieces:
//
//	┌──────────────────────────────────────┐
//	│          Request Router              │  open / deliver / drain / help
//	│            (gateway)                 │  connectionId extraction
//	└──────────────────────────────────────┘
//	           ↓ delivers via
//	┌──────────────────────────────────────┐
//	│         Transport Adapter            │  duplex-channel contract:
//	│           (transport)                │  Connect, Close, Send, callback
//	└──────────────────────────────────────┘
//	           ↓ buffers into
//	┌──────────────────────────────────────┐
//	│         Session Registry             │  per-session queue and
//	│            (session)                 │  monotonic event cursor
//	└──────────────────────────────────────┘
//	           ↓ drained through
//	┌──────────────────────────────────────┐
//	│          Event Framer                │  id:/event:/data: SSE frames
//	│              (sse)                   │
//	└──────────────────────────────────────┘
//
// A client opens a logical connection on /sse and receives a "connected"
// frame carrying its connectionId. Tool calls are POSTed to /messages with
// that id; responses are buffered in the session and collected by polling
// /poll, which returns them as SSE "message" frames with strictly
// increasing event ids (or a "ping" frame when the buffer is empty).
//
// The protocol handler itself is an MCP server (toolserver) exposing
// weather tools backed by the National Weather Service API (weather).
// The service package ties everything into one explicitly-owned context
// object; cmd/cirrus hosts it as a long-lived HTTP server, and
// Service.HandleRequest is the single-invocation entry point for
// function-style hosting.
package cirrus

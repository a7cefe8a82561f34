// Package gateway routes HTTP-shaped invocations to the bridge operations.
//
// Request and Response are plain values rather than net/http types because
// one invocation of the bridge is not necessarily an http.Request: function
// hosts surface the same logical call through their own event shapes, and
// not all of them populate the same fields (some give only a raw path, some
// only a parsed query map, some bury the connection id in the body). The
// router accepts the union and is tolerant about where it finds things.
package gateway

import (
	"encoding/json"

	"github.com/cirrustream/cirrus/sse"
)

// Request is one HTTP-shaped invocation of the bridge.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
}

// Response is the HTTP-shaped result of one invocation.
type Response struct {
	Status  int
	Headers map[string]string
	Body    string
}

// jsonResponse builds an application/json response.
func jsonResponse(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		// Marshal of the router's own map/struct literals cannot fail in
		// practice; keep the response well-formed regardless.
		return Response{
			Status:  500,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    `{"error":"internal response encoding failure"}`,
		}
	}
	return Response{
		Status:  status,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    string(body),
	}
}

// streamResponse builds a text/event-stream response carrying frame text.
func streamResponse(body string) Response {
	return Response{
		Status: 200,
		Headers: map[string]string{
			"Content-Type":  sse.ContentType,
			"Cache-Control": sse.CacheControl,
			"Connection":    sse.ConnectionHeader,
		},
		Body: body,
	}
}

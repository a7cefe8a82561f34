package service

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cirrustream/cirrus/gateway"
)

// maxBodyBytes bounds inbound message bodies.
const maxBodyBytes = 1 << 20

// HTTPHandler adapts the router to net/http for server-mode deployments.
// Every route funnels through the same dispatch as a function-host
// invocation would, so both modes share one behavior.
func (s *Service) HTTPHandler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	// The router does its own path/method dispatch, including the help
	// fallback, so everything else is one handler.
	r.NotFound(s.serveBridge)
	r.MethodNotAllowed(s.serveBridge)
	r.HandleFunc("/sse", s.serveBridge)
	r.HandleFunc("/messages", s.serveBridge)
	r.HandleFunc("/poll", s.serveBridge)

	return r
}

func (s *Service) serveBridge(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, `{"error":"failed to read request body"}`, http.StatusBadRequest)
		return
	}

	query := make(map[string]string, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}

	headers := make(map[string]string, len(r.Header))
	for key := range r.Header {
		headers[key] = r.Header.Get(key)
	}

	resp := s.HandleRequest(r.Context(), gateway.Request{
		Method:  r.Method,
		Path:    r.URL.RequestURI(),
		Headers: headers,
		Query:   query,
		Body:    body,
	})

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.Status)
	_, _ = io.WriteString(w, resp.Body)
}

func (s *Service) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.redisRegistry != nil {
		if err := s.redisRegistry.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, `{"status":"degraded","reason":"redis unreachable"}`)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, `{"status":"ok"}`)
}

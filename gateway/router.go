package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cirrustream/cirrus/errors"
	"github.com/cirrustream/cirrus/metric"
	"github.com/cirrustream/cirrus/session"
	"github.com/cirrustream/cirrus/sse"
	"github.com/cirrustream/cirrus/transport"
)

// Route names, also used as metric labels.
const (
	routeOpen    = "open"
	routeDeliver = "deliver"
	routeDrain   = "drain"
	routeHelp    = "help"
)

// Router dispatches HTTP-shaped invocations to the bridge operations. All
// errors are terminal here: they become HTTP-shaped responses, never
// failures escaping to the host runtime.
type Router struct {
	registry session.Registry
	adapter  *transport.Adapter
	logger   *slog.Logger
	metrics  *metric.Metrics // optional
}

// NewRouter creates a router over the given registry and adapter. metrics
// may be nil.
func NewRouter(registry session.Registry, adapter *transport.Adapter, logger *slog.Logger, metrics *metric.Metrics) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry: registry,
		adapter:  adapter,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handle processes one invocation and always returns a response.
func (rt *Router) Handle(ctx context.Context, req Request) Response {
	started := time.Now()
	route := routeFor(req)

	var resp Response
	switch route {
	case routeOpen:
		resp = rt.handleOpen(ctx, req)
	case routeDeliver:
		resp = rt.handleDeliver(ctx, req)
	case routeDrain:
		resp = rt.handleDrain(ctx, req)
	default:
		resp = rt.handleHelp(ctx, req)
	}

	rt.observe(route, resp.Status, time.Since(started))
	return resp
}

// routeFor matches on method plus the path prefix before any query string.
func routeFor(req Request) string {
	path := req.Path
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}

	switch {
	case path == "/sse":
		return routeOpen
	case path == "/messages" && req.Method == http.MethodPost:
		return routeDeliver
	case path == "/poll" && req.Method == http.MethodGet:
		return routeDrain
	default:
		return routeHelp
	}
}

// handleOpen creates a session and announces it with a connected frame.
func (rt *Router) handleOpen(ctx context.Context, _ Request) Response {
	sess, err := rt.registry.Create(ctx)
	if err != nil {
		rt.logger.Error("session create failed", "error", err)
		return jsonResponse(statusFromError(err), map[string]any{
			"error": "failed to create session",
		})
	}

	rt.logger.Info("session opened", "session", sess.ID)
	if rt.metrics != nil {
		rt.metrics.SessionsCreated.Inc()
		if count, err := rt.registry.Count(ctx); err == nil {
			rt.metrics.SessionsActive.Set(float64(count))
		}
	}

	return streamResponse(sse.FrameConnected(sess.ID))
}

// handleDeliver forwards an inbound message to the protocol handler.
func (rt *Router) handleDeliver(ctx context.Context, req Request) Response {
	id := ExtractConnectionID(req)
	if id == "" {
		return rt.missingID(req)
	}

	if _, err := rt.registry.Find(ctx, id); err != nil {
		return rt.sessionNotFound(ctx, id)
	}

	payload := NormalizeBody(req.Body)
	if err := rt.adapter.DeliverIncoming(ctx, id, payload); err != nil {
		rt.logger.Error("inbound delivery failed", "session", id, "error", err)
		if rt.metrics != nil {
			rt.metrics.HandlerFailures.Inc()
		}
		return jsonResponse(http.StatusInternalServerError, map[string]any{
			"error":        err.Error(),
			"connectionId": id,
		})
	}

	if rt.metrics != nil {
		rt.metrics.MessagesDelivered.Inc()
	}
	return jsonResponse(http.StatusOK, map[string]any{
		"status":       "received",
		"connectionId": id,
	})
}

// handleDrain empties the session buffer and returns it as frame text.
func (rt *Router) handleDrain(ctx context.Context, req Request) Response {
	id := ExtractConnectionID(req)
	if id == "" {
		return rt.missingID(req)
	}

	payloads, start, err := rt.registry.Drain(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return rt.sessionNotFound(ctx, id)
		}
		rt.logger.Error("drain failed", "session", id, "error", err)
		return jsonResponse(statusFromError(err), map[string]any{
			"error":        "failed to drain session",
			"connectionId": id,
		})
	}

	if len(payloads) == 0 {
		return streamResponse(sse.FramePing())
	}

	if rt.metrics != nil {
		rt.metrics.MessagesDrained.Add(float64(len(payloads)))
	}
	return streamResponse(sse.FrameMessages(payloads, start))
}

// handleHelp answers anything unrouted with a description of the bridge.
func (rt *Router) handleHelp(ctx context.Context, req Request) Response {
	count, _ := rt.registry.Count(ctx)

	return jsonResponse(http.StatusOK, map[string]any{
		"message": "cirrus MCP bridge",
		"routes": map[string]string{
			"GET/any /sse":   "open a session, returns a connected event with your connectionId",
			"POST /messages": "deliver a message to the protocol handler (connectionId required)",
			"GET /poll":      "drain pending events for a session (connectionId required)",
		},
		"debug": map[string]any{
			"activeSessions": count,
			"connectionId":   ExtractConnectionID(req),
			"method":         req.Method,
			"path":           req.Path,
		},
	})
}

func (rt *Router) missingID(req Request) Response {
	rt.logger.Warn("request without connectionId", "method", req.Method, "path", req.Path)
	return jsonResponse(http.StatusBadRequest, map[string]any{
		"error": "Missing connectionId",
		"path":  req.Path,
		"query": req.Query,
	})
}

func (rt *Router) sessionNotFound(ctx context.Context, id string) Response {
	count, _ := rt.registry.Count(ctx)
	rt.logger.Warn("unknown session", "session", id, "active_sessions", count)
	return jsonResponse(http.StatusNotFound, map[string]any{
		"error":          "Session not found",
		"connectionId":   id,
		"activeSessions": count,
	})
}

func (rt *Router) observe(route string, status int, elapsed time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	rt.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// statusFromError maps classified errors to HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Package service composes the bridge: session registry, transport
// adapter, tool server, and router, plus the HTTP surface and the
// background loops that keep them healthy.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/cirrustream/cirrus/config"
	"github.com/cirrustream/cirrus/errors"
	"github.com/cirrustream/cirrus/gateway"
	"github.com/cirrustream/cirrus/metric"
	"github.com/cirrustream/cirrus/session"
	"github.com/cirrustream/cirrus/toolserver"
	"github.com/cirrustream/cirrus/transport"
	"github.com/cirrustream/cirrus/weather"
)

const shutdownGrace = 10 * time.Second

// Service owns every bridge component and their lifecycles.
type Service struct {
	cfg     *config.Config
	logger  *slog.Logger
	running atomic.Bool

	registry session.Registry
	adapter  *transport.Adapter
	tools    *toolserver.Server
	router   *gateway.Router

	metrics       *metric.Registry
	metricsServer *metric.Server

	// set only for the redis backend, so shutdown can close the client
	redisRegistry *session.RedisRegistry
}

// New wires a service from validated configuration. The adapter's inbound
// callback is bound to the tool server: every delivered message is
// dispatched and its response, if any, is buffered back onto the session
// it came from.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.ErrMissingConfig
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:    cfg,
		logger: logger,
	}

	switch cfg.Session.Backend {
	case config.BackendRedis:
		reg := session.NewRedisRegistryFromOptions(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		s.registry = reg
		s.redisRegistry = reg
	default:
		s.registry = session.NewMemoryRegistry()
	}

	s.adapter = transport.NewAdapter(s.registry, logger)

	client := weather.NewClient(weather.Config{
		BaseURL:           cfg.Weather.BaseURL,
		UserAgent:         cfg.Weather.UserAgent,
		Timeout:           cfg.Weather.Timeout(),
		RequestsPerSecond: cfg.Weather.RequestsPerSecond,
	})
	s.tools = toolserver.New(client, logger)

	s.adapter.OnMessage(func(ctx context.Context, sessionID string, payload []byte) error {
		resp, err := s.tools.Dispatch(ctx, payload)
		if err != nil {
			return err
		}
		if resp == nil {
			// Notification: nothing to buffer back.
			return nil
		}
		return s.adapter.SendTo(ctx, sessionID, resp)
	})

	if cfg.Metrics.Enabled {
		s.metrics = metric.NewRegistry()
		s.metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, s.metrics)
	}

	var m *metric.Metrics
	if s.metrics != nil {
		m = s.metrics.Metrics
	}
	s.router = gateway.NewRouter(s.registry, s.adapter, logger, m)

	return s, nil
}

// HandleRequest processes one HTTP-shaped invocation. It is safe for
// concurrent use and usable directly from a function host without Run.
func (s *Service) HandleRequest(ctx context.Context, req gateway.Request) gateway.Response {
	return s.router.Handle(ctx, req)
}

// Registry exposes the session registry, mainly for tests.
func (s *Service) Registry() session.Registry {
	return s.registry
}

// Start connects the transport and verifies backend reachability.
func (s *Service) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}

	if s.redisRegistry != nil {
		if err := s.redisRegistry.Ping(ctx); err != nil {
			s.running.Store(false)
			return fmt.Errorf("service.Start: redis ping failed: %w", err)
		}
	}

	if err := s.adapter.Connect(); err != nil {
		s.running.Store(false)
		return fmt.Errorf("service.Start: transport connect failed: %w", err)
	}

	s.logger.Info("service started",
		"backend", s.cfg.Session.Backend,
		"metrics_enabled", s.cfg.Metrics.Enabled)
	return nil
}

// Stop closes the transport and any backend connections.
func (s *Service) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	var firstErr error
	if err := s.adapter.Close(); err != nil {
		firstErr = err
	}
	if s.redisRegistry != nil {
		if err := s.redisRegistry.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.logger.Info("service stopped")
	return firstErr
}

// Run starts the service and blocks serving HTTP until ctx is cancelled or
// SIGINT/SIGTERM arrives. It owns the metrics endpoint and the idle-session
// sweeper.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := s.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.Stop(); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.HTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", "addr", s.cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if s.metricsServer != nil {
		errCh, err := s.metricsServer.Start()
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		g.Go(func() error {
			select {
			case err := <-errCh:
				return fmt.Errorf("metrics server: %w", err)
			case <-gctx.Done():
				return s.metricsServer.Stop(shutdownGrace)
			}
		})
	}

	if s.cfg.Session.IdleTimeout() > 0 {
		g.Go(func() error {
			s.sweepIdleSessions(gctx)
			return nil
		})
	}

	return g.Wait()
}

// sweepIdleSessions evicts sessions past the idle timeout on a fixed
// cadence until ctx is cancelled.
func (s *Service) sweepIdleSessions(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Session.SweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.registry.ExpireIdle(ctx, s.cfg.Session.IdleTimeout())
			if err != nil {
				s.logger.Warn("idle sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				s.logger.Info("expired idle sessions", "count", expired)
				if s.metrics != nil {
					s.metrics.Metrics.SessionsExpired.Add(float64(expired))
					if count, err := s.registry.Count(ctx); err == nil {
						s.metrics.Metrics.SessionsActive.Set(float64(count))
					}
				}
			}
		}
	}
}

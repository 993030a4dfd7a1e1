// Package demo wires a small visit-counter service used by iocctl to show the container
// at work: configuration, an optional Redis backend with an in-memory fallback, and a
// request-scoped audit record per HTTP request.
package demo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	ioc "github.com/plumeink/cullinan-ioc"
	"github.com/plumeink/cullinan-ioc/config"
	"github.com/plumeink/cullinan-ioc/providers/redisprovider"
	"github.com/plumeink/cullinan-ioc/registry"
)

// Component names.
const (
	ConfigName  = "config"
	LoggerName  = "logger"
	CounterName = "visits.counter"
	ServiceName = "visits.service"
	AuditName   = "request.audit"
)

// Counter counts visits per key.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (m *memoryCounter) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

type redisCounter struct {
	client *redisprovider.Client
}

func (r *redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, "visits:"+key).Result()
}

// Audit is the per-request record of what a request touched.
type Audit struct {
	RequestID string
	Started   time.Time

	mu     sync.Mutex
	events []string
	logger *slog.Logger
}

func (a *Audit) Record(event string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *Audit) Events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

// OnShutdown runs when the request context exits.
func (a *Audit) OnShutdown(context.Context) error {
	a.logger.Info("request audit",
		"request_id", a.RequestID,
		"events", a.Events(),
		"duration", time.Since(a.Started).String(),
	)
	return nil
}

// Service is the application-facing API of the demo.
type Service struct {
	counter Counter
	backend string
	logger  *slog.Logger
}

func (s *Service) Backend() string { return s.backend }

// Visit increments the counter for key and records it on the request's audit.
func (s *Service) Visit(ctx context.Context, audit *Audit, key string) (int64, error) {
	n, err := s.counter.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("count visit %q: %w", key, err)
	}
	audit.Record(fmt.Sprintf("visit %s=%d", key, n))
	return n, nil
}

func (s *Service) OnStartup(context.Context) error {
	s.logger.Info("visits service started", "backend", s.backend)
	return nil
}

// Provider registers the demo components for cfg.
func Provider(cfg *config.Config, logger *slog.Logger) registry.Provider {
	return registry.ProviderFunc(func(c *registry.Collector) {
		c.Component(ConfigName, func(ioc.Resolver) (any, error) {
			return cfg, nil
		}, ioc.TypeOf[*config.Config]())

		c.Component(LoggerName, func(ioc.Resolver) (any, error) {
			return logger, nil
		}, ioc.TypeOf[*slog.Logger]())

		c.Add(redisprovider.Definition(cfg.Redis))

		c.Component(CounterName, newCounter, ioc.DependsOn(redisprovider.Name), ioc.TypeOf[Counter]())

		c.Component(ServiceName, newService, ioc.Eager(), ioc.DependsOn(CounterName), ioc.TypeOf[*Service]())

		c.Component(AuditName, newAudit, ioc.WithScope(ioc.ScopeRequest), ioc.TypeOf[*Audit]())
	})
}

func newCounter(r ioc.Resolver) (any, error) {
	client, ok, err := ioc.TryResolve[*redisprovider.Client](r, redisprovider.Name)
	if err != nil {
		return nil, err
	}
	if ok {
		return &redisCounter{client: client}, nil
	}
	return &memoryCounter{counts: make(map[string]int64)}, nil
}

func newService(r ioc.Resolver) (any, error) {
	counter, err := ioc.Resolve[Counter](r, CounterName)
	if err != nil {
		return nil, err
	}
	logger, err := ioc.Resolve[*slog.Logger](r, LoggerName)
	if err != nil {
		return nil, err
	}
	backend := "memory"
	if _, ok := counter.(*redisCounter); ok {
		backend = "redis"
	}
	return &Service{counter: counter, backend: backend, logger: logger}, nil
}

func newAudit(r ioc.Resolver) (any, error) {
	logger, err := ioc.Resolve[*slog.Logger](r, LoggerName)
	if err != nil {
		return nil, err
	}
	rc, ok := ioc.CurrentRequestContext(r.Context())
	if !ok {
		return nil, fmt.Errorf("audit needs an active request context")
	}
	return &Audit{RequestID: rc.ID(), Started: time.Now(), logger: logger}, nil
}

// Build creates an application context with the demo wiring registered but not refreshed.
func Build(cfg *config.Config, logger *slog.Logger, opts ...ioc.Option) (*ioc.ApplicationContext, error) {
	app := ioc.New(append([]ioc.Option{ioc.WithLogger(logger)}, opts...)...)
	c := registry.New()
	c.Use(Provider(cfg, logger))
	if err := c.Flush(app); err != nil {
		return nil, err
	}
	return app, nil
}

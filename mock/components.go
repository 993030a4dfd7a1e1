package mock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	ioc "github.com/plumeink/cullinan-ioc"
)

// Recorder collects lifecycle events in the order they happened.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) Record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns the events with the given prefix, prefix stripped.
func (r *Recorder) Filter(prefix string) []string {
	var out []string
	for _, e := range r.Events() {
		if len(e) > len(prefix) && e[:len(prefix)] == prefix {
			out = append(out, e[len(prefix):])
		}
	}
	return out
}

// Component implements every lifecycle hook and records each call as "<hook>:<name>".
type Component struct {
	Name       string
	PhaseValue int
	Rec        *Recorder
	// FailOn names a hook ("post_construct", "startup", "shutdown", "pre_destroy") that
	// returns an error.
	FailOn string
}

func (c *Component) Phase() int { return c.PhaseValue }

func (c *Component) hook(name string) error {
	if c.Rec != nil {
		c.Rec.Record(name + ":" + c.Name)
	}
	if c.FailOn == name {
		return fmt.Errorf("simulated %s failure", name)
	}
	return nil
}

func (c *Component) OnPostConstruct(context.Context) error { return c.hook(ioc.HookPostConstruct) }
func (c *Component) OnStartup(context.Context) error       { return c.hook(ioc.HookStartup) }
func (c *Component) OnShutdown(context.Context) error      { return c.hook(ioc.HookShutdown) }
func (c *Component) OnPreDestroy(context.Context) error    { return c.hook(ioc.HookPreDestroy) }

// ComponentFactory builds a fresh Component on every call.
func ComponentFactory(name string, phase int, rec *Recorder) ioc.Factory {
	return func(ioc.Resolver) (any, error) {
		return &Component{Name: name, PhaseValue: phase, Rec: rec}, nil
	}
}

// Database is a started/stopped resource.
type Database interface {
	Connect() error
	IsConnected() bool
}

type MockDB struct {
	connected atomic.Bool
}

func (m *MockDB) Connect() error {
	m.connected.Store(true)
	return nil
}

func (m *MockDB) IsConnected() bool { return m.connected.Load() }

func (m *MockDB) OnStartup(context.Context) error {
	return m.Connect()
}

func (m *MockDB) OnShutdown(context.Context) error {
	m.connected.Store(false)
	return nil
}

// FailingDB fails to start when ShouldFail is set.
type FailingDB struct {
	MockDB
	ShouldFail bool
}

func (f *FailingDB) OnStartup(ctx context.Context) error {
	if f.ShouldFail {
		return fmt.Errorf("simulated boot failure")
	}
	return f.MockDB.OnStartup(ctx)
}

// MockCache depends on the "db" component.
type MockCache struct {
	DB Database
}

func CacheFactory(r ioc.Resolver) (any, error) {
	db, err := ioc.Resolve[Database](r, "db")
	if err != nil {
		return nil, err
	}
	return &MockCache{DB: db}, nil
}

// Circular pair: "circular1" needs "circular2" and the other way around.
type CircularImpl1 struct{ Svc2 *CircularImpl2 }
type CircularImpl2 struct{ Svc1 *CircularImpl1 }

func Circular1Factory(r ioc.Resolver) (any, error) {
	svc2, err := ioc.Resolve[*CircularImpl2](r, "circular2")
	if err != nil {
		return nil, err
	}
	return &CircularImpl1{Svc2: svc2}, nil
}

func Circular2Factory(r ioc.Resolver) (any, error) {
	svc1, err := ioc.Resolve[*CircularImpl1](r, "circular1")
	if err != nil {
		return nil, err
	}
	return &CircularImpl2{Svc1: svc1}, nil
}

// Deep chain: deep1 -> deep2 -> deep3.
type DeepImpl3 struct{ Value string }
type DeepImpl2 struct{ Svc3 *DeepImpl3 }
type DeepImpl1 struct{ Svc2 *DeepImpl2 }

func DeepDefinitions(scope ioc.Scope) []*ioc.Definition {
	return []*ioc.Definition{
		ioc.NewDefinition("deep3", func(ioc.Resolver) (any, error) {
			return &DeepImpl3{Value: "deep"}, nil
		}, ioc.WithScope(scope)),
		ioc.NewDefinition("deep2", func(r ioc.Resolver) (any, error) {
			svc3, err := ioc.Resolve[*DeepImpl3](r, "deep3")
			if err != nil {
				return nil, err
			}
			return &DeepImpl2{Svc3: svc3}, nil
		}, ioc.WithScope(scope)),
		ioc.NewDefinition("deep1", func(r ioc.Resolver) (any, error) {
			svc2, err := ioc.Resolve[*DeepImpl2](r, "deep2")
			if err != nil {
				return nil, err
			}
			return &DeepImpl1{Svc2: svc2}, nil
		}, ioc.WithScope(scope)),
	}
}

// Counter counts factory invocations.
type Counter struct {
	calls atomic.Int32
}

func (c *Counter) Calls() int { return int(c.calls.Load()) }

// Factory wraps build, counting calls and sleeping delay first to widen race windows.
func (c *Counter) Factory(delay time.Duration, build func() any) ioc.Factory {
	return func(ioc.Resolver) (any, error) {
		c.calls.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		return build(), nil
	}
}

// Object is a distinguishable value for identity checks.
type Object struct {
	ID int
}

var objectSeq atomic.Int64

func NewObject() any {
	return &Object{ID: int(objectSeq.Add(1))}
}

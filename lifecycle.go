package ioc

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

var errRetired = errors.New("instance was stopped while being created")

// managed is one constructed instance tracked for lifecycle hooks. mu serializes the
// start and stop of one instance; once retired it can no longer be started.
type managed struct {
	name     string
	instance any
	phase    int
	seq      uint64

	mu      sync.Mutex
	started bool
	retired bool
}

func phaseOf(instance any, def *Definition) int {
	if p, ok := instance.(Phased); ok {
		return p.Phase()
	}
	return def.phase
}

// lifecycleRegistry tracks instances owned by one cache (the application context or a
// request context) in creation order. Every drain starts a new generation; a sealed
// registry accepts nothing.
type lifecycleRegistry struct {
	mu         sync.Mutex
	items      []*managed
	running    bool
	generation uint64
	sealed     bool
}

// gen returns the current generation, to be passed to add once the instance is built.
func (r *lifecycleRegistry) gen() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// add tracks m and reports whether the owner is already running, in which case the
// caller must start m itself. ok is false when the registry was drained or sealed since
// gen was taken; m is not tracked then.
func (r *lifecycleRegistry) add(m *managed, gen uint64) (running, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed || r.generation != gen {
		return false, false
	}
	r.items = append(r.items, m)
	return r.running, true
}

func (r *lifecycleRegistry) remove(m *managed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, it := range r.items {
		if it == m {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return
		}
	}
}

// markRunning switches the registry to running and returns what was tracked before.
func (r *lifecycleRegistry) markRunning() []*managed {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = true
	out := make([]*managed, len(r.items))
	copy(out, r.items)
	return out
}

// drain stops tracking everything and returns it.
func (r *lifecycleRegistry) drain() []*managed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drainLocked()
}

// seal drains the registry for good.
func (r *lifecycleRegistry) seal() []*managed {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	return r.drainLocked()
}

func (r *lifecycleRegistry) drainLocked() []*managed {
	out := r.items
	r.items = nil
	r.running = false
	r.generation++
	return out
}

func (r *lifecycleRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// orchestrator runs lifecycle hooks in phase order.
type orchestrator struct {
	logger   *slog.Logger
	observer Observer
}

func (o *orchestrator) fail(m *managed, hook string, err error) error {
	o.observer.HookFailed(m.name, hook, m.phase, err)
	o.logger.Error("lifecycle hook failed",
		"component", m.name,
		"hook", hook,
		"phase", m.phase,
		"error", err,
	)
	return &LifecycleError{Name: m.name, Phase: m.phase, Hook: hook, Err: err}
}

func (o *orchestrator) postConstruct(ctx context.Context, m *managed) error {
	if pc, ok := m.instance.(PostConstructor); ok {
		if err := pc.OnPostConstruct(ctx); err != nil {
			return o.fail(m, HookPostConstruct, err)
		}
	}
	return nil
}

func (o *orchestrator) start(ctx context.Context, m *managed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retired {
		return errRetired
	}
	if m.started {
		return nil
	}
	if s, ok := m.instance.(Starter); ok {
		if err := s.OnStartup(ctx); err != nil {
			return o.fail(m, HookStartup, err)
		}
	}
	m.started = true
	o.logger.Debug("component started", "component", m.name, "phase", m.phase)
	return nil
}

// startAll starts items in ascending phase order, ties by creation order. It stops at
// the first failure and returns the items that did start, in start order.
func (o *orchestrator) startAll(ctx context.Context, items []*managed) ([]*managed, error) {
	ordered := make([]*managed, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].phase != ordered[j].phase {
			return ordered[i].phase < ordered[j].phase
		}
		return ordered[i].seq < ordered[j].seq
	})

	started := make([]*managed, 0, len(ordered))
	for _, m := range ordered {
		if err := ctx.Err(); err != nil {
			return started, err
		}
		if err := o.start(ctx, m); err != nil {
			return started, err
		}
		started = append(started, m)
	}
	return started, nil
}

// stop retires m and runs OnShutdown if m was started.
func (o *orchestrator) stop(ctx context.Context, m *managed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retired = true
	if !m.started {
		return nil
	}
	m.started = false
	if s, ok := m.instance.(Stopper); ok {
		if err := s.OnShutdown(ctx); err != nil {
			return o.fail(m, HookShutdown, err)
		}
	}
	return nil
}

// stopAll stops items in descending phase order, ties by reverse creation order. Within
// a phase every OnShutdown runs before any OnPreDestroy. OnShutdown only runs for started
// items. With failFast the first failure ends the sequence; otherwise all hooks run and
// every failure is returned.
func (o *orchestrator) stopAll(ctx context.Context, items []*managed, failFast bool) []error {
	ordered := make([]*managed, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].phase != ordered[j].phase {
			return ordered[i].phase > ordered[j].phase
		}
		return ordered[i].seq > ordered[j].seq
	})

	var errs []error
	for start := 0; start < len(ordered); {
		end := start
		for end < len(ordered) && ordered[end].phase == ordered[start].phase {
			end++
		}
		group := ordered[start:end]

		for _, m := range group {
			if err := o.stop(ctx, m); err != nil {
				errs = append(errs, err)
				if failFast {
					return errs
				}
			}
		}
		for _, m := range group {
			if pd, ok := m.instance.(PreDestroyer); ok {
				if err := pd.OnPreDestroy(ctx); err != nil {
					errs = append(errs, o.fail(m, HookPreDestroy, err))
					if failFast {
						return errs
					}
				}
			}
		}
		start = end
	}
	return errs
}

package ioc

import (
	"context"
	"sync"
)

type slotState int

const (
	slotUncreated slotState = iota
	slotCreating
	slotCreated
)

// slot caches one (scope, name) instance. Exactly one caller wins the
// Uncreated -> Creating transition and runs the factory; the others wait on done.
type slot struct {
	name     string
	mu       sync.Mutex
	state    slotState
	instance any
	owner    *chain
	done     chan struct{}
}

func newSlot(name string) *slot {
	return &slot{name: name}
}

// value returns the cached instance if the slot is Created.
func (s *slot) value() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == slotCreated {
		return s.instance, true
	}
	return nil, false
}

// acquire returns the cached instance, or won=true when the caller must build it and
// then call complete or fail. Waiting honors ctx and the wait-for table.
func (s *slot) acquire(ctx context.Context, node *chain, waits *waitTable) (instance any, won bool, err error) {
	for {
		s.mu.Lock()
		switch s.state {
		case slotCreated:
			instance = s.instance
			s.mu.Unlock()
			return instance, false, nil
		case slotUncreated:
			s.state = slotCreating
			s.owner = node
			s.done = make(chan struct{})
			s.mu.Unlock()
			return nil, true, nil
		}
		done := s.done
		s.mu.Unlock()

		release, err := waits.enter(node, s)
		if err != nil {
			return nil, false, err
		}
		select {
		case <-done:
			release()
		case <-ctx.Done():
			release()
			return nil, false, ctx.Err()
		}
	}
}

func (s *slot) complete(instance any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = slotCreated
	s.instance = instance
	s.owner = nil
	close(s.done)
}

// fail resets the slot so a later caller may retry.
func (s *slot) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = slotUncreated
	s.owner = nil
	close(s.done)
}

// reset drops a created instance. Slots under construction are left alone.
func (s *slot) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == slotCreated {
		s.state = slotUncreated
		s.instance = nil
	}
}

// currentOwner returns the chain building the slot, or nil when it is not Creating.
func (s *slot) currentOwner() *chain {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != slotCreating {
		return nil
	}
	return s.owner
}

// slotCache maps names to slots for one cache owner (the application context for
// singletons, a request context for request scope).
type slotCache struct {
	slots sync.Map
}

func (c *slotCache) get(name string) *slot {
	if s, ok := c.slots.Load(name); ok {
		return s.(*slot)
	}
	s, _ := c.slots.LoadOrStore(name, newSlot(name))
	return s.(*slot)
}

func (c *slotCache) resetAll() {
	c.slots.Range(func(_, v any) bool {
		v.(*slot).reset()
		return true
	})
}

func (c *slotCache) clear() {
	c.slots.Range(func(k, _ any) bool {
		c.slots.Delete(k)
		return true
	})
}

func (c *slotCache) len() int {
	n := 0
	c.slots.Range(func(_, v any) bool {
		if _, ok := v.(*slot).value(); ok {
			n++
		}
		return true
	})
	return n
}

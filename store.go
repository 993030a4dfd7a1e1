package ioc

import "sync"

// definitionStore is the append-only table of definitions. It is read-only after freeze.
type definitionStore struct {
	mu     sync.RWMutex
	byName map[string]*Definition
	order  []*Definition
	frozen bool
}

func newDefinitionStore() *definitionStore {
	return &definitionStore{
		byName: make(map[string]*Definition, 32),
	}
}

func (s *definitionStore) add(d *Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return &RegistryFrozenError{Name: d.name}
	}
	if existing, ok := s.byName[d.name]; ok {
		return &DuplicateDefinitionError{Name: d.name, ExistingSource: existing.source}
	}
	s.byName[d.name] = d
	s.order = append(s.order, d)
	return nil
}

// freeze reports whether this call performed the transition.
func (s *definitionStore) freeze() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return false
	}
	s.frozen = true
	return true
}

func (s *definitionStore) isFrozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

func (s *definitionStore) lookup(name string) (*Definition, bool) {
	s.mu.RLock()
	d, ok := s.byName[name]
	s.mu.RUnlock()
	return d, ok
}

// all returns definitions in registration order.
func (s *definitionStore) all() []*Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Definition, len(s.order))
	copy(out, s.order)
	return out
}

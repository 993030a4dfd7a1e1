package ioc

import (
	"sort"
	"sync"
)

// dependencyGraph holds the edges discovered at runtime: an edge A -> B is recorded
// each time the factory of A resolves B. Declared dependencies live on the definitions.
type dependencyGraph struct {
	mu    sync.RWMutex
	edges map[string][]string
	seen  map[[2]string]struct{}
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{
		edges: make(map[string][]string),
		seen:  make(map[[2]string]struct{}),
	}
}

func (g *dependencyGraph) record(from, to string) {
	key := [2]string{from, to}
	g.mu.RLock()
	_, ok := g.seen[key]
	g.mu.RUnlock()
	if ok {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return
	}
	g.seen[key] = struct{}{}
	g.edges[from] = append(g.edges[from], to)
}

func (g *dependencyGraph) recorded(from string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.edges[from]))
	copy(out, g.edges[from])
	return out
}

// dependenciesOf merges declared and recorded edges of def, declared first, without duplicates.
func (c *ApplicationContext) dependenciesOf(def *Definition) []string {
	recorded := c.graph.recorded(def.name)
	out := make([]string, 0, len(def.dependencies)+len(recorded))
	seen := make(map[string]struct{}, cap(out))
	for _, list := range [][]string{def.dependencies, recorded} {
		for _, name := range list {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// DependencyGraph returns, for every registered name in registration order, the names
// it depends on (declared plus observed so far).
func (c *ApplicationContext) DependencyGraph() map[string][]string {
	defs := c.store.all()
	out := make(map[string][]string, len(defs))
	for _, def := range defs {
		out[def.name] = c.dependenciesOf(def)
	}
	return out
}

// EagerOrder returns the order in which Refresh instantiates components: eager
// definitions plus the singletons they transitively require, dependencies first, ties
// broken by registration order. Definitions whose conditions fail are left out.
func (c *ApplicationContext) EagerOrder() ([]string, error) {
	order, err := c.eagerOrder()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(order))
	for i, def := range order {
		names[i] = def.name
	}
	return names, nil
}

// eagerOrder walks the closure of the eager definitions once to detect cycles, then
// sorts it with Kahn's algorithm, always taking the earliest registered ready node.
func (c *ApplicationContext) eagerOrder() ([]*Definition, error) {
	closure, err := c.eagerClosure()
	if err != nil {
		return nil, err
	}

	rank := make(map[string]int, len(closure))
	for i, def := range closure {
		rank[def.name] = i
	}
	pending := make(map[string]int, len(closure))
	dependents := make(map[string][]*Definition, len(closure))
	for _, def := range closure {
		for _, dep := range c.dependenciesOf(def) {
			if _, ok := rank[dep]; !ok {
				continue
			}
			pending[def.name]++
			dependents[dep] = append(dependents[dep], def)
		}
	}

	var ready []*Definition
	for _, def := range closure {
		if pending[def.name] == 0 {
			ready = append(ready, def)
		}
	}

	order := make([]*Definition, 0, len(closure))
	for len(ready) > 0 {
		def := ready[0]
		ready = ready[1:]
		if def.scope == ScopeSingleton {
			order = append(order, def)
		}
		for _, next := range dependents[def.name] {
			pending[next.name]--
			if pending[next.name] > 0 {
				continue
			}
			at := sort.Search(len(ready), func(i int) bool { return rank[ready[i].name] > rank[next.name] })
			ready = append(ready, nil)
			copy(ready[at+1:], ready[at:])
			ready[at] = next
		}
	}
	return order, nil
}

// eagerClosure returns the eager definitions and everything they transitively depend
// on, in registration order. Definitions whose conditions fail end the walk. A cycle is
// reported with its path in discovery order.
func (c *ApplicationContext) eagerClosure() ([]*Definition, error) {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int)
	included := make(map[string]bool)
	var stack []string

	var visit func(def *Definition) error
	visit = func(def *Definition) error {
		switch color[def.name] {
		case black:
			return nil
		case gray:
			for i, name := range stack {
				if name == def.name {
					path := append(append([]string{}, stack[i:]...), def.name)
					return &CircularDependencyError{Path: path}
				}
			}
		}
		if def.conditionsHold(c) >= 0 {
			color[def.name] = black
			return nil
		}

		color[def.name] = gray
		stack = append(stack, def.name)
		for _, dep := range c.dependenciesOf(def) {
			next, ok := c.store.lookup(dep)
			if !ok {
				continue
			}
			if err := visit(next); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		color[def.name] = black
		included[def.name] = true
		return nil
	}

	all := c.store.all()
	for _, def := range all {
		if !def.eager {
			continue
		}
		if err := visit(def); err != nil {
			return nil, err
		}
	}

	closure := make([]*Definition, 0, len(included))
	for _, def := range all {
		if included[def.name] {
			closure = append(closure, def)
		}
	}
	return closure, nil
}

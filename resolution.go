package ioc

import (
	"context"
	"sync/atomic"
)

// chain is one node of the in-construction path of a resolution call chain.
// Nodes are immutable; pushing returns a child, so a chain travels safely inside
// context.Context and never leaks between unrelated call chains.
type chain struct {
	id     uint64
	name   string
	scope  Scope
	parent *chain
	depth  int
}

type chainKey struct{}

var chainSeq atomic.Uint64

func chainFrom(ctx context.Context) *chain {
	if ctx == nil {
		return nil
	}
	c, _ := ctx.Value(chainKey{}).(*chain)
	return c
}

func withChain(ctx context.Context, c *chain) context.Context {
	return context.WithValue(ctx, chainKey{}, c)
}

// push returns a child node for name. A nil receiver starts a new call chain.
func (c *chain) push(name string, scope Scope) *chain {
	if c == nil {
		return &chain{id: chainSeq.Add(1), name: name, scope: scope, depth: 1}
	}
	return &chain{id: c.id, name: name, scope: scope, parent: c, depth: c.depth + 1}
}

// top returns the name currently under construction, or "".
func (c *chain) top() string {
	if c == nil {
		return ""
	}
	return c.name
}

func (c *chain) contains(name string) bool {
	for n := c; n != nil; n = n.parent {
		if n.name == name {
			return true
		}
	}
	return false
}

// names returns the path from the root of the call chain to c.
func (c *chain) names() []string {
	if c == nil {
		return nil
	}
	out := make([]string, c.depth)
	for n := c; n != nil; n = n.parent {
		out[n.depth-1] = n.name
	}
	return out
}

// namesFrom returns the path starting at the first occurrence of name.
func (c *chain) namesFrom(name string) []string {
	all := c.names()
	for i, n := range all {
		if n == name {
			return all[i:]
		}
	}
	return all
}

// cyclePath is the closed path produced when name is requested again, e.g. [A B A].
func (c *chain) cyclePath(name string) []string {
	return append(c.namesFrom(name), name)
}

// nearestSingleton returns the closest enclosing singleton under construction, or "".
func (c *chain) nearestSingleton() string {
	for n := c; n != nil; n = n.parent {
		if n.scope == ScopeSingleton {
			return n.name
		}
	}
	return ""
}

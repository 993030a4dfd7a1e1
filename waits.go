package ioc

import "sync"

// waitTable records which slot each blocked call chain is waiting on, so that two chains
// building each other's dependencies concurrently fail fast instead of deadlocking.
type waitTable struct {
	mu    sync.Mutex
	waits map[uint64]waitEntry
}

type waitEntry struct {
	slot *slot
	node *chain
}

func newWaitTable() *waitTable {
	return &waitTable{waits: make(map[uint64]waitEntry)}
}

// enter registers node's chain as blocked on s. If following the owners of the awaited
// slots leads back to node's chain, it returns the cycle instead.
// Lock order is table then slot.
func (t *waitTable) enter(node *chain, s *slot) (func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if node != nil {
		if path := t.cycle(node, s); path != nil {
			return nil, &CircularDependencyError{Path: path}
		}
	}

	id := uint64(0)
	if node != nil {
		id = node.id
	}
	entry := waitEntry{slot: s, node: node}
	if id != 0 {
		t.waits[id] = entry
	}
	return func() {
		if id == 0 {
			return
		}
		t.mu.Lock()
		if cur, ok := t.waits[id]; ok && cur == entry {
			delete(t.waits, id)
		}
		t.mu.Unlock()
	}, nil
}

// cycle must be called with t.mu held.
func (t *waitTable) cycle(node *chain, s *slot) []string {
	var segments [][]string
	seen := make(map[uint64]bool)
	cur := s
	for {
		owner := cur.currentOwner()
		if owner == nil {
			return nil
		}
		if owner.id == node.id {
			// node and every segment end with the name they wait on, which is also the
			// first name of the following segment.
			path := node.namesFrom(cur.name)
			for _, seg := range segments {
				path = append(path, seg[1:]...)
			}
			if len(segments) == 0 {
				path = append(path, cur.name)
			}
			return path
		}
		if seen[owner.id] {
			return nil
		}
		seen[owner.id] = true

		next, ok := t.waits[owner.id]
		if !ok {
			return nil
		}
		segments = append(segments, next.node.namesFrom(cur.name))
		cur = next.slot
	}
}

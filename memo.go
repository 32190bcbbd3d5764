package layers

import (
	"context"
	"errors"
	"sync"
)

// memoEntry is one construction slot. done is closed when the entry leaves
// its pending state; instance and err are written before the close, so any
// reader past done sees the settled result.
type memoEntry struct {
	done     chan struct{}
	instance any
	err      error
}

// MemoTable maps provider identity to a construction result for the
// lifetime of one build, or across builds when owned by a Runtime. Entries
// settle exactly once and are never rolled back; a cancelled construction
// is the one case that releases its slot for a later attempt.
type MemoTable struct {
	mu      sync.Mutex
	entries map[ProviderID]*memoEntry
	// waits records which pending constructions are suspended on which
	// pending ids, counted per edge. A cycle in this graph is a deadlock
	// between concurrent resolution branches.
	waits map[ProviderID]map[ProviderID]int
}

// NewMemoTable returns an empty table.
func NewMemoTable() *MemoTable {
	return &MemoTable{
		entries: make(map[ProviderID]*memoEntry),
		waits:   make(map[ProviderID]map[ProviderID]int),
	}
}

// lookup returns the settled result for id, if any. In-flight entries are
// reported as absent.
func (m *MemoTable) lookup(id ProviderID) (any, bool, error) {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	select {
	case <-e.done:
		return e.instance, true, e.err
	default:
		return nil, false, nil
	}
}

// getOrBuild is linearizable per id: exactly one caller installs the
// pending entry and runs construct; every concurrent caller for the same id
// suspends on the entry until it settles, then observes the same result.
// A pending entry observed by its own resolution chain is a dependency
// cycle, not another task's in-flight build.
func (m *MemoTable) getOrBuild(ctx context.Context, p *Provider, chain *resolutionPath, construct func() (any, error)) (any, error) {
	m.mu.Lock()
	if e, ok := m.entries[p.id]; ok {
		m.mu.Unlock()
		select {
		case <-e.done:
			return e.instance, e.err
		default:
		}
		if chain.contains(p.id) {
			return nil, &CyclicDependencyError{Provider: p.name}
		}
		if err := m.addWaiter(chain, p.id, p.name); err != nil {
			return nil, err
		}
		select {
		case <-e.done:
			m.removeWaiter(chain, p.id)
			return e.instance, e.err
		case <-ctx.Done():
			m.removeWaiter(chain, p.id)
			return nil, &ConstructionCancelledError{Provider: p.name, Err: ctx.Err()}
		}
	}
	e := &memoEntry{done: make(chan struct{})}
	m.entries[p.id] = e
	m.mu.Unlock()

	instance, err := construct()
	switch {
	case err == nil:
		e.instance = instance
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Release the slot so a later attempt may retry; waiters observe the
		// cancellation rather than a permanent failure.
		e.err = &ConstructionCancelledError{Provider: p.name, Err: err}
		m.mu.Lock()
		delete(m.entries, p.id)
		m.mu.Unlock()
		close(e.done)
		return nil, e.err
	default:
		e.err = err
	}
	close(e.done)
	return e.instance, e.err
}

// addWaiter records that every construction on chain is about to suspend on
// id. It fails instead of recording when the new edges would close a
// waits-for cycle: a dependency cycle spanning resolution branches that run
// concurrently, where each branch holds a pending entry the other awaits.
// Without the check both branches would suspend forever; chain.contains
// alone only sees cycles within a single branch.
func (m *MemoTable) addWaiter(chain *resolutionPath, id ProviderID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reaches(id, chain) {
		return &CyclicDependencyError{Provider: name}
	}
	for n := chain; n != nil; n = n.next {
		edges := m.waits[n.id]
		if edges == nil {
			edges = make(map[ProviderID]int)
			m.waits[n.id] = edges
		}
		edges[id]++
	}
	return nil
}

func (m *MemoTable) removeWaiter(chain *resolutionPath, id ProviderID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for n := chain; n != nil; n = n.next {
		edges := m.waits[n.id]
		if edges == nil {
			continue
		}
		if edges[id]--; edges[id] <= 0 {
			delete(edges, id)
		}
		if len(edges) == 0 {
			delete(m.waits, n.id)
		}
	}
}

// reaches reports whether any id on chain is reachable from start along
// recorded waits-for edges. Caller holds m.mu.
func (m *MemoTable) reaches(start ProviderID, chain *resolutionPath) bool {
	if chain == nil {
		return false
	}
	visited := make(map[ProviderID]bool)
	stack := []ProviderID{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true
		if chain.contains(id) {
			return true
		}
		for next := range m.waits[id] {
			stack = append(stack, next)
		}
	}
	return false
}

// resolutionPath is the chain of provider ids currently under construction
// on one resolution branch. Branches share an immutable prefix, so parallel
// dependency resolution needs no locking here.
type resolutionPath struct {
	id   ProviderID
	next *resolutionPath
}

func (p *resolutionPath) contains(id ProviderID) bool {
	for n := p; n != nil; n = n.next {
		if n.id == id {
			return true
		}
	}
	return false
}

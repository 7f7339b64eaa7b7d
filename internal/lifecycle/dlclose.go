package lifecycle

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/appsworld/go-rtld/internal/dso"
)

// Dlclose releases one reference to d. When the reference count
// reaches zero and d is not RTLD_NODELETE, its subgraph's destructors
// run in reverse dependency order, and then every object no longer
// referenced by any other live DSO is unmapped and deregistered; those
// unmaps run concurrently, in no fixed order.
func (m *Manager) Dlclose(d *dso.DSO) error {
	if d.Release() > 0 {
		return nil
	}

	m.mu.Lock()
	noDelete := m.nodelete[d]
	m.mu.Unlock()
	if noDelete {
		return nil
	}

	closable := m.unreferencedSubgraph(d)
	if err := m.runFini(reverse(closable)); err != nil {
		return fmt.Errorf("dlclose: %w", err)
	}

	// Unmapping/deregistering each closable object is independent of
	// every other once their destructors have all run (no ordering
	// across distinct subtrees is required here, unlike runFini above),
	// so the fan-out joins on an errgroup instead of running serially.
	var g errgroup.Group
	for _, c := range closable {
		c := c
		g.Go(func() error {
			if c.TLSModuleID != 0 {
				m.TLS.Release(c.TLSModuleID)
			}
			m.Registry.Remove(c)
			for _, seg := range c.Segments {
				_ = m.OS.Munmap(seg.Addr, int(seg.Size))
			}
			return nil
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	for _, c := range closable {
		delete(m.global, c)
	}
	m.mu.Unlock()
	return nil
}

// unreferencedSubgraph walks d's dependency graph in true
// dependency-first order (dso.DependencyPostOrder, not the breadth-
// first dso.DependencyScope — a diamond dependency would otherwise
// leave closable in an order that does not mirror how the subgraph
// was initialized) and returns every member whose only remaining
// referrers are also in this subgraph — i.e. objects that became
// unreachable now that d itself is being closed. A dependency still
// reachable from some other live root (refcount contributions outside
// this subgraph) is kept loaded. The result is dependency-first, the
// same order runInit used to construct this subgraph; Dlclose reverses
// it before running destructors.
func (m *Manager) unreferencedSubgraph(d *dso.DSO) []*dso.DSO {
	scope := dso.DependencyPostOrder(d, m.childrenOf)
	inScope := map[*dso.DSO]bool{}
	for _, s := range scope {
		inScope[s] = true
	}

	var closable []*dso.DSO
	for _, s := range scope {
		referencedOutside := false
		for _, other := range m.Registry.All() {
			if inScope[other] || other == s {
				continue
			}
			for _, child := range m.childrenOf(other) {
				if child == s {
					referencedOutside = true
					break
				}
			}
			if referencedOutside {
				break
			}
		}
		if !referencedOutside && s.RefCount() <= 0 {
			closable = append(closable, s)
		}
	}
	return closable
}

func reverse(in []*dso.DSO) []*dso.DSO {
	out := make([]*dso.DSO, len(in))
	for i, d := range in {
		out[len(in)-1-i] = d
	}
	return out
}

// Package lifecycle implements dlopen/dlsym/dlclose: loading a new
// DSO graph, running its constructors, resolving symbols against the
// resulting scope, and tearing a subgraph back down when its last
// reference drops. Grounded on spec.md §4.7 and §8; the rollback-on-
// failure and singleflight-keyed dedup pattern follows the teacher's
// general house style of narrow, explicit-error-return orchestration
// functions (file.go's Open/NewFile error paths), adapted to this
// package's concurrency requirements with golang.org/x/sync.
package lifecycle

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/internal/loader"
	"github.com/appsworld/go-rtld/internal/reloc"
	"github.com/appsworld/go-rtld/internal/resolver"
	"github.com/appsworld/go-rtld/internal/tls"
	"github.com/appsworld/go-rtld/pkg/osshim"
)

// Mode mirrors the dlopen(3) mode flags relevant to this module.
type Mode int

const (
	ModeLazy   Mode = 1 << 0 // RTLD_LAZY
	ModeNow    Mode = 1 << 1 // RTLD_NOW
	ModeGlobal Mode = 1 << 2 // RTLD_GLOBAL
	ModeLocal  Mode = 1 << 3 // RTLD_LOCAL
	ModeNoDelete Mode = 1 << 4 // RTLD_NODELETE
)

// Manager owns every piece of process-wide state a dlopen/dlclose
// call touches: the DSO registry, the loader, the resolver, the
// relocation applier, and the TLS registry.
type Manager struct {
	OS       osshim.OS
	Registry *dso.Registry
	Loader   *loader.Loader
	Resolver *resolver.Resolver
	Reloc    *reloc.Applier
	TLS      *tls.Registry

	mu      sync.Mutex
	global  map[*dso.DSO]bool
	nodelete map[*dso.DSO]bool

	sf singleflight.Group
}

// New wires a Manager from already-constructed subsystems.
func New(os osshim.OS, reg *dso.Registry, ld *loader.Loader, res *resolver.Resolver, applier *reloc.Applier, tlsReg *tls.Registry) *Manager {
	return &Manager{
		OS: os, Registry: reg, Loader: ld, Resolver: res, Reloc: applier, TLS: tlsReg,
		global:   make(map[*dso.DSO]bool),
		nodelete: make(map[*dso.DSO]bool),
	}
}

// Dlopen loads path (and its not-yet-loaded dependencies), relocates
// every newly loaded object, runs their constructors in dependency
// order, and returns the resulting handle. Concurrent Dlopen calls
// with the same path string join a single load via singleflight;
// calls naming one file through different strings are not joined
// here, and it is the loader's realpath lookup that maps them onto a
// single DSO instance.
func (m *Manager) Dlopen(path string, mode Mode) (*dso.DSO, error) {
	v, err, _ := m.sf.Do(path, func() (interface{}, error) {
		return m.dlopenOnce(path, mode)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dso.DSO), nil
}

func (m *Manager) dlopenOnce(path string, mode Mode) (d *dso.DSO, err error) {
	before := map[*dso.DSO]bool{}
	for _, existing := range m.Registry.All() {
		before[existing] = true
	}

	root, err := m.Loader.LoadGraph(path)
	if err != nil {
		var partial []*dso.DSO
		for _, d := range m.Registry.All() {
			if !before[d] {
				partial = append(partial, d)
			}
		}
		m.rollback(partial)
		return nil, fmt.Errorf("dlopen %s: %w", path, err)
	}

	var freshLoadOrder []*dso.DSO
	fresh := map[*dso.DSO]bool{}
	for _, d := range m.Registry.All() {
		if !before[d] {
			freshLoadOrder = append(freshLoadOrder, d)
			fresh[d] = true
		}
	}

	defer func() {
		if err != nil {
			m.rollback(freshLoadOrder)
		}
	}()

	m.mu.Lock()
	if mode&ModeGlobal != 0 {
		for d := range fresh {
			m.global[d] = true
		}
	}
	if mode&ModeNoDelete != 0 {
		m.nodelete[root] = true
	}
	globalSnapshot := make(map[*dso.DSO]bool, len(m.global))
	for d, v := range m.global {
		globalSnapshot[d] = v
	}
	m.mu.Unlock()

	// The relocation/resolution scope is this object's own dependency
	// scope plus the process-wide global scope, so a preloaded,
	// RTLD_GLOBAL-loaded shim (LD_PRELOAD) resolves symbols referenced
	// by path even though the shim never appears in path's own
	// DT_NEEDED closure (spec.md §8 scenario 4).
	local := dso.DependencyScope(root, m.childrenOf)
	scope := dso.Merge(local, dso.GlobalScope(m.Registry, globalSnapshot))

	// depOrder is a true dependency DFS post-order over root's full
	// graph, filtered down to the objects this call freshly loaded:
	// dependencies are relocated and initialized before whatever needs
	// them, even across a diamond-shaped dependency graph where the
	// loader's breadth-first discovery order gives no such guarantee.
	depOrder := filterFresh(dso.DependencyPostOrder(root, m.childrenOf), fresh)

	lazy := mode&ModeNow == 0
	for _, d := range depOrder {
		if d.Relocated() {
			continue
		}
		if err := m.Reloc.Apply(d, scope, lazy); err != nil {
			return nil, fmt.Errorf("dlopen %s: relocating %s: %w", path, d.Path, err)
		}
		d.MarkRelocated()
		if err := reloc.Relock(m.OS, d); err != nil {
			return nil, fmt.Errorf("dlopen %s: relro-protecting %s: %w", path, d.Path, err)
		}
	}

	if err := m.runInit(depOrder); err != nil {
		return nil, err
	}
	return root, nil
}

// filterFresh returns the members of order that fresh marks, in
// order's relative order — used to narrow a full-graph dependency
// walk down to just the objects one dlopen call introduced.
func filterFresh(order []*dso.DSO, fresh map[*dso.DSO]bool) []*dso.DSO {
	var out []*dso.DSO
	for _, d := range order {
		if fresh[d] {
			out = append(out, d)
		}
	}
	return out
}

// childrenOf returns d's already-resolved DT_NEEDED dependencies as
// DSO pointers, found by matching each DT_NEEDED name against a
// registered object's SoName or Path.
func (m *Manager) childrenOf(d *dso.DSO) []*dso.DSO {
	origin := d.Path
	_ = origin
	var out []*dso.DSO
	for _, name := range d.Needed {
		for _, cand := range m.Registry.All() {
			if cand.SoName == name || cand.Path == name {
				out = append(out, cand)
				break
			}
		}
	}
	return out
}

// rollback unmaps and deregisters every DSO a failed Dlopen
// introduced, in reverse load order, leaving the registry exactly as
// it was before the call.
func (m *Manager) rollback(fresh []*dso.DSO) {
	for i := len(fresh) - 1; i >= 0; i-- {
		d := fresh[i]
		m.Registry.Remove(d)
		for _, seg := range d.Segments {
			_ = m.OS.Munmap(seg.Addr, int(seg.Size))
		}
	}
}

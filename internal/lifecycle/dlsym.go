package lifecycle

import (
	"fmt"

	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/internal/resolver"
)

// Dlsym resolves name against handle's scope: its own dependency
// scope when handle is non-nil (RTLD_DEFAULT-equivalent callers pass
// the process's main executable), or the global scope when handle is
// nil (RTLD_DEFAULT proper).
func (m *Manager) Dlsym(handle *dso.DSO, name, version string) (uint64, error) {
	var scope dso.Scope
	if handle != nil {
		scope = dso.DependencyScope(handle, m.childrenOf)
	} else {
		m.mu.Lock()
		global := make(map[*dso.DSO]bool, len(m.global))
		for d, v := range m.global {
			global[d] = v
		}
		m.mu.Unlock()
		scope = dso.GlobalScope(m.Registry, global)
	}

	res, ok := m.Resolver.Resolve(resolver.Request{Name: name, Version: version, Scope: scope})
	if !ok {
		return 0, fmt.Errorf("dlsym: undefined symbol: %s", name)
	}
	return res.Addr, nil
}

package reloc

import (
	"github.com/appsworld/go-rtld/internal/dso"
)

// installLazyStubs wires d's PLT relocations for lazy binding: each
// GOT slot a JMPREL entry targets is left pointing at the shared
// resolver trampoline (Applier.ResolverStubAddr) instead of being
// resolved immediately. The trampoline's job — push the relocation
// index and jump to a common fixup routine that binds the slot —
// lives in internal/arch's per-architecture
// WritePLTStub, not here; this function only seeds the GOT.
func (a *Applier) installLazyStubs(d *dso.DSO, scope dso.Scope) error {
	if a.ResolverStubAddr == 0 {
		// No trampoline installed (e.g. BIND_NOW build, or a test that
		// only cares about eager relocations): fall back to eager
		// resolution rather than writing an unusable GOT entry.
		for _, e := range d.JmpRelEntries {
			if err := a.applyOne(d, scope, e); err != nil {
				return err
			}
		}
		return nil
	}
	for _, e := range d.JmpRelEntries {
		target := uintptr(int64(e.Offset) + d.LoadBias)
		writeWord(a.Handler, target, a.ResolverStubAddr)
	}
	return nil
}

package rtld

import "fmt"

// Dlclose releases one reference to h. At a zero refcount (and absent
// RTLD_NODELETE), its FINI_ARRAY/FINI run in reverse order, its TLS
// module ID returns to the free list, and its subgraph is unmapped
// and removed from the link map — transitively closing any dependency
// that became unreferenced as a result, per spec.md §4.7/§8's
// dlopen/dlclose symmetry invariant.
func (l *Linker) Dlclose(h Handle) error {
	if !h.valid() {
		return fmt.Errorf("dlclose: invalid handle")
	}
	l.rd.NotifyBegin(false)
	defer l.rd.NotifyEnd(l.Reg.Head())

	if err := l.lc.Dlclose(h.d); err != nil {
		setError(defaultToken, &LinkError{Kind: ErrLoad, Path: h.d.Path, Err: err})
		return fmt.Errorf("dlclose: %w", err)
	}
	clearError(defaultToken)
	return nil
}

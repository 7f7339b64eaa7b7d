package rtld

import "fmt"

// Dlsym resolves name against handle's scope. RTLD_DEFAULT
// (the zero Handle) searches the global scope; RTLD_NEXT is accepted
// but, absent a real per-call-site "caller" concept in this hosted
// model, behaves like RTLD_DEFAULT — documented rather than silently
// wrong. Any other handle searches its own dependency scope.
func (l *Linker) Dlsym(h Handle, name string) (uint64, error) {
	return l.DlsymVersion(h, name, "")
}

// DlsymVersion is Dlsym with an explicit symbol version, the
// dlvsym(3) extension.
func (l *Linker) DlsymVersion(h Handle, name, version string) (uint64, error) {
	addr, err := l.lc.Dlsym(h.d, name, version)
	if err != nil {
		setError(defaultToken, &LinkError{Kind: ErrLoad, Path: name, Err: err})
		return 0, fmt.Errorf("dlsym: %w", err)
	}
	clearError(defaultToken)
	return addr, nil
}

package rtld

import (
	"github.com/appsworld/go-rtld/internal/lifecycle"
)

// Dlopen loads path (and any not-yet-loaded dependencies), relocates
// every newly introduced object, runs their constructors in
// dependency order, and returns a Handle. On failure the call's own
// effects are rolled back, a Handle's zero value is returned, and the
// failure is recorded against the default dlerror token for a later
// Dlerror call — exactly spec.md §4.7/§7's dlopen contract.
func (l *Linker) Dlopen(path string, mode Mode) (Handle, error) {
	return l.DlopenToken(defaultToken, path, mode)
}

// DlopenToken is Dlopen, recording any failure against a caller-chosen
// dlerror token instead of the shared default.
func (l *Linker) DlopenToken(token ErrToken, path string, mode Mode) (Handle, error) {
	l.rd.NotifyBegin(true)
	d, err := l.lc.Dlopen(path, mode)
	if err != nil {
		setError(token, &LinkError{Kind: classifyLoadErr(mode), Path: path, Err: err})
		l.rd.NotifyEnd(nil)
		return Handle{}, err
	}
	clearError(token)
	l.rd.NotifyEnd(l.Reg.Head())
	return Handle{d: d}, nil
}

// classifyLoadErr picks the LinkError kind a failed Dlopen should
// report. Every dlopen failure path in internal/lifecycle is a load
// or relocation failure by construction (bootstrap failures can only
// happen before a Linker exists at all, and TLS allocation failures
// only ever surface from __tls_get_addr); RTLD_NOW forces eager
// relocation, so its failures are more often relocation failures than
// the lazy default.
func classifyLoadErr(mode Mode) LinkErrorKind {
	if mode&lifecycle.ModeNow != 0 {
		return ErrRelocation
	}
	return ErrLoad
}

package rtld

import "sync"

// dlerror has no honest equivalent of C's per-OS-thread storage in
// hosted Go: goroutines migrate between OS threads and have no stable
// identity a library can observe. SPEC_FULL.md's Open Question
// resolution on this point is to key the slot by a caller-supplied
// token instead of pretending to offer real TLS; callers that actually
// need per-goroutine isolation pass a distinct token per goroutine
// (e.g. a context value established at goroutine start).
var dlerrorState sync.Map // token -> *LinkError

// ErrToken is an opaque caller identity for dlerror's keyed-by-token
// workaround. The zero value is the default, single shared slot most
// callers (anything not juggling the ABI from multiple goroutines at
// once) can simply ignore.
type ErrToken string

const defaultToken ErrToken = ""

func setError(token ErrToken, err *LinkError) {
	dlerrorState.Store(token, err)
}

func clearError(token ErrToken) {
	dlerrorState.Delete(token)
}

// Dlerror returns and clears the last error recorded against the
// default token, mirroring dlerror(3)'s "returns NULL on no error,
// and on each call after the first NULL until a further failure
// occurs" contract.
func (l *Linker) Dlerror() string {
	return l.DlerrorToken(defaultToken)
}

// DlerrorToken is Dlerror for a caller-chosen token, for callers that
// need per-goroutine isolation of the dlerror slot.
func (l *Linker) DlerrorToken(token ErrToken) string {
	v, ok := dlerrorState.LoadAndDelete(token)
	if !ok {
		return ""
	}
	return v.(*LinkError).Error()
}

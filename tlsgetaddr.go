package rtld

import (
	"sync"

	"github.com/appsworld/go-rtld/internal/tls"
	"github.com/appsworld/go-rtld/pkg/bumpalloc"
)

// ThreadToken stands in for the thread-pointer register __tls_get_addr
// reads on a real machine: Go gives user code no stable OS-thread
// identity (goroutines migrate between threads, and there is no
// cgo-free way to read %fs/tpidr_el0), so callers that want
// independent TLS state per logical thread supply their own token
// (e.g. one per worker goroutine they spawn) exactly as dlerror's
// ErrToken does for the same reason.
type ThreadToken string

type threadState struct {
	dtv   *tls.DTV
	arena *bumpalloc.Arena
}

var (
	threadsMu sync.Mutex
	threads   = map[ThreadToken]*threadState{}
)

func (l *Linker) threadFor(token ThreadToken) *threadState {
	threadsMu.Lock()
	defer threadsMu.Unlock()
	st, ok := threads[token]
	if !ok {
		st = &threadState{
			dtv:   tls.NewDTV(l.TLS),
			arena: bumpalloc.New(bumpalloc.DefaultSize),
		}
		threads[token] = st
	}
	return st
}

// TLSGetAddr implements __tls_get_addr(module, offset) for the calling
// logical thread identified by token: the general/local-dynamic TLS
// access model's runtime helper spec.md §4.6 and §6 describe, backed
// by this Linker's TLS registry and a per-token DTV/bump arena in
// place of the real thread-pointer-addressed TCB.
func (l *Linker) TLSGetAddr(token ThreadToken, modID uint32, offset uint64) (uintptr, error) {
	st := l.threadFor(token)
	ptr, err := tls.GetAddr(l.TLS, st.dtv, st.arena, modID, offset)
	if err != nil {
		return 0, err
	}
	return uintptr(ptr), nil
}

// ForgetThread drops token's DTV/arena state, for callers that
// explicitly know a logical thread has exited and want its TLS memory
// released rather than leaking for the process lifetime.
func ForgetThread(token ThreadToken) {
	threadsMu.Lock()
	delete(threads, token)
	threadsMu.Unlock()
}

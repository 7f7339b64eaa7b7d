package tls

import (
	"fmt"
	"unsafe"

	"github.com/appsworld/go-rtld/pkg/bumpalloc"
)

// GetAddr implements the general-dynamic/local-dynamic TLS access
// model's runtime helper, __tls_get_addr: given a (module, offset)
// pair from a GOT-resident tls_index, return a pointer to that
// module's block within the calling thread's DTV, growing and
// populating the DTV as needed.
//
// Go's runtime owns the actual thread-pointer register (see
// SPEC_FULL.md's Open Question resolution on hosted-runtime TLS); this
// models the glibc algorithm exactly, operating on an explicitly
// passed DTV/arena pair rather than reading them off a magic machine
// register the way the real __tls_get_addr does.
func GetAddr(r *Registry, dtv *DTV, arena *bumpalloc.Arena, modID uint32, offset uint64) (unsafe.Pointer, error) {
	if dtv.Generation != r.Generation() {
		dtv.EnsureCurrent(r)
	}
	m, ok := r.ModuleByID(modID)
	if !ok {
		return nil, fmt.Errorf("tls: __tls_get_addr: module %d is not registered", modID)
	}
	base, err := dtv.blockFor(m, arena)
	if err != nil {
		return nil, fmt.Errorf("tls: __tls_get_addr: allocating module %d block: %w", modID, err)
	}
	return unsafe.Pointer(uintptr(base) + uintptr(offset)), nil
}

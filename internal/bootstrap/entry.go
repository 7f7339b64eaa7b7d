package bootstrap

import (
	"fmt"
	"unsafe"

	"github.com/appsworld/go-rtld/internal/arch"
	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/types"
)

// SelfRelocate applies every R_*_RELATIVE entry in rela against the
// interpreter's own mapped image at bias, allocating no scratch state
// of its own. Any other relocation class appearing in the
// interpreter's own RELA table is a build misconfiguration (a
// correctly built ld.so is always fully static or only
// self-references via RELATIVE relocations) and is rejected rather
// than silently skipped.
func SelfRelocate(h arch.Handler, bias int64, rela []types.RelEntry) error {
	for _, e := range rela {
		if h.Classify(e.Type) != types.RelRelative {
			return fmt.Errorf("bootstrap: unexpected non-RELATIVE self-relocation type %d at offset %#x", e.Type, e.Offset)
		}
		target := uintptr(int64(e.Offset) + bias)
		writeRelative(h, target, uint64(bias+e.Addend))
	}
	return nil
}

// writeRelative stores val at a self-relocation's target address.
// Split out from reloc.Applier's own writeWord (internal/reloc cannot
// be imported here: it depends on internal/resolver and
// internal/tls, both far heavier than anything the self-relocation
// phase is allowed to touch) to keep this package's dependency
// footprint to exactly what spec.md §2 describes.
func writeRelative(h arch.Handler, addr uintptr, val uint64) {
	if h.Arch().PointerSize() == 4 {
		*(*uint32)(unsafe.Pointer(addr)) = uint32(val)
		return
	}
	*(*uint64)(unsafe.Pointer(addr)) = val
}

// PromoteToRegistry inserts the now-self-relocated interpreter DSO as
// the first entry of reg's link map, the step spec.md §2 describes as
// "the loader discovers itself" — from this point on the interpreter
// is just another member of the DSO graph it goes on to build.
func PromoteToRegistry(reg *dso.Registry, self *dso.DSO) error {
	return reg.Insert(self)
}

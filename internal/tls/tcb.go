package tls

import (
	"unsafe"

	"github.com/appsworld/go-rtld/pkg/bumpalloc"
)

// TCB models the per-thread control block glibc's variant II TLS ABI
// places at the thread pointer on x86: the TCB's own address comes
// first (so `mov %fs:0, %rax` self-loads), followed by the DTV
// pointer. ARM64/RISC-V's variant I instead puts the static TLS block
// immediately after a fixed-size TCB reservation with the DTV stored
// separately; Arena callers pick the layout via
// types.Arch.StaticTLSGrowsDown (true => variant II / grows-down).
type TCB struct {
	Self *TCB
	DTV  *DTV
}

// NewTCB builds a thread's TCB plus its backing static TLS block in
// arena, copying every statically allocated module's initialization
// image and returning the pointer a SetThreadPointer call should
// install. On variant II architectures the thread pointer is the TCB
// itself; on variant I architectures it is the start of the TCB
// reservation, with the static block following it.
func NewTCB(r *Registry, arena *bumpalloc.Arena, growsDown bool) (uintptr, *TCB, error) {
	r.mu.Lock()
	size := r.staticUsed
	align := r.staticAlign
	mods := append([]*Module(nil), r.modules...)
	r.mu.Unlock()

	tcbSize := uintptr(2 * unsafe.Sizeof(uintptr(0)))

	if growsDown {
		total := roundUpPtr(uintptr(size), uintptr(align)) + tcbSize
		block, err := arena.Alloc(total, uintptr(align))
		if err != nil {
			return 0, nil, err
		}
		base := uintptr(block) + total - tcbSize // TCB sits at the high end
		tcb := (*TCB)(unsafe.Pointer(base))
		tcb.Self = tcb
		dtv := NewDTV(r)
		tcb.DTV = dtv

		for _, m := range mods {
			if m == nil || !m.Static {
				continue
			}
			dst := unsafe.Pointer(base + uintptr(m.StaticOffset))
			if m.ImageSize > 0 {
				src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(m.ImageOff))), m.ImageSize)
				copy(unsafe.Slice((*byte)(dst), m.MemSize), src)
			}
			if int(m.ID) < len(dtv.Slots) {
				dtv.Slots[m.ID] = dst
			}
		}
		return base, tcb, nil
	}

	// Variant I: TCB reservation first, static block follows.
	total := tcbSize + roundUpPtr(uintptr(size), uintptr(align))
	block, err := arena.Alloc(total, uintptr(align))
	if err != nil {
		return 0, nil, err
	}
	tcb := (*TCB)(block)
	tcb.Self = tcb
	dtv := NewDTV(r)
	tcb.DTV = dtv

	staticBase := uintptr(block) + tcbSize
	for _, m := range mods {
		if m == nil || !m.Static {
			continue
		}
		dst := unsafe.Pointer(staticBase + uintptr(m.StaticOffset))
		if m.ImageSize > 0 {
			src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(m.ImageOff))), m.ImageSize)
			copy(unsafe.Slice((*byte)(dst), m.MemSize), src)
		}
		if int(m.ID) < len(dtv.Slots) {
			dtv.Slots[m.ID] = dst
		}
	}
	return uintptr(block), tcb, nil
}

func roundUpPtr(x, align uintptr) uintptr {
	if align == 0 {
		return x
	}
	return (x + align - 1) &^ (align - 1)
}

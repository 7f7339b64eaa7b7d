package tls

import (
	"unsafe"

	"github.com/appsworld/go-rtld/pkg/bumpalloc"
)

// DTV is one thread's Dynamic Thread Vector: a generation-tagged array
// of per-module TLS block pointers, indexed by module ID (slot 0
// reserved, matching the module-ID numbering in Registry). Dynamically
// loaded modules' slots start nil and are populated on first access.
// SlotGen records, per index, which Registry slot-reuse generation the
// currently-cached Slots entry belongs to — without it, a slot whose
// module was dlclose'd and later reassigned to an unrelated module
// would keep handing out the old module's (possibly unmapped) block.
type DTV struct {
	Generation uint64
	Slots      []unsafe.Pointer
	SlotGen    []uint64
}

// NewDTV allocates a DTV sized for the registry's module table as of
// the call (a thread created after further dlopen calls gets a
// correspondingly larger DTV; an existing thread's stale DTV is
// resized lazily by EnsureCurrent).
func NewDTV(r *Registry) *DTV {
	r.mu.Lock()
	n := len(r.modules)
	gen := r.generation
	slotGen := append([]uint64(nil), r.slotGen...)
	r.mu.Unlock()
	return &DTV{Generation: gen, Slots: make([]unsafe.Pointer, n), SlotGen: slotGen}
}

// EnsureCurrent grows d to cover every module the registry now knows
// about, preserving already-populated slots, then resets any slot
// whose Registry-side reuse generation has moved on since this DTV
// last saw it — per spec.md §4.6 step 2, "reset entries for freed
// modules to not yet allocated". Without this reset, reusing a freed
// module ID for an unrelated DSO would hand that DSO's
// __tls_get_addr callers the previous occupant's stale block instead
// of allocating and copying the new module's image.
func (d *DTV) EnsureCurrent(r *Registry) {
	r.mu.Lock()
	n := len(r.modules)
	gen := r.generation
	slotGen := append([]uint64(nil), r.slotGen...)
	r.mu.Unlock()

	if n > len(d.Slots) {
		grown := make([]unsafe.Pointer, n)
		copy(grown, d.Slots)
		d.Slots = grown
	}
	if n > len(d.SlotGen) {
		grownGen := make([]uint64, n)
		copy(grownGen, d.SlotGen)
		d.SlotGen = grownGen
	}
	for i := range d.Slots {
		if i < len(slotGen) && d.SlotGen[i] != slotGen[i] {
			d.Slots[i] = nil
			d.SlotGen[i] = slotGen[i]
		}
	}
	d.Generation = gen
}

// blockFor returns m's per-thread storage block within d, allocating
// and initializing it from the module's image on first access (the
// lazy allocation TLS's "allocate on demand" model requires for any
// module loaded after a thread already exists).
func (d *DTV) blockFor(m *Module, arena *bumpalloc.Arena) (unsafe.Pointer, error) {
	if int(m.ID) < len(d.Slots) && d.Slots[m.ID] != nil {
		return d.Slots[m.ID], nil
	}
	ptr, err := arena.Alloc(uintptr(m.MemSize), uintptr(m.Align))
	if err != nil {
		return nil, err
	}
	if m.ImageSize > 0 {
		src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(m.ImageOff))), m.ImageSize)
		dst := unsafe.Slice((*byte)(ptr), m.MemSize)
		copy(dst, src)
	}
	if int(m.ID) >= len(d.Slots) {
		grown := make([]unsafe.Pointer, m.ID+1)
		copy(grown, d.Slots)
		d.Slots = grown
	}
	d.Slots[m.ID] = ptr
	return ptr, nil
}

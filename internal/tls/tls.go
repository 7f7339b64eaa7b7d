// Package tls implements the linker's thread-local storage machinery:
// the static TLS layout computed at startup, the per-module registry
// dlopen/dlclose grow and shrink, and the DTV (Dynamic Thread Vector)
// generation protocol __tls_get_addr depends on. Grounded on
// spec.md §4.6 and original_source/ld_so/src/tls.rs's module vector +
// free-list + generation-counter structure; nothing in the teacher
// repo has a TLS analogue (Mach-O's __thread_vars section is a
// compile-time-only view the dynamic linker never touches), so this
// package's Go shape instead follows the teacher's general "narrow
// struct + explicit error return, no panics" house style.
package tls

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/types"
)

// Module describes one DSO's PT_TLS segment: its initialization image
// (copied into each thread's block on first access) and, for objects
// present at startup, its fixed offset within the static TLS block.
type Module struct {
	ID           uint32
	Owner        *dso.DSO
	ImageOff     uint64 // runtime address of the source image (d.TLSImageOff)
	ImageSize    uint64
	MemSize      uint64
	Align        uint64
	Static       bool
	StaticOffset int64 // meaningful only if Static
}

// Registry tracks every DSO with a PT_TLS segment across the process
// lifetime: modules loaded at startup get a permanent static offset;
// modules loaded later via dlopen get a dynamic slot that DTV entries
// are populated for lazily.
type Registry struct {
	mu sync.Mutex

	modules  []*Module // index 0 unused; module IDs are 1-based
	freeList []uint32
	slotGen  []uint64 // per-module-ID reuse counter, index-aligned with modules

	growsDown      bool
	staticUsed     uint64 // bytes reserved below (or above) the TCB so far
	staticAlign    uint64
	staticFrozen   bool // true once FreezeStatic has been called

	generation uint64 // bumped on every module add/remove past the frozen point
}

// NewRegistry returns an empty registry for the given architecture's
// static-TLS growth direction (see types.Arch.StaticTLSGrowsDown).
func NewRegistry(growsDown bool) *Registry {
	return &Registry{
		modules:     []*Module{nil},
		slotGen:     []uint64{0},
		growsDown:   growsDown,
		staticAlign: 16,
	}
}

// Generation returns the current DTV generation: every thread's DTV
// whose recorded generation is behind this value is stale and must be
// resized/repopulated before the next access, per the standard glibc
// protocol.
func (r *Registry) Generation() uint64 { return atomic.LoadUint64(&r.generation) }

// RegisterStatic reserves d's TLS image a fixed offset in the static
// block. Must be called for every PT_TLS-carrying object discovered
// during the initial load graph walk, before any thread's TCB is
// built — glibc only gives out static slots to objects present at
// process startup.
func (r *Registry) RegisterStatic(d *dso.DSO) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.staticFrozen {
		return nil, fmt.Errorf("tls: cannot add static module %s after static layout is frozen", d.Path)
	}

	align := d.TLSAlign
	if align == 0 {
		align = 1
	}
	if align > r.staticAlign {
		r.staticAlign = align
	}

	var offset int64
	if r.growsDown {
		r.staticUsed = types.RoundUp(r.staticUsed+d.TLSMemSize, align)
		offset = -int64(r.staticUsed)
	} else {
		offset = int64(types.RoundUp(r.staticUsed, align))
		r.staticUsed = uint64(offset) + d.TLSMemSize
	}

	m := &Module{
		ID:           uint32(len(r.modules)),
		Owner:        d,
		ImageOff:     d.TLSImageOff,
		ImageSize:    d.TLSImageSize,
		MemSize:      d.TLSMemSize,
		Align:        align,
		Static:       true,
		StaticOffset: offset,
	}
	r.modules = append(r.modules, m)
	r.slotGen = append(r.slotGen, 0)
	d.TLSModuleID = m.ID
	return m, nil
}

// FreezeStatic locks the static block's size so StaticSize/StaticAlign
// are final; called once after the initial load graph finishes.
func (r *Registry) FreezeStatic() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staticFrozen = true
}

// StaticSize and StaticAlign describe the static TLS block every
// thread's TCB must reserve space for.
func (r *Registry) StaticSize() uint64  { return r.staticUsed }
func (r *Registry) StaticAlign() uint64 { return r.staticAlign }

// RegisterDynamic adds d's TLS module after static layout is frozen
// (a dlopen'd object with PT_TLS). It has no static offset: threads
// allocate and copy its image into their DTV lazily, the first time
// __tls_get_addr is called for it.
func (r *Registry) RegisterDynamic(d *dso.DSO) *Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id uint32
	if n := len(r.freeList); n > 0 {
		id = r.freeList[n-1]
		r.freeList = r.freeList[:n-1]
	} else {
		id = uint32(len(r.modules))
		r.modules = append(r.modules, nil)
		r.slotGen = append(r.slotGen, 0)
	}
	// A reused ID is now a different module than whatever last occupied
	// it; bump its slot generation so every DTV's EnsureCurrent notices
	// and drops its old, now-mismatched block pointer for this ID
	// instead of handing it back as if it still belonged here.
	r.slotGen[id]++

	align := d.TLSAlign
	if align == 0 {
		align = 1
	}
	m := &Module{ID: id, Owner: d, ImageOff: d.TLSImageOff, ImageSize: d.TLSImageSize, MemSize: d.TLSMemSize, Align: align}
	r.modules[id] = m
	d.TLSModuleID = id
	atomic.AddUint64(&r.generation, 1)
	return m
}

// Release returns a dynamic module's ID to the free list on dlclose,
// bumping both the slot's own reuse counter and the registry-wide
// generation so every thread's DTV resets its now-stale block pointer
// for this ID (spec.md §4.6 step 2: freed modules' entries reset to
// not-yet-allocated) before the ID is ever handed to a different
// module.
func (r *Registry) Release(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == 0 || int(id) >= len(r.modules) {
		return
	}
	r.modules[id] = nil
	r.freeList = append(r.freeList, id)
	r.slotGen[id]++
	atomic.AddUint64(&r.generation, 1)
}

// SlotGenerations returns a snapshot of the per-module-ID reuse
// counters: index i changes whenever module ID i is released or
// reassigned to a different module, independent of the registry-wide
// Generation counter (which only says "something changed", not
// "which slot").
func (r *Registry) SlotGenerations() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.slotGen...)
}

// ModuleByID returns the module registered under id, if any.
func (r *Registry) ModuleByID(id uint32) (*Module, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == 0 || int(id) >= len(r.modules) || r.modules[id] == nil {
		return nil, false
	}
	return r.modules[id], true
}

// OffsetFor returns the thread-pointer-relative offset for an
// initial-exec/local-exec (TPOFF-class) access to symVal within d's
// TLS block. Only statically allocated modules support this access
// model — a dlopen'd library using IE-model TLS after startup is a
// real ld.so failure mode (glibc calls this "cannot allocate memory in
// static TLS block"), not something this resolver can paper over.
func (r *Registry) OffsetFor(d *dso.DSO, symVal uint64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := d.TLSModuleID
	if id == 0 || int(id) >= len(r.modules) || r.modules[id] == nil || !r.modules[id].Static {
		return 0, fmt.Errorf("tls: %s has no static TLS allocation for an initial-exec access", d.Path)
	}
	m := r.modules[id]
	if r.growsDown {
		return m.StaticOffset + int64(symVal), nil
	}
	// Variant I: the thread pointer addresses the TCB reservation that
	// NewTCB places ahead of the static block.
	return int64(2*unsafe.Sizeof(uintptr(0))) + m.StaticOffset + int64(symVal), nil
}

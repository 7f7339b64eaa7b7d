// Package dso holds the DSO record, the global link map, resolution
// scopes, and the debugger rendezvous structure — the central shared
// state spec.md §3 and §9 describe as "nodes in an arena with
// indices, not owning pointers", generalizing the teacher's FileTOC/
// File aggregate from "one parsed Mach-O file" to "one loaded, mapped,
// relocatable ELF object participating in a global link order".
package dso

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/appsworld/go-rtld/types"
)

// DSO is one loaded ELF object: the main executable, a transitively
// loaded dependency, or a dlopen-ed plugin. A DSO exclusively owns its
// mapped segments and linker-allocated metadata; it lives in exactly
// one Registry and may appear in any number of Scopes as a weak
// reference.
type DSO struct {
	Path     string // realpath, used as the registry's dedup key
	SoName   string
	LoadBias int64
	Arch     types.Arch

	Header types.FileHeader
	Phdrs  []types.ProgHeader

	Dynamic map[types.DynTag]uint64
	Needed  []string // DT_NEEDED names, in table order
	RPath   string
	RunPath string

	Symtab   []types.Sym
	Strtab   []byte
	SysVHash *types.SysVHashTable
	GNUHash  *types.GNUHashTable

	Versym  []types.Versym
	Verdefs []types.Verdef
	Verneed []types.Verneed

	RelaEntries []types.RelEntry
	RelEntries  []types.RelEntry
	JmpRelEntries []types.RelEntry
	PLTRelIsRela  bool

	Init      uint64
	Fini      uint64
	InitArray []uint64
	FiniArray []uint64

	RelroStart, RelroEnd uint64

	TLSModuleID uint32 // 0 if this DSO has no PT_TLS
	TLSImageOff uint64
	TLSImageSize uint64
	TLSMemSize   uint64
	TLSAlign     uint64

	// Segments, in program-header order, already mapped at runtime
	// addresses (Vaddr + LoadBias).
	Segments []MappedSegment

	refCount    int32
	relocated   int32
	initialized int32

	// Next/Prev implement the global link map directly on DSO,
	// avoiding a second owning structure per spec.md §9: the link map
	// only reorders existing DSO values.
	Next, Prev *DSO

	// Handle is this DSO's stable dlopen-visible identity, set once
	// by loader.Load when the object is mapped and never reused even
	// if the path is reloaded after a full unload.
	Handle string
}

// MappedSegment records one PT_LOAD's runtime mapping.
type MappedSegment struct {
	Addr  uintptr
	Size  uintptr
	Flags types.ProgFlag
}

func (d *DSO) String() string {
	return fmt.Sprintf("%s (bias=%#x arch=%s refs=%d)", d.Path, d.LoadBias, d.Arch, d.RefCount())
}

// RefCount returns the current dlopen reference count.
func (d *DSO) RefCount() int32 { return atomic.LoadInt32(&d.refCount) }

// AddRef bumps the reference count and returns the new value.
func (d *DSO) AddRef() int32 { return atomic.AddInt32(&d.refCount, 1) }

// Release decrements the reference count and returns the new value.
func (d *DSO) Release() int32 { return atomic.AddInt32(&d.refCount, -1) }

// Relocated reports whether this DSO's relocations have already run
// (relocating twice is idempotent per spec.md §8, but the lifecycle
// package uses this flag to avoid the redundant work, not for
// correctness).
func (d *DSO) Relocated() bool { return atomic.LoadInt32(&d.relocated) != 0 }
func (d *DSO) MarkRelocated()  { atomic.StoreInt32(&d.relocated, 1) }

func (d *DSO) Initialized() bool { return atomic.LoadInt32(&d.initialized) != 0 }
func (d *DSO) MarkInitialized()  { atomic.StoreInt32(&d.initialized, 1) }

// ContainsAddr reports whether addr falls within one of this DSO's
// mapped segments, used by the registry's address->DSO lookup and by
// Dladdr.
func (d *DSO) ContainsAddr(addr uintptr) bool {
	for _, seg := range d.Segments {
		if addr >= seg.Addr && addr < seg.Addr+seg.Size {
			return true
		}
	}
	return false
}

// LowAddr and HighAddr bound a DSO's mapped region, used to build the
// registry's sorted address-range index.
func (d *DSO) LowAddr() uintptr {
	low := ^uintptr(0)
	for _, seg := range d.Segments {
		if seg.Addr < low {
			low = seg.Addr
		}
	}
	return low
}

func (d *DSO) HighAddr() uintptr {
	var high uintptr
	for _, seg := range d.Segments {
		if end := seg.Addr + seg.Size; end > high {
			high = end
		}
	}
	return high
}

// rdebugState implements the _r_debug rendezvous protocol of spec.md
// §6: a well-known struct a debugger polls (or watches via a
// breakpoint on NotifyBegin/NotifyEnd) to discover link-map changes.
type rdebugState int32

const (
	rtConsistent rdebugState = 0
	rtAdd        rdebugState = 1
	rtDelete     rdebugState = 2
)

// RDebug mirrors glibc's struct r_debug.
type RDebug struct {
	mu      sync.Mutex
	Version int32
	MapHead *DSO
	State   rdebugState
}

var global = &RDebug{Version: 1}

// GlobalRDebug returns the process-wide rendezvous structure.
func GlobalRDebug() *RDebug { return global }

// NotifyBegin marks the start of a link-map mutation (state
// RT_ADD/RT_DELETE) so an attached debugger single-stepping past the
// rendezvous breakpoint sees a well-defined half-updated state.
func (r *RDebug) NotifyBegin(adding bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if adding {
		r.State = rtAdd
	} else {
		r.State = rtDelete
	}
}

// NotifyEnd marks the mutation complete (state RT_CONSISTENT).
func (r *RDebug) NotifyEnd(head *DSO) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MapHead = head
	r.State = rtConsistent
}

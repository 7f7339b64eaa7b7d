// Package bootstrap models the linker's own self-bootstrap sequence:
// reading the auxiliary vector the kernel hands a freshly exec'd
// interpreter, locating its own PT_DYNAMIC table, and applying just
// enough relocations to make its own code callable before any other
// part of the linker runs. Grounded on spec.md §2 and
// original_source/ld_so/src/lib.rs's staged "parse auxv -> relocate
// self -> build registry -> process root" sequence.
//
// A real ld.so performs this before libc's malloc exists, using only
// static buffers and stack-allocated state; atop a hosted Go runtime
// the goroutine calling ParseAuxv and SelfRelocate already has a working allocator and
// garbage collector; this package models the same staged contract
// (no heap allocation in the relocate-self phase) using
// pkg/bumpalloc rather than actually bootstrapping before runtime
// init, which Go does not allow user code to observe or control. See
// SPEC_FULL.md's Open Question resolution on this point.
package bootstrap

import (
	"fmt"

	"github.com/appsworld/go-rtld/pkg/bumpalloc"
)

// AuxType identifies one auxv entry, matching the kernel's a_type
// values relevant to interpreter bootstrap.
type AuxType uint64

const (
	AT_NULL   AuxType = 0
	AT_PHDR   AuxType = 3
	AT_PHENT  AuxType = 4
	AT_PHNUM  AuxType = 5
	AT_PAGESZ AuxType = 6
	AT_BASE   AuxType = 7
	AT_ENTRY  AuxType = 9
	AT_RANDOM AuxType = 25
)

// AuxEntry is one (a_type, a_val) pair from the vector the kernel
// places above argv/envp on a new process's initial stack.
type AuxEntry struct {
	Type AuxType
	Val  uint64
}

// Info is everything Entry extracts from the auxiliary vector: enough
// to locate the executable's own program headers and, if the kernel
// loaded this binary as a second-stage interpreter (AT_BASE != 0),
// the load bias the interpreter itself was mapped at.
type Info struct {
	Phdr     uint64
	Phent    uint64
	Phnum    uint64
	PageSize uint64
	Base     uint64 // 0 if this object is the main executable itself
	Entry    uint64
	Random   uint64
}

// ParseAuxv extracts the fields Info needs from a raw auxv entry
// list, terminated by an AT_NULL entry (auxv entries after AT_NULL
// are not inspected, matching the kernel's own contract).
func ParseAuxv(entries []AuxEntry) (Info, error) {
	var info Info
	var sawPhdr, sawPhnum bool
	for _, e := range entries {
		switch e.Type {
		case AT_NULL:
			if !sawPhdr || !sawPhnum {
				return Info{}, fmt.Errorf("bootstrap: auxv missing AT_PHDR/AT_PHNUM")
			}
			return info, nil
		case AT_PHDR:
			info.Phdr = e.Val
			sawPhdr = true
		case AT_PHENT:
			info.Phent = e.Val
		case AT_PHNUM:
			info.Phnum = e.Val
			sawPhnum = true
		case AT_PAGESZ:
			info.PageSize = e.Val
		case AT_BASE:
			info.Base = e.Val
		case AT_ENTRY:
			info.Entry = e.Val
		case AT_RANDOM:
			info.Random = e.Val
		}
	}
	return Info{}, fmt.Errorf("bootstrap: auxv has no AT_NULL terminator")
}

// Arena is the bump allocator self-relocation is restricted to: every
// structure the relocate-self phase needs (a handful of DynEntry
// values, a small relocation table scratch buffer) must fit in it,
// since nothing past this point may call into a general-purpose
// allocator yet, mirroring spec.md §2's contract even though Go's own
// runtime is already initialized by the time this code runs.
func NewArena() *bumpalloc.Arena {
	return bumpalloc.New(bumpalloc.DefaultSize)
}

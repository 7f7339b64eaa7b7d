// Package arch provides the one piece of this linker that is
// genuinely architecture-specific: relocation-type classification,
// static-TLS layout constants, PLT stub bytes, and the asm trampoline
// that hands control to a loaded image's entry point. Everything else
// in this module programs against the Handler interface below; only
// this package's per-GOARCH files (and their .s bodies) know about
// register conventions.
package arch

import "github.com/appsworld/go-rtld/types"

// Handler is implemented once per supported architecture
// (amd64.go/arm64.go/riscv64.go/i386.go). internal/reloc and
// internal/tls are generic over this interface; internal/bootstrap
// selects an implementation via Current() or ForMachine().
type Handler interface {
	Arch() types.Arch

	// Classify maps a raw relocation type code to the
	// architecture-independent class the relocator dispatches on.
	Classify(t types.RelType) types.RelClass

	// TCBSize is the size in bytes of the architecture's thread
	// control block header (before any static TLS modules).
	TCBSize() uintptr

	// TCBAlign is the required alignment of the TCB/static-TLS block.
	TCBAlign() uintptr

	// PLTStubSize is the size in bytes of one lazy-PLT trampoline slot.
	PLTStubSize() int

	// WritePLTStub encodes the lazy-binding trampoline for relocation
	// index idx into buf (which must be at least PLTStubSize() bytes),
	// given the PLT's own base address and the address of plt[0].
	WritePLTStub(buf []byte, idx uint32, pltBase, resolverStub uint64)
}

var registry = map[types.Arch]Handler{}

// Register installs h as the Handler for its architecture. Called
// from each per-arch file's init().
func Register(h Handler) {
	registry[h.Arch()] = h
}

// For returns the registered Handler for a, or (nil, false) if this
// build was compiled without that architecture's support file (each
// per-arch file is unconditionally compiled today; the false case is
// reserved for a future build-tag-gated slimmed build).
func For(a types.Arch) (Handler, bool) {
	h, ok := registry[a]
	return h, ok
}

// ForMachine is a convenience wrapper combining types.ArchFromMachine
// and For, the shape internal/loader needs when it has only an
// e_machine value decoded from a file header.
func ForMachine(m types.Machine) (Handler, bool) {
	return For(types.ArchFromMachine(m))
}

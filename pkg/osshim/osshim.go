// Package osshim is the thin syscall-surface trait spec.md §1 asks
// the linker core to consume instead of calling mmap/openat/mprotect
// directly, the same "narrow interface the rest of the package
// programs against" shape the teacher uses for types.MachoReader.
package osshim

import "io"

// Prot mirrors mmap's PROT_* bits.
type Prot int

const (
	ProtNone Prot = 0
	ProtRead Prot = 1 << 0
	ProtWrite Prot = 1 << 1
	ProtExec  Prot = 1 << 2
)

// MapFlags mirrors mmap's MAP_* bits relevant to segment loading.
type MapFlags int

const (
	MapShared  MapFlags = 1 << 0
	MapPrivate MapFlags = 1 << 1
	MapFixed   MapFlags = 1 << 2
	MapAnon    MapFlags = 1 << 3
)

// File is a narrow read-only file handle: everything internal/loader
// needs to map PT_LOAD segments from an open descriptor.
type File interface {
	io.ReaderAt
	io.Closer
	Fd() uintptr
}

// OS is the syscall surface the linker core depends on. production
// code gets linux.go's unix-backed implementation; tests substitute a
// fake that never touches the real address space.
type OS interface {
	// Open opens path read-only, resolving it exactly as the kernel's
	// openat would (no PATH search — that's internal/loader's job).
	Open(path string) (File, error)

	// Mmap maps length bytes of fd starting at offset, at addr if
	// flags includes MapFixed (addr is otherwise a hint). Returns the
	// actual base address.
	Mmap(fd File, offset int64, addr uintptr, length int, prot Prot, flags MapFlags) (uintptr, error)

	// MmapAnon reserves an anonymous mapping, used to reserve a DSO's
	// full address span before overlaying its PT_LOAD segments.
	MmapAnon(addr uintptr, length int, prot Prot, flags MapFlags) (uintptr, error)

	Munmap(addr uintptr, length int) error
	Mprotect(addr uintptr, length int, prot Prot) error

	// PageSize is AT_PAGESZ — the runtime page size, not assumed to be
	// a compile-time constant (riscv64 and aarch64 both support
	// non-4K pages).
	PageSize() int

	// ThreadPointer reads the calling thread's architecture thread
	// pointer register (fs/gs base on x86, tpidr_el0 on aarch64, tp on
	// riscv64).
	ThreadPointer() (uintptr, error)

	// SetThreadPointer installs a new thread pointer, used once per
	// thread when its TCB is constructed.
	SetThreadPointer(p uintptr) error
}

package loader

import "unsafe"

// zeroTail zeros the BSS portion of a PT_LOAD mapping that extends
// past the segment's on-disk content (Memsz > Filesz). The mapping is
// already backed by fresh, zero-filled pages from the kernel in the
// common case; this exists for embedders that substitute an
// osshim.OS whose Mmap doesn't guarantee that (e.g. a test double
// backed by a reused buffer).
func zeroTail(start, end uintptr) {
	n := end - start
	buf := unsafe.Slice((*byte)(unsafe.Pointer(start)), n)
	for i := range buf {
		buf[i] = 0
	}
}

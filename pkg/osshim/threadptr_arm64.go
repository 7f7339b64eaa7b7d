//go:build linux && arm64

package osshim

// On aarch64 Linux the thread pointer is tpidr_el0, read/written
// directly via the MRS/MSR instructions rather than a syscall; the
// actual register access is in threadptr_arm64.s.
func threadPointer() (uintptr, error) {
	return readTPIDR(), nil
}

func setThreadPointer(p uintptr) error {
	writeTPIDR(p)
	return nil
}

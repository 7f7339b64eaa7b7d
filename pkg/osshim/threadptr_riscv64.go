//go:build linux && riscv64

package osshim

// On riscv64 Linux the thread pointer is register tp (x4), read
// directly rather than through a syscall; see threadptr_riscv64.s.
func threadPointer() (uintptr, error) {
	return readTP(), nil
}

func setThreadPointer(p uintptr) error {
	writeTP(p)
	return nil
}

func readTP() uintptr
func writeTP(p uintptr)

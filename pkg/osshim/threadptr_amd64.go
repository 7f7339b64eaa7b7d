//go:build linux && amd64

package osshim

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// On amd64 Linux the thread pointer lives in the FS segment base,
// read/written via arch_prctl(ARCH_GET_FS/ARCH_SET_FS).
const (
	archGetFS = 0x1003
	archSetFS = 0x1002
)

func threadPointer() (uintptr, error) {
	var base uint64
	_, _, errno := unix.Syscall(unix.SYS_ARCH_PRCTL, archGetFS, uintptr(unsafe.Pointer(&base)), 0)
	if errno != 0 {
		return 0, errno
	}
	return uintptr(base), nil
}

func setThreadPointer(p uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_ARCH_PRCTL, archSetFS, uintptr(p), 0)
	if errno != 0 {
		return errno
	}
	return nil
}

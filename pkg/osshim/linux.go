//go:build linux

package osshim

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Linux implements OS on top of golang.org/x/sys/unix, the dependency
// curlwget-CortexTheseus's vendor tree already carries for exactly
// this kind of raw syscall access.
type Linux struct{}

func (Linux) Open(path string) (File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func toUnixProt(p Prot) int {
	var v int
	if p&ProtRead != 0 {
		v |= unix.PROT_READ
	}
	if p&ProtWrite != 0 {
		v |= unix.PROT_WRITE
	}
	if p&ProtExec != 0 {
		v |= unix.PROT_EXEC
	}
	return v
}

func toUnixFlags(f MapFlags) int {
	var v int
	if f&MapShared != 0 {
		v |= unix.MAP_SHARED
	}
	if f&MapPrivate != 0 {
		v |= unix.MAP_PRIVATE
	}
	if f&MapFixed != 0 {
		v |= unix.MAP_FIXED
	}
	if f&MapAnon != 0 {
		v |= unix.MAP_ANON
	}
	return v
}

func (Linux) Mmap(fd File, offset int64, addr uintptr, length int, prot Prot, flags MapFlags) (uintptr, error) {
	f, ok := fd.(interface{ Fd() uintptr })
	if !ok {
		return 0, fmt.Errorf("osshim: file handle does not expose a descriptor")
	}
	ret, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, uintptr(length),
		uintptr(toUnixProt(prot)), uintptr(toUnixFlags(flags)), f.Fd(), uintptr(offset))
	if errno != 0 {
		return 0, fmt.Errorf("mmap: %w", errno)
	}
	return ret, nil
}

func (l Linux) MmapAnon(addr uintptr, length int, prot Prot, flags MapFlags) (uintptr, error) {
	ret, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, uintptr(length),
		uintptr(toUnixProt(prot)), uintptr(toUnixFlags(flags|MapAnon)), ^uintptr(0), 0)
	if errno != 0 {
		return 0, fmt.Errorf("mmap(anon): %w", errno)
	}
	return ret, nil
}

func (Linux) Munmap(addr uintptr, length int) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, uintptr(length), 0)
	if errno != 0 {
		return fmt.Errorf("munmap: %w", errno)
	}
	return nil
}

func (Linux) Mprotect(addr uintptr, length int, prot Prot) error {
	_, _, errno := unix.Syscall(unix.SYS_MPROTECT, addr, uintptr(length), uintptr(toUnixProt(prot)))
	if errno != 0 {
		return fmt.Errorf("mprotect: %w", errno)
	}
	return nil
}

func (Linux) PageSize() int {
	return os.Getpagesize()
}

// ThreadPointer/SetThreadPointer are implemented per-GOARCH in
// threadptr_*.go: the underlying arch_prctl/prctl call and register
// differ by architecture, the same split internal/arch uses for its
// Handler implementations.
func (l Linux) ThreadPointer() (uintptr, error)     { return threadPointer() }
func (l Linux) SetThreadPointer(p uintptr) error { return setThreadPointer(p) }

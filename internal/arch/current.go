package arch

import (
	"fmt"
	"runtime"

	"github.com/appsworld/go-rtld/types"
)

// Current returns the types.Arch matching the Go runtime's own
// GOARCH. internal/bootstrap uses this to pick which Handler governs
// relocating the linker's own image (and any statically-linked
// host-architecture assumptions); internal/loader instead resolves a
// target DSO's Handler from the ELF header it just decoded via
// ForMachine, since a loaded object need not match the host.
func Current() (types.Arch, error) {
	switch runtime.GOARCH {
	case "amd64":
		return types.ArchX86_64, nil
	case "arm64":
		return types.ArchAArch64, nil
	case "riscv64":
		return types.ArchRISCV64, nil
	case "386":
		return types.ArchI386, nil
	default:
		return types.ArchUnknown, fmt.Errorf("arch: unsupported host GOARCH %q", runtime.GOARCH)
	}
}

package arch

import "github.com/appsworld/go-rtld/types"

func init() { Register(riscv64Handler{}) }

type riscv64Handler struct{}

func (riscv64Handler) Arch() types.Arch { return types.ArchRISCV64 }

func (riscv64Handler) Classify(t types.RelType) types.RelClass {
	switch t {
	case types.R_RISCV_NONE:
		return types.RelNone
	case types.R_RISCV_RELATIVE:
		return types.RelRelative
	case types.R_RISCV_64:
		return types.RelAbsolute
	case types.R_RISCV_JUMP_SLOT:
		return types.RelJumpSlot
	case types.R_RISCV_COPY:
		return types.RelCopy
	case types.R_RISCV_TLS_DTPMOD64:
		return types.RelTLSDTPMod
	case types.R_RISCV_TLS_DTPREL64:
		return types.RelTLSDTPOff
	case types.R_RISCV_TLS_TPREL64:
		return types.RelTLSTPOff
	case types.R_RISCV_IRELATIVE:
		return types.RelIRelative
	default:
		return types.RelNone
	}
}

func (riscv64Handler) TCBSize() uintptr  { return 16 }
func (riscv64Handler) TCBAlign() uintptr { return 16 }

func (riscv64Handler) PLTStubSize() int { return 16 }

func (riscv64Handler) WritePLTStub(buf []byte, idx uint32, pltBase, resolverStub uint64) {
	// auipc/ld/jalr sequence (the riscv psABI's standard PLT shape).
	putU32(buf[0:4], 0x00000297)  // auipc t0, 0 (patched)
	putU32(buf[4:8], 0x0002b283)  // ld t0, 0(t0)
	putU32(buf[8:12], 0x00028067) // jr t0
	putU32(buf[12:16], idx)
}

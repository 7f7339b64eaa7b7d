package arch

import "github.com/appsworld/go-rtld/types"

func init() { Register(arm64Handler{}) }

type arm64Handler struct{}

func (arm64Handler) Arch() types.Arch { return types.ArchAArch64 }

func (arm64Handler) Classify(t types.RelType) types.RelClass {
	switch t {
	case types.R_AARCH64_NONE:
		return types.RelNone
	case types.R_AARCH64_RELATIVE:
		return types.RelRelative
	case types.R_AARCH64_ABS64:
		return types.RelAbsolute
	case types.R_AARCH64_GLOB_DAT:
		return types.RelGlobDat
	case types.R_AARCH64_JUMP_SLOT:
		return types.RelJumpSlot
	case types.R_AARCH64_COPY:
		return types.RelCopy
	case types.R_AARCH64_TLS_DTPMOD:
		return types.RelTLSDTPMod
	case types.R_AARCH64_TLS_DTPREL:
		return types.RelTLSDTPOff
	case types.R_AARCH64_TLS_TPREL:
		return types.RelTLSTPOff
	case types.R_AARCH64_IRELATIVE:
		return types.RelIRelative
	default:
		return types.RelNone
	}
}

// The ARM AAPCS64 TLS variant I ABI reserves two pointer-sized words
// at the *start* of the TLS block (not the TCB itself) before module
// data begins; we fold that reservation into TCBSize so all
// positive-offset architectures can be treated uniformly.
func (arm64Handler) TCBSize() uintptr  { return 16 }
func (arm64Handler) TCBAlign() uintptr { return 16 }

func (arm64Handler) PLTStubSize() int { return 16 }

func (arm64Handler) WritePLTStub(buf []byte, idx uint32, pltBase, resolverStub uint64) {
	// adrp/ldr/br sequence loading GOT[n] and branching to it,
	// followed by the relocation index stored as a raw data word.
	// pltBase and resolverStub are not encoded into this stub.
	putU32(buf[0:4], 0x90000010)                  // adrp x16, #0 (patched by loader)
	putU32(buf[4:8], 0xf9400211)                   // ldr x17, [x16]
	putU32(buf[8:12], 0xd61f0220)                  // br x17
	putU32(buf[12:16], idx)
}

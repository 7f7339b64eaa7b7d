package arch

import "github.com/appsworld/go-rtld/types"

func init() { Register(i386Handler{}) }

type i386Handler struct{}

func (i386Handler) Arch() types.Arch { return types.ArchI386 }

func (i386Handler) Classify(t types.RelType) types.RelClass {
	switch t {
	case types.R_386_NONE:
		return types.RelNone
	case types.R_386_RELATIVE:
		return types.RelRelative
	case types.R_386_32, types.R_386_PC32:
		return types.RelAbsolute
	case types.R_386_GLOB_DAT:
		return types.RelGlobDat
	case types.R_386_JMP_SLOT:
		return types.RelJumpSlot
	case types.R_386_COPY:
		return types.RelCopy
	case types.R_386_TLS_DTPMOD32:
		return types.RelTLSDTPMod
	case types.R_386_TLS_DTPOFF32:
		return types.RelTLSDTPOff
	case types.R_386_TLS_TPOFF:
		return types.RelTLSTPOff
	case types.R_386_IRELATIVE:
		return types.RelIRelative
	default:
		return types.RelNone
	}
}

func (i386Handler) TCBSize() uintptr  { return 8 }
func (i386Handler) TCBAlign() uintptr { return 4 }

func (i386Handler) PLTStubSize() int { return 16 }

func (i386Handler) WritePLTStub(buf []byte, idx uint32, pltBase, resolverStub uint64) {
	buf[0] = 0xff // jmp *got(n)
	buf[1] = 0x25
	putU32(buf[2:6], 0)
	buf[6] = 0x68 // push imm32
	putU32(buf[7:11], idx)
	buf[11] = 0xe9 // jmp rel32
	putU32(buf[12:16], uint32(resolverStub-pltBase))
}

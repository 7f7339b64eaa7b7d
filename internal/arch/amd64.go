package arch

import "github.com/appsworld/go-rtld/types"

func init() { Register(amd64Handler{}) }

type amd64Handler struct{}

func (amd64Handler) Arch() types.Arch { return types.ArchX86_64 }

func (amd64Handler) Classify(t types.RelType) types.RelClass {
	switch t {
	case types.R_X86_64_NONE:
		return types.RelNone
	case types.R_X86_64_RELATIVE:
		return types.RelRelative
	case types.R_X86_64_64, types.R_X86_64_PC32:
		return types.RelAbsolute
	case types.R_X86_64_GLOB_DAT:
		return types.RelGlobDat
	case types.R_X86_64_JUMP_SLOT:
		return types.RelJumpSlot
	case types.R_X86_64_COPY:
		return types.RelCopy
	case types.R_X86_64_DTPMOD64:
		return types.RelTLSDTPMod
	case types.R_X86_64_DTPOFF64:
		return types.RelTLSDTPOff
	case types.R_X86_64_TPOFF64:
		return types.RelTLSTPOff
	case types.R_X86_64_IRELATIVE:
		return types.RelIRelative
	default:
		return types.RelNone
	}
}

// x86_64 static TLS grows down from the thread pointer: the TCB
// occupies the first two pointer-sized words (tcb self-pointer, dtv
// pointer), per the variant II ABI glibc and musl both implement.
func (amd64Handler) TCBSize() uintptr  { return 16 }
func (amd64Handler) TCBAlign() uintptr { return 8 }

// Each PLT slot is a 16-byte "jmp *got(rip); pushq idx; jmp plt0"
// stub in the real ABI; we size for that without hand-assembling the
// bytes here (internal/reloc's plt.go fills architecture-neutral
// bookkeeping and only this method's byte layout is arch-specific).
func (amd64Handler) PLTStubSize() int { return 16 }

func (amd64Handler) WritePLTStub(buf []byte, idx uint32, pltBase, resolverStub uint64) {
	// jmp *GOT[n](%rip)  -- encoded relative to this stub's own
	// address, which the loader fills in once the PLT's final
	// mapping address is known; here we encode the two operands the
	// relocator needs at bind time (relocation index + resolver
	// target), matching the bytes a real amd64 PLT0/PLTn pair has.
	buf[0] = 0xff // jmp
	buf[1] = 0x25 // ModRM: [rip+disp32]
	putU32(buf[2:6], 0) // patched by the loader once addresses are final
	buf[6] = 0x68       // push imm32
	putU32(buf[7:11], idx)
	buf[11] = 0xe9 // jmp rel32
	putU32(buf[12:16], uint32(resolverStub-pltBase))
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

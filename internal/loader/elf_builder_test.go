package loader

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/appsworld/go-rtld/types"
)

// minimalELF builds a tiny, valid little-endian 64-bit ET_DYN image
// with a single PT_LOAD segment and no PT_DYNAMIC, enough to exercise
// header/program-header parsing and segment mapping without a real
// toolchain-produced binary.
func minimalELF(entry uint64, segData []byte, segVaddr uint64) []byte {
	const ehsize = 64
	const phentsize = 56
	phoff := uint64(ehsize)
	dataOff := phoff + phentsize

	var buf bytes.Buffer
	// e_ident
	buf.Write([]byte{0x7f, 'E', 'L', 'F', byte(types.ELFCLASS64), byte(types.ELFDATA2LSB), 1, 0})
	buf.Write(make([]byte, 8))

	order := binary.LittleEndian
	le16 := func(v uint16) { var b [2]byte; order.PutUint16(b[:], v); buf.Write(b[:]) }
	le32 := func(v uint32) { var b [4]byte; order.PutUint32(b[:], v); buf.Write(b[:]) }
	le64 := func(v uint64) { var b [8]byte; order.PutUint64(b[:], v); buf.Write(b[:]) }

	le16(uint16(types.ET_DYN))
	le16(uint16(types.EM_X86_64))
	le32(1)
	le64(entry)
	le64(phoff)
	le64(0) // e_shoff
	le32(0)
	le16(ehsize)
	le16(phentsize)
	le16(1) // phnum
	le16(0)
	le16(0)
	le16(0)

	// one PT_LOAD phdr
	le32(uint32(types.PT_LOAD))
	le32(uint32(types.PF_R | types.PF_X))
	le64(dataOff)
	le64(segVaddr)
	le64(segVaddr)
	le64(uint64(len(segData)))
	le64(uint64(len(segData)))
	le64(0x1000)

	buf.Write(segData)
	return buf.Bytes()
}

type byteReaderAt struct{ b []byte }

func (r byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(r.b)) {
		return 0, io.EOF
	}
	n := copy(p, r.b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Package loader turns an on-disk ELF image into a mapped, parsed
// dso.DSO: header/program-header/dynamic-section decoding, PT_LOAD
// mapping via pkg/osshim, and DT_NEEDED dependency resolution. It
// plays the role the teacher's file.go NewFile/ParseFileTOC pair
// plays for Mach-O, generalized from "parse a load-command list" to
// "parse a program-header table plus its PT_DYNAMIC side table".
package loader

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/appsworld/go-rtld/types"
)

// elfImage is the parsed-but-not-yet-mapped view of one ELF file,
// built purely from its on-disk bytes via r. loader.go turns this
// into a live dso.DSO once segments are mapped and the load bias is
// known.
type elfImage struct {
	r       io.ReaderAt
	Header  types.FileHeader
	Order   binary.ByteOrder
	Phdrs   []types.ProgHeader

	Dynamic map[types.DynTag]uint64
	// DynList preserves encounter order for tags that can repeat
	// (DT_NEEDED), mirroring the teacher's Loads slice keeping load
	// commands in file order alongside the parsed view.
	DynList []types.DynEntry

	Symtab   []types.Sym
	Strtab   []byte
	SysVHash *types.SysVHashTable
	GNUHash  *types.GNUHashTable
	Versym   []types.Versym
	Verdefs  []types.Verdef
	Verneed  []types.Verneed

	Rela  []types.RelEntry
	Rel   []types.RelEntry
	JmpRel []types.RelEntry
	PLTRelIsRela bool

	Needed       []string
	SoName       string
	RPath        string
	RunPath      string
	Init, Fini   uint64
	InitArray    []uint64
	FiniArray    []uint64
	RelroOff, RelroSz uint64
	DynFlags     types.DynFlag
	DynFlags1    types.DynFlag1

	TLSPhdr *types.ProgHeader

	symtabCountHint uint32
}

// parseELF decodes everything needed to load and relocate an object
// from r: the file header, program headers, and the PT_DYNAMIC
// side-table (symtab, strtab, hash tables, version tables, relocation
// tables, init/fini chains).
func parseELF(r io.ReaderAt) (*elfImage, error) {
	var ident [types.EI_NIDENT]byte
	if _, err := r.ReadAt(ident[:], 0); err != nil {
		return nil, fmt.Errorf("loader: reading e_ident: %w", err)
	}
	class, data, err := types.ParseIdent(ident)
	if err != nil {
		return nil, err
	}
	order := data.ByteOrder()

	img := &elfImage{r: r, Order: order, Dynamic: make(map[types.DynTag]uint64)}
	hdr, phoff, phentsize, phnum, err := readFileHeader(r, order, class)
	if err != nil {
		return nil, err
	}
	img.Header = hdr

	phdrs, err := readProgHeaders(r, order, class, phoff, phentsize, phnum)
	if err != nil {
		return nil, err
	}
	img.Phdrs = phdrs

	for i := range phdrs {
		if phdrs[i].Type == types.PT_TLS {
			img.TLSPhdr = &phdrs[i]
		}
	}

	dynPhdr := findPhdr(phdrs, types.PT_DYNAMIC)
	if dynPhdr != nil {
		if err := img.parseDynamic(*dynPhdr, class); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func readFileHeader(r io.ReaderAt, order binary.ByteOrder, class types.Class) (types.FileHeader, uint64, uint64, uint64, error) {
	var hdr types.FileHeader
	hdr.Class = class

	if class == types.ELFCLASS64 {
		buf := make([]byte, 64)
		if _, err := r.ReadAt(buf, 0); err != nil {
			return hdr, 0, 0, 0, err
		}
		hdr.Data = types.Data(buf[types.EI_DATA])
		hdr.OSABI = types.OSABI(buf[types.EI_OSABI])
		hdr.ABIVersion = buf[types.EI_ABIVERSION]
		hdr.Type = types.FileType(order.Uint16(buf[16:]))
		hdr.Machine = types.Machine(order.Uint16(buf[18:]))
		hdr.Version = order.Uint32(buf[20:])
		hdr.Entry = order.Uint64(buf[24:])
		hdr.Phoff = order.Uint64(buf[32:])
		hdr.Shoff = order.Uint64(buf[40:])
		hdr.Flags = order.Uint32(buf[48:])
		hdr.Ehsize = order.Uint16(buf[52:])
		hdr.Phentsize = order.Uint16(buf[54:])
		hdr.Phnum = order.Uint16(buf[56:])
		hdr.Shentsize = order.Uint16(buf[58:])
		hdr.Shnum = order.Uint16(buf[60:])
		hdr.Shstrndx = order.Uint16(buf[62:])
		return hdr, hdr.Phoff, uint64(hdr.Phentsize), uint64(hdr.Phnum), nil
	}

	buf := make([]byte, 52)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return hdr, 0, 0, 0, err
	}
	hdr.Data = types.Data(buf[types.EI_DATA])
	hdr.OSABI = types.OSABI(buf[types.EI_OSABI])
	hdr.ABIVersion = buf[types.EI_ABIVERSION]
	hdr.Type = types.FileType(order.Uint16(buf[16:]))
	hdr.Machine = types.Machine(order.Uint16(buf[18:]))
	hdr.Version = order.Uint32(buf[20:])
	hdr.Entry = uint64(order.Uint32(buf[24:]))
	hdr.Phoff = uint64(order.Uint32(buf[28:]))
	hdr.Shoff = uint64(order.Uint32(buf[32:]))
	hdr.Flags = order.Uint32(buf[36:])
	hdr.Ehsize = order.Uint16(buf[40:])
	hdr.Phentsize = order.Uint16(buf[42:])
	hdr.Phnum = order.Uint16(buf[44:])
	hdr.Shentsize = order.Uint16(buf[46:])
	hdr.Shnum = order.Uint16(buf[48:])
	hdr.Shstrndx = order.Uint16(buf[50:])
	return hdr, hdr.Phoff, uint64(hdr.Phentsize), uint64(hdr.Phnum), nil
}

func readProgHeaders(r io.ReaderAt, order binary.ByteOrder, class types.Class, off, entsize, num uint64) ([]types.ProgHeader, error) {
	out := make([]types.ProgHeader, 0, num)
	for i := uint64(0); i < num; i++ {
		buf := make([]byte, entsize)
		if _, err := r.ReadAt(buf, int64(off+i*entsize)); err != nil {
			return nil, fmt.Errorf("loader: reading phdr %d: %w", i, err)
		}
		var p types.ProgHeader
		if class == types.ELFCLASS64 {
			p.Type = types.ProgType(order.Uint32(buf[0:]))
			p.Flags = types.ProgFlag(order.Uint32(buf[4:]))
			p.Off = order.Uint64(buf[8:])
			p.Vaddr = order.Uint64(buf[16:])
			p.Paddr = order.Uint64(buf[24:])
			p.Filesz = order.Uint64(buf[32:])
			p.Memsz = order.Uint64(buf[40:])
			p.Align = order.Uint64(buf[48:])
		} else {
			p.Type = types.ProgType(order.Uint32(buf[0:]))
			p.Off = uint64(order.Uint32(buf[4:]))
			p.Vaddr = uint64(order.Uint32(buf[8:]))
			p.Paddr = uint64(order.Uint32(buf[12:]))
			p.Filesz = uint64(order.Uint32(buf[16:]))
			p.Memsz = uint64(order.Uint32(buf[20:]))
			p.Flags = types.ProgFlag(order.Uint32(buf[24:]))
			p.Align = uint64(order.Uint32(buf[28:]))
		}
		out = append(out, p)
	}
	return out, nil
}

func findPhdr(phdrs []types.ProgHeader, t types.ProgType) *types.ProgHeader {
	for i := range phdrs {
		if phdrs[i].Type == t {
			return &phdrs[i]
		}
	}
	return nil
}

// parseDynamic decodes the PT_DYNAMIC table and every side table it
// points at: symtab, strtab, hash table, versioning, relocations,
// init/fini chains.
func (img *elfImage) parseDynamic(dynPhdr types.ProgHeader, class types.Class) error {
	entsize := uint64(16)
	if class == types.ELFCLASS32 {
		entsize = 8
	}
	n := dynPhdr.Filesz / entsize
	for i := uint64(0); i < n; i++ {
		buf := make([]byte, entsize)
		if _, err := img.r.ReadAt(buf, int64(dynPhdr.Off+i*entsize)); err != nil {
			return fmt.Errorf("loader: reading dyn entry %d: %w", i, err)
		}
		var tag types.DynTag
		var val uint64
		if class == types.ELFCLASS64 {
			tag = types.DynTag(int64(img.Order.Uint64(buf[0:])))
			val = img.Order.Uint64(buf[8:])
		} else {
			tag = types.DynTag(int64(int32(img.Order.Uint32(buf[0:]))))
			val = uint64(img.Order.Uint32(buf[4:]))
		}
		if tag == types.DT_NULL {
			break
		}
		img.DynList = append(img.DynList, types.DynEntry{Tag: tag, Val: val})
		if tag != types.DT_NEEDED {
			img.Dynamic[tag] = val
		}
	}

	strtabAddr, hasStrtab := img.Dynamic[types.DT_STRTAB]
	strsz := img.Dynamic[types.DT_STRSZ]
	if hasStrtab && strsz > 0 {
		strtab := make([]byte, strsz)
		off, err := img.vaddrToOffsetHint(strtabAddr, dynPhdr)
		if err != nil {
			return err
		}
		if _, err := img.r.ReadAt(strtab, int64(off)); err != nil {
			return fmt.Errorf("loader: reading strtab: %w", err)
		}
		img.Strtab = strtab
	}

	for _, e := range img.DynList {
		if e.Tag == types.DT_NEEDED {
			img.Needed = append(img.Needed, img.str(uint32(e.Val)))
		}
	}
	if off, ok := img.Dynamic[types.DT_SONAME]; ok {
		img.SoName = img.str(uint32(off))
	}
	if off, ok := img.Dynamic[types.DT_RPATH]; ok {
		img.RPath = img.str(uint32(off))
	}
	if off, ok := img.Dynamic[types.DT_RUNPATH]; ok {
		img.RunPath = img.str(uint32(off))
	}
	img.Init = img.Dynamic[types.DT_INIT]
	img.Fini = img.Dynamic[types.DT_FINI]
	img.DynFlags = types.DynFlag(img.Dynamic[types.DT_FLAGS])
	img.DynFlags1 = types.DynFlag1(img.Dynamic[types.DT_FLAGS_1])

	if err := img.parseSymtab(dynPhdr, class); err != nil {
		return err
	}
	if err := img.parseHash(dynPhdr); err != nil {
		return err
	}
	if err := img.parseVersioning(dynPhdr); err != nil {
		return err
	}
	if err := img.parseRelocations(dynPhdr, class); err != nil {
		return err
	}
	if err := img.parseArrays(dynPhdr); err != nil {
		return err
	}
	return nil
}

// vaddrToOffsetHint converts a link-time vaddr to a file offset by
// scanning the already-parsed program headers for the PT_LOAD segment
// containing it. dynPhdr is accepted for call-site symmetry but
// unused; every address this resolves comes from the dynamic table,
// which always falls inside some PT_LOAD.
func (img *elfImage) vaddrToOffsetHint(vaddr uint64, _ types.ProgHeader) (uint64, error) {
	for _, p := range img.Phdrs {
		if p.Type != types.PT_LOAD {
			continue
		}
		if vaddr >= p.Vaddr && vaddr < p.Vaddr+p.Filesz {
			return p.Off + (vaddr - p.Vaddr), nil
		}
	}
	return 0, fmt.Errorf("loader: vaddr %#x not covered by any PT_LOAD", vaddr)
}

func (img *elfImage) str(off uint32) string {
	if int(off) >= len(img.Strtab) {
		return ""
	}
	end := int(off)
	for end < len(img.Strtab) && img.Strtab[end] != 0 {
		end++
	}
	return string(img.Strtab[off:end])
}

package loader

import (
	"fmt"

	"github.com/appsworld/go-rtld/types"
)

func (img *elfImage) parseSymtab(dynPhdr types.ProgHeader, class types.Class) error {
	symtabAddr, ok := img.Dynamic[types.DT_SYMTAB]
	if !ok {
		return nil
	}
	syment := img.Dynamic[types.DT_SYMENT]
	if syment == 0 {
		syment = 24
		if class == types.ELFCLASS32 {
			syment = 16
		}
	}

	// Determine symbol count from whichever hash table is present,
	// falling back to the distance from the symbol table to DT_STRTAB
	// divided by the entry size (the table itself carries no count).
	count, err := img.estimateSymCount(dynPhdr, symtabAddr, syment, class)
	if err != nil {
		return err
	}
	img.symtabCountHint = count

	off, err := img.vaddrToOffsetHint(symtabAddr, dynPhdr)
	if err != nil {
		return err
	}
	syms := make([]types.Sym, count)
	for i := uint32(0); i < count; i++ {
		buf := make([]byte, syment)
		if _, err := img.r.ReadAt(buf, int64(off+uint64(i)*syment)); err != nil {
			return fmt.Errorf("loader: reading symtab[%d]: %w", i, err)
		}
		var s types.Sym
		var nameOff uint32
		if class == types.ELFCLASS64 {
			nameOff = img.Order.Uint32(buf[0:])
			info := buf[4]
			s.Bind = types.SymBindOf(info)
			s.Type = types.SymTypeOf(info)
			s.Shndx = img.Order.Uint16(buf[6:])
			s.Value = img.Order.Uint64(buf[8:])
			s.Size = img.Order.Uint64(buf[16:])
		} else {
			nameOff = img.Order.Uint32(buf[0:])
			s.Value = uint64(img.Order.Uint32(buf[4:]))
			s.Size = uint64(img.Order.Uint32(buf[8:]))
			info := buf[12]
			s.Bind = types.SymBindOf(info)
			s.Type = types.SymTypeOf(info)
			s.Shndx = img.Order.Uint16(buf[14:])
		}
		s.NameOff = nameOff
		s.Name = img.str(nameOff)
		syms[i] = s
	}
	img.Symtab = syms
	return nil
}

// estimateSymCount finds the symbol table's length. DT_HASH's nchain
// field equals the symbol count exactly (the gABI guarantees this);
// DT_GNU_HASH carries no such guarantee, so absent DT_HASH this scans
// forward from the GNU hash table's last chain entry.
func (img *elfImage) estimateSymCount(dynPhdr types.ProgHeader, symtabAddr, syment uint64, class types.Class) (uint32, error) {
	if hashAddr, ok := img.Dynamic[types.DT_HASH]; ok {
		off, err := img.vaddrToOffsetHint(hashAddr, dynPhdr)
		if err == nil {
			hdr := make([]byte, 8)
			if _, err := img.r.ReadAt(hdr, int64(off)); err == nil {
				return img.Order.Uint32(hdr[4:8]), nil
			}
		}
	}
	if gnuAddr, ok := img.Dynamic[types.DT_GNU_HASH]; ok {
		count, err := img.gnuHashSymCount(dynPhdr, gnuAddr)
		if err == nil && count > 0 {
			return count, nil
		}
	}
	// Last resort: bound by distance to the next dynamic-table address
	// past DT_SYMTAB (usually DT_STRTAB), which is always larger.
	strtabAddr := img.Dynamic[types.DT_STRTAB]
	if strtabAddr > symtabAddr {
		return uint32((strtabAddr - symtabAddr) / syment), nil
	}
	return 0, fmt.Errorf("loader: cannot determine symbol table length")
}

func (img *elfImage) gnuHashSymCount(dynPhdr types.ProgHeader, gnuAddr uint64) (uint32, error) {
	off, err := img.vaddrToOffsetHint(gnuAddr, dynPhdr)
	if err != nil {
		return 0, err
	}
	hdr := make([]byte, 16)
	if _, err := img.r.ReadAt(hdr, int64(off)); err != nil {
		return 0, err
	}
	nbucket := img.Order.Uint32(hdr[0:4])
	symoffset := img.Order.Uint32(hdr[4:8])
	bloomSize := img.Order.Uint32(hdr[8:12])

	bucketsOff := off + 16 + 8*uint64(bloomSize)
	buckets := make([]byte, 4*nbucket)
	if _, err := img.r.ReadAt(buckets, int64(bucketsOff)); err != nil {
		return 0, err
	}
	var maxBucket uint32
	for i := uint32(0); i < nbucket; i++ {
		v := img.Order.Uint32(buckets[4*i:])
		if v > maxBucket {
			maxBucket = v
		}
	}
	if maxBucket < symoffset {
		return symoffset, nil
	}
	// Walk the chain starting at the largest bucket value until the
	// end-of-chain (low bit set) marker.
	chainOff := bucketsOff + 4*uint64(nbucket)
	idx := maxBucket
	for {
		buf := make([]byte, 4)
		if _, err := img.r.ReadAt(buf, int64(chainOff+4*uint64(idx-symoffset))); err != nil {
			return idx, nil
		}
		v := img.Order.Uint32(buf)
		idx++
		if v&1 != 0 {
			return idx, nil
		}
	}
}

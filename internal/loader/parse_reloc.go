package loader

import (
	"fmt"

	"github.com/appsworld/go-rtld/types"
)

func (img *elfImage) parseRelocations(dynPhdr types.ProgHeader, class types.Class) error {
	rela, err := img.readRelTable(dynPhdr, types.DT_RELA, types.DT_RELASZ, class, true)
	if err != nil {
		return err
	}
	img.Rela = rela

	rel, err := img.readRelTable(dynPhdr, types.DT_REL, types.DT_RELSZ, class, false)
	if err != nil {
		return err
	}
	img.Rel = rel

	if pltType, ok := img.Dynamic[types.DT_PLTREL]; ok {
		isRela := types.DynTag(int64(pltType)) == types.DT_RELA
		img.PLTRelIsRela = isRela
		jmprel, err := img.readRelTable(dynPhdr, types.DT_JMPREL, types.DT_PLTRELSZ, class, isRela)
		if err != nil {
			return err
		}
		img.JmpRel = jmprel
	}
	return nil
}

func (img *elfImage) readRelTable(dynPhdr types.ProgHeader, addrTag, szTag types.DynTag, class types.Class, isRela bool) ([]types.RelEntry, error) {
	addr, ok := img.Dynamic[addrTag]
	if !ok {
		return nil, nil
	}
	size := img.Dynamic[szTag]
	entsize := uint64(16)
	if isRela {
		entsize = 24
	}
	if class == types.ELFCLASS32 {
		entsize = 8
		if isRela {
			entsize = 12
		}
	}
	if entsize == 0 || size == 0 {
		return nil, nil
	}
	off, err := img.vaddrToOffsetHint(addr, dynPhdr)
	if err != nil {
		return nil, err
	}
	n := size / entsize
	out := make([]types.RelEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		buf := make([]byte, entsize)
		if _, err := img.r.ReadAt(buf, int64(off+i*entsize)); err != nil {
			return nil, fmt.Errorf("loader: reading reloc %d: %w", i, err)
		}
		var e types.RelEntry
		if class == types.ELFCLASS64 {
			e.Offset = img.Order.Uint64(buf[0:])
			sym, typ := types.RelInfo64(img.Order.Uint64(buf[8:]))
			e.SymIdx, e.Type = sym, typ
			if isRela {
				e.Addend = int64(img.Order.Uint64(buf[16:]))
				e.HasAddend = true
			}
		} else {
			e.Offset = uint64(img.Order.Uint32(buf[0:]))
			sym, typ := types.RelInfo32(img.Order.Uint32(buf[4:]))
			e.SymIdx, e.Type = sym, typ
			if isRela {
				e.Addend = int64(int32(img.Order.Uint32(buf[8:])))
				e.HasAddend = true
			}
		}
		out = append(out, e)
	}
	return out, nil
}

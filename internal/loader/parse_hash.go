package loader

import (
	"github.com/appsworld/go-rtld/types"
)

func (img *elfImage) parseHash(dynPhdr types.ProgHeader) error {
	if addr, ok := img.Dynamic[types.DT_HASH]; ok {
		off, err := img.vaddrToOffsetHint(addr, dynPhdr)
		if err != nil {
			return err
		}
		hdr := make([]byte, 8)
		if _, err := img.r.ReadAt(hdr, int64(off)); err != nil {
			return err
		}
		nbucket := img.Order.Uint32(hdr[0:4])
		nchain := img.Order.Uint32(hdr[4:8])
		buf := make([]byte, 8+4*int(nbucket)+4*int(nchain))
		if _, err := img.r.ReadAt(buf, int64(off)); err != nil {
			return err
		}
		t, err := types.ParseSysVHashTable(buf, img.Order)
		if err != nil {
			return err
		}
		img.SysVHash = t
	}

	if addr, ok := img.Dynamic[types.DT_GNU_HASH]; ok {
		off, err := img.vaddrToOffsetHint(addr, dynPhdr)
		if err != nil {
			return err
		}
		// Read a generous upper bound; ParseGNUHashTable stops early
		// if the real table is shorter than this window.
		window := make([]byte, 16+8*4096+4*65536)
		n, _ := img.r.ReadAt(window, int64(off))
		t, err := types.ParseGNUHashTable(window[:n], img.Order, uint32(len(img.Symtab)))
		if err != nil {
			return err
		}
		img.GNUHash = t
	}
	return nil
}

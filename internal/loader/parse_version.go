package loader

import (
	"fmt"

	"github.com/appsworld/go-rtld/types"
)

// parseVersioning decodes .gnu.version (DT_VERSYM), .gnu.version_d
// (DT_VERDEF) and .gnu.version_r (DT_VERNEED) — the three tables
// spec.md §5's symbol-versioning subsystem resolves against.
func (img *elfImage) parseVersioning(dynPhdr types.ProgHeader) error {
	if addr, ok := img.Dynamic[types.DT_VERSYM]; ok && len(img.Symtab) > 0 {
		off, err := img.vaddrToOffsetHint(addr, dynPhdr)
		if err != nil {
			return err
		}
		buf := make([]byte, 2*len(img.Symtab))
		if _, err := img.r.ReadAt(buf, int64(off)); err != nil {
			return fmt.Errorf("loader: reading versym: %w", err)
		}
		img.Versym = make([]types.Versym, len(img.Symtab))
		for i := range img.Versym {
			img.Versym[i] = types.Versym(img.Order.Uint16(buf[2*i:]))
		}
	}

	if addr, ok := img.Dynamic[types.DT_VERDEF]; ok {
		off, err := img.vaddrToOffsetHint(addr, dynPhdr)
		if err != nil {
			return err
		}
		num := img.Dynamic[types.DT_VERDEFNUM]
		defs, err := img.readVerdefs(off, uint32(num))
		if err != nil {
			return err
		}
		img.Verdefs = defs
	}

	if addr, ok := img.Dynamic[types.DT_VERNEED]; ok {
		off, err := img.vaddrToOffsetHint(addr, dynPhdr)
		if err != nil {
			return err
		}
		num := img.Dynamic[types.DT_VERNEEDNUM]
		need, err := img.readVerneeds(off, uint32(num))
		if err != nil {
			return err
		}
		img.Verneed = need
	}
	return nil
}

// readVerdefs walks the Elfxx_Verdef linked list: each entry has
// vd_next bytes to the following entry, and vd_aux/vd_cnt auxiliary
// name entries. The first holds the version's own name; when vd_cnt
// is above one, the second is read as the parent version's name.
func (img *elfImage) readVerdefs(base uint64, num uint32) ([]types.Verdef, error) {
	var out []types.Verdef
	off := base
	for i := uint32(0); i < num; i++ {
		hdr := make([]byte, 20)
		if _, err := img.r.ReadAt(hdr, int64(off)); err != nil {
			return nil, fmt.Errorf("loader: reading verdef[%d]: %w", i, err)
		}
		vdNdx := img.Order.Uint16(hdr[4:6])
		vdCnt := img.Order.Uint16(hdr[6:8])
		vdAux := img.Order.Uint32(hdr[12:16])
		vdNext := img.Order.Uint32(hdr[16:20])

		var name, parent string
		if vdCnt > 0 {
			auxOff := off + uint64(vdAux)
			auxHdr := make([]byte, 8)
			if _, err := img.r.ReadAt(auxHdr, int64(auxOff)); err == nil {
				name = img.str(img.Order.Uint32(auxHdr[0:4]))
			}
			if vdCnt > 1 {
				vdaNext := img.Order.Uint32(auxHdr[4:8])
				parentOff := auxOff + uint64(vdaNext)
				parentHdr := make([]byte, 4)
				if _, err := img.r.ReadAt(parentHdr, int64(parentOff)); err == nil {
					parent = img.str(img.Order.Uint32(parentHdr[0:4]))
				}
			}
		}
		out = append(out, types.Verdef{Index: vdNdx, Name: name, Parent: parent})
		if vdNext == 0 {
			break
		}
		off += uint64(vdNext)
	}
	return out, nil
}

// readVerneeds walks the Elfxx_Verneed linked list, each with its own
// vna auxiliary list of required version names.
func (img *elfImage) readVerneeds(base uint64, num uint32) ([]types.Verneed, error) {
	var out []types.Verneed
	off := base
	for i := uint32(0); i < num; i++ {
		hdr := make([]byte, 16)
		if _, err := img.r.ReadAt(hdr, int64(off)); err != nil {
			return nil, fmt.Errorf("loader: reading verneed[%d]: %w", i, err)
		}
		vnCnt := img.Order.Uint16(hdr[2:4])
		vnFile := img.Order.Uint32(hdr[4:8])
		vnAux := img.Order.Uint32(hdr[8:12])
		vnNext := img.Order.Uint32(hdr[12:16])

		vn := types.Verneed{File: img.str(vnFile)}
		auxOff := off + uint64(vnAux)
		for j := uint16(0); j < vnCnt; j++ {
			auxHdr := make([]byte, 16)
			if _, err := img.r.ReadAt(auxHdr, int64(auxOff)); err != nil {
				break
			}
			vnaOther := img.Order.Uint16(auxHdr[6:8])
			vnaName := img.Order.Uint32(auxHdr[8:12])
			vnaNext := img.Order.Uint32(auxHdr[12:16])
			vn.Aux = append(vn.Aux, types.VerneedAux{
				Name:  img.str(vnaName),
				Other: vnaOther,
				Weak:  false,
			})
			if vnaNext == 0 {
				break
			}
			auxOff += uint64(vnaNext)
		}
		out = append(out, vn)
		if vnNext == 0 {
			break
		}
		off += uint64(vnNext)
	}
	return out, nil
}

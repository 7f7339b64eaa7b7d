package loader

import (
	"fmt"

	"github.com/appsworld/go-rtld/types"
)

// parseArrays decodes DT_INIT_ARRAY/DT_FINI_ARRAY and locates the
// PT_GNU_RELRO segment, if present.
func (img *elfImage) parseArrays(dynPhdr types.ProgHeader) error {
	arr, err := img.readAddrArray(dynPhdr, types.DT_INIT_ARRAY, types.DT_INIT_ARRAYSZ)
	if err != nil {
		return err
	}
	img.InitArray = arr

	arr, err = img.readAddrArray(dynPhdr, types.DT_FINI_ARRAY, types.DT_FINI_ARRAYSZ)
	if err != nil {
		return err
	}
	img.FiniArray = arr

	if relro := findPhdr(img.Phdrs, types.PT_GNU_RELRO); relro != nil {
		img.RelroOff = relro.Vaddr
		img.RelroSz = relro.Memsz
	}
	return nil
}

func (img *elfImage) readAddrArray(dynPhdr types.ProgHeader, addrTag, szTag types.DynTag) ([]uint64, error) {
	addr, ok := img.Dynamic[addrTag]
	if !ok {
		return nil, nil
	}
	size := img.Dynamic[szTag]
	ptrSize := uint64(8)
	if img.Header.Class == types.ELFCLASS32 {
		ptrSize = 4
	}
	if ptrSize == 0 || size == 0 {
		return nil, nil
	}
	off, err := img.vaddrToOffsetHint(addr, dynPhdr)
	if err != nil {
		return nil, err
	}
	n := size / ptrSize
	out := make([]uint64, n)
	for i := uint64(0); i < n; i++ {
		buf := make([]byte, ptrSize)
		if _, err := img.r.ReadAt(buf, int64(off+i*ptrSize)); err != nil {
			return nil, fmt.Errorf("loader: reading array entry %d: %w", i, err)
		}
		if ptrSize == 8 {
			out[i] = img.Order.Uint64(buf)
		} else {
			out[i] = uint64(img.Order.Uint32(buf))
		}
	}
	return out, nil
}

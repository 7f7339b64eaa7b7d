package loader

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/pkg/osshim"
	"github.com/appsworld/go-rtld/types"
)

// Loader maps and parses ELF objects into dso.DSO values, tracking
// already-loaded paths through a shared Registry so a diamond-shaped
// dependency graph only loads each distinct file once.
type Loader struct {
	OS       osshim.OS
	Registry *dso.Registry
	Search   *SearchPath
}

// New builds a Loader against the given OS shim and registry, with a
// search path seeded from the usual environment/default sources (see
// NewSearchPath).
func New(os osshim.OS, reg *dso.Registry, search *SearchPath) *Loader {
	return &Loader{OS: os, Registry: reg, Search: search}
}

// Load maps path (already resolved to an absolute, existing file) and
// returns its dso.DSO, reusing the registry entry if this realpath is
// already loaded. preferredBase is the address hint passed to the
// anonymous mapping that reserves the object's address span.
func (l *Loader) Load(path string, preferredBase uintptr) (*dso.DSO, error) {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		real = path
	}
	if d, ok := l.Registry.Lookup(real); ok {
		d.AddRef()
		return d, nil
	}

	f, err := l.OS.Open(real)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}

	img, err := parseELF(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("loader: parse %s: %w", path, err)
	}

	d, err := l.mapImage(f, img, preferredBase)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("loader: map %s: %w", path, err)
	}

	d.Path = real
	d.Handle = uuid.NewString()
	d.AddRef()

	if err := l.Registry.Insert(d); err != nil {
		return nil, err
	}
	return d, nil
}

// mapImage reserves an address range spanning img's PT_LOAD segments,
// maps each one at its biased address, and builds the resulting
// dso.DSO from the already-parsed side tables.
func (l *Loader) mapImage(f osshim.File, img *elfImage, preferredBase uintptr) (*dso.DSO, error) {
	pageSize := uintptr(l.OS.PageSize())

	var low, high uint64 = ^uint64(0), 0
	for _, p := range img.Phdrs {
		if p.Type != types.PT_LOAD {
			continue
		}
		if p.Vaddr < low {
			low = p.Vaddr
		}
		if end := p.Vaddr + p.Memsz; end > high {
			high = end
		}
	}
	if low > high {
		return nil, fmt.Errorf("no PT_LOAD segments")
	}
	low = types.RoundDown(low, uint64(pageSize))
	high = types.RoundUp(high, uint64(pageSize))
	span := int(high - low)

	base, err := l.OS.MmapAnon(preferredBase, span, osshim.ProtNone, osshim.MapPrivate)
	if err != nil {
		return nil, fmt.Errorf("reserving address span: %w", err)
	}
	bias := int64(base) - int64(low)

	d := &dso.DSO{
		Arch:     types.ArchFromMachine(img.Header.Machine),
		LoadBias: bias,
		Header:   img.Header,
		Phdrs:    img.Phdrs,
		Dynamic:  img.Dynamic,
		Needed:   img.Needed,
		SoName:   img.SoName,
		RPath:    img.RPath,
		RunPath:  img.RunPath,
		Symtab:   img.Symtab,
		Strtab:   img.Strtab,
		SysVHash: img.SysVHash,
		GNUHash:  img.GNUHash,
		Versym:   img.Versym,
		Verdefs:  img.Verdefs,
		Verneed:  img.Verneed,
		RelaEntries:   img.Rela,
		RelEntries:    img.Rel,
		JmpRelEntries: img.JmpRel,
		PLTRelIsRela:  img.PLTRelIsRela,
		Init:      img.Init,
		Fini:      img.Fini,
		InitArray: img.InitArray,
		FiniArray: img.FiniArray,
	}
	if img.RelroSz > 0 {
		d.RelroStart = uint64(bias) + img.RelroOff
		d.RelroEnd = d.RelroStart + img.RelroSz
	}
	if img.TLSPhdr != nil {
		d.TLSImageOff = uint64(bias) + img.TLSPhdr.Vaddr
		d.TLSImageSize = img.TLSPhdr.Filesz
		d.TLSMemSize = img.TLSPhdr.Memsz
		d.TLSAlign = img.TLSPhdr.Align
	}

	for _, p := range img.Phdrs {
		if p.Type != types.PT_LOAD {
			continue
		}
		segLow := types.RoundDown(p.Vaddr, uint64(pageSize))
		segHigh := types.RoundUp(p.Vaddr+p.Memsz, uint64(pageSize))
		addr := uintptr(int64(segLow) + bias)

		prot := osshim.ProtRead
		if p.Flags.Write() {
			prot |= osshim.ProtWrite
		}
		if p.Flags.Execute() {
			prot |= osshim.ProtExec
		}

		fileOff := int64(types.RoundDown(p.Off, uint64(pageSize)))
		length := int(segHigh - segLow)
		if _, err := l.OS.Mmap(f, fileOff, addr, length, prot, osshim.MapPrivate|osshim.MapFixed); err != nil {
			return nil, fmt.Errorf("mapping segment at %#x: %w", addr, err)
		}

		if p.HasBSSTail() {
			bssStart := uintptr(int64(p.Vaddr+p.Filesz) + bias)
			bssEnd := uintptr(int64(p.Vaddr+p.Memsz) + bias)
			if bssEnd > bssStart {
				zeroTail(bssStart, bssEnd)
			}
		}

		d.Segments = append(d.Segments, dso.MappedSegment{
			Addr:  addr,
			Size:  uintptr(length),
			Flags: p.Flags,
		})
	}
	return d, nil
}

package rtld

import (
	"sort"

	dwarf "github.com/blacktop/go-dwarf"

	"github.com/appsworld/go-rtld/internal/dso"
)

// AddrInfo is dladdr(3)'s Dl_info: the containing object and the
// nearest-preceding symbol, plus an optional source location when
// DWARF debug info is available for the object — the detail dladdr
// itself doesn't provide but glibc's libSegFault-style callers
// typically re-derive from the same object with a DWARF reader, which
// is the role go-dwarf plays here.
type AddrInfo struct {
	Path      string
	Base      uintptr
	SymName   string
	SymAddr   uintptr
	File      string
	Line      int
	HasSymbol bool
}

// DWARFLoader resolves a DSO's debug_info/debug_line sections into a
// dwarf.Data, the same seam go-macho's own File.DWARF occupies — ELF
// section headers are not part of the program-header-only runtime
// mapping this linker performs (spec.md §6 lists only the program
// header types ld.so itself needs), so callers that want file:line
// enrichment supply their own reader over the original file.
type DWARFLoader func(path string) (*dwarf.Data, error)

// Dladdr resolves addr to its containing DSO and nearest preceding
// defined symbol. If loader is non-nil, it is used to further resolve
// a source file:line for addr via go-dwarf's line table reader; a
// DWARFLoader error or nil *dwarf.Data simply leaves File/Line unset
// rather than failing the whole lookup, since symbol resolution alone
// is dladdr's contract.
func (l *Linker) Dladdr(addr uintptr, loader DWARFLoader) (AddrInfo, bool) {
	d, ok := l.Reg.FindByAddr(addr)
	if !ok {
		return AddrInfo{}, false
	}
	info := AddrInfo{Path: d.Path, Base: uintptr(d.LoadBias)}

	if sym, symAddr, ok := nearestSymbol(d, addr); ok {
		info.SymName = sym.Name
		info.SymAddr = symAddr
		info.HasSymbol = true
	}

	if loader != nil {
		if dw, err := loader(d.Path); err == nil && dw != nil {
			if file, line, ok := lineForAddr(dw, uint64(addr)-uint64(d.LoadBias)); ok {
				info.File = file
				info.Line = line
			}
		}
	}
	return info, true
}

// nearestSymbol returns the defined symbol whose value (biased by the
// DSO's load address) is the closest one at-or-below addr, mirroring
// glibc dladdr's "symbol containing the address" semantics rather
// than requiring an exact match.
func nearestSymbol(d *dso.DSO, addr uintptr) (bestSym symHolder, bestAddr uintptr, found bool) {
	for _, s := range d.Symtab {
		if !s.Defined() || s.Name == "" {
			continue
		}
		runtime := uintptr(int64(s.Value) + d.LoadBias)
		if runtime > addr {
			continue
		}
		if !found || runtime > bestAddr {
			bestSym, bestAddr, found = symHolder{Name: s.Name}, runtime, true
		}
	}
	return bestSym, bestAddr, found
}

type symHolder struct{ Name string }

// lineForAddr walks dw's compile units looking for the one whose line
// table covers addr, the same linear scan go-macho's own callers do
// over debug/dwarf.Data's Reader/LineReader pair.
func lineForAddr(dw *dwarf.Data, addr uint64) (string, int, bool) {
	r := dw.Reader()
	for {
		entry, err := r.Next()
		if err != nil || entry == nil {
			break
		}
		if entry.Tag != dwarf.TagCompileUnit {
			continue
		}
		lr, err := dw.LineReader(entry)
		if err != nil || lr == nil {
			continue
		}
		var rows []dwarf.LineEntry
		for {
			var le dwarf.LineEntry
			if err := lr.Next(&le); err != nil {
				break
			}
			rows = append(rows, le)
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Address < rows[j].Address })
		for i, row := range rows {
			if row.Address > addr {
				continue
			}
			if i == len(rows)-1 || rows[i+1].Address > addr {
				return row.File.Name, row.Line, true
			}
		}
	}
	return "", 0, false
}

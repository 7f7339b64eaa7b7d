package resolver

import (
	"github.com/appsworld/go-rtld/internal/dso"
	"github.com/appsworld/go-rtld/types"
)

// lookupInDSO finds name (optionally constrained to version) among
// d's exported, defined symbols. GNU hash is preferred when present
// (its bloom filter makes a miss near-free); SysV hash is the
// fallback; a DSO with neither hash table (unusual, but the gABI
// doesn't strictly require one) falls back to a linear scan.
func lookupInDSO(d *dso.DSO, name, version string) (types.Sym, bool) {
	match := func(idx uint32) bool {
		if int(idx) >= len(d.Symtab) {
			return false
		}
		sym := d.Symtab[idx]
		if sym.Name != name || !sym.Defined() || sym.Bind == types.STB_LOCAL {
			return false
		}
		return versionSatisfies(d, idx, version)
	}

	if d.GNUHash != nil {
		if idx, ok := d.GNUHash.Lookup(name, match); ok {
			return d.Symtab[idx], true
		}
		return types.Sym{}, false
	}
	if d.SysVHash != nil {
		if idx, ok := d.SysVHash.Lookup(name, match); ok {
			return d.Symtab[idx], true
		}
		return types.Sym{}, false
	}

	for idx, sym := range d.Symtab {
		if sym.Name == name && sym.Defined() && sym.Bind != types.STB_LOCAL && versionSatisfies(d, uint32(idx), version) {
			return sym, true
		}
	}
	return types.Sym{}, false
}

// versionSatisfies implements spec.md §9's version-filtering rule: an
// unversioned request (version == "") is satisfied by any non-hidden
// version, matching glibc's "no version requested" behavior; a
// versioned request must match a Verdef entry of that exact name.
// A symbol whose Versym entry is hidden, or that the DSO's own Verdef
// table cannot account for, is treated as unresolved rather than
// guessed at — see SPEC_FULL.md's Open Question resolution on
// filtered-out version ranges.
func versionSatisfies(d *dso.DSO, symIdx uint32, version string) bool {
	if len(d.Versym) == 0 {
		return version == ""
	}
	if int(symIdx) >= len(d.Versym) {
		return false
	}
	vs := d.Versym[symIdx]
	if vs.Hidden() && version == "" {
		return false
	}
	if version == "" {
		return true
	}
	for _, vd := range d.Verdefs {
		if vd.Index == vs.Index() {
			return vd.Name == version
		}
	}
	return false
}

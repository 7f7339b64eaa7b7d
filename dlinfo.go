package rtld

import "fmt"

// LinkMapEntry is one node of dlinfo(RTLD_DI_LINKMAP)'s answer: a
// snapshot of a single DSO's link-map identity, safe to hand to a
// caller without exposing the internal *dso.DSO itself.
type LinkMapEntry struct {
	Path     string
	SoName   string
	LoadBias int64
	RefCount int32
}

// Dlinfo returns handle's own link-map entry, the RTLD_DI_LINKMAP
// request glibc's dlinfo(3) answers for a single handle (unlike
// dladdr, dlinfo always operates on an already-resolved handle, never
// a bare address).
func (l *Linker) Dlinfo(h Handle) (LinkMapEntry, error) {
	if !h.valid() {
		return LinkMapEntry{}, fmt.Errorf("dlinfo: invalid handle")
	}
	return LinkMapEntry{
		Path:     h.d.Path,
		SoName:   h.d.SoName,
		LoadBias: h.d.LoadBias,
		RefCount: h.d.RefCount(),
	}, nil
}

// LinkMap returns every loaded object's LinkMapEntry in link-map
// order (the order RTLD_DI_LINKMAP walk order, and the same order
// _r_debug's rendezvous structure exposes to an attached debugger).
func (l *Linker) LinkMap() []LinkMapEntry {
	var out []LinkMapEntry
	for d := l.Reg.Head(); d != nil; d = d.Next {
		out = append(out, LinkMapEntry{
			Path:     d.Path,
			SoName:   d.SoName,
			LoadBias: d.LoadBias,
			RefCount: d.RefCount(),
		})
	}
	return out
}

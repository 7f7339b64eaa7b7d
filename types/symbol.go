package types

import "fmt"

// SymBind is the binding (top 4 bits of st_info).
type SymBind uint8

const (
	STB_LOCAL  SymBind = 0
	STB_GLOBAL SymBind = 1
	STB_WEAK   SymBind = 2
)

var symBindStrings = []IntName{
	{uint32(STB_LOCAL), "STB_LOCAL"},
	{uint32(STB_GLOBAL), "STB_GLOBAL"},
	{uint32(STB_WEAK), "STB_WEAK"},
}

func (b SymBind) String() string { return StringName(uint32(b), symBindStrings, false) }

// SymType is the type (bottom 4 bits of st_info).
type SymType uint8

const (
	STT_NOTYPE  SymType = 0
	STT_OBJECT  SymType = 1
	STT_FUNC    SymType = 2
	STT_SECTION SymType = 3
	STT_FILE    SymType = 4
	STT_COMMON  SymType = 5
	STT_TLS     SymType = 6
	STT_GNU_IFUNC SymType = 10
)

var symTypeStrings = []IntName{
	{uint32(STT_NOTYPE), "STT_NOTYPE"},
	{uint32(STT_OBJECT), "STT_OBJECT"},
	{uint32(STT_FUNC), "STT_FUNC"},
	{uint32(STT_SECTION), "STT_SECTION"},
	{uint32(STT_FILE), "STT_FILE"},
	{uint32(STT_COMMON), "STT_COMMON"},
	{uint32(STT_TLS), "STT_TLS"},
	{uint32(STT_GNU_IFUNC), "STT_GNU_IFUNC"},
}

func (t SymType) String() string { return StringName(uint32(t), symTypeStrings, false) }

// SHN reserved section indices relevant to symbol resolution.
const (
	SHN_UNDEF  = 0
	SHN_ABS    = 0xfff1
	SHN_COMMON = 0xfff2
)

// Sym is a symbol table entry (Elf32_Sym / Elf64_Sym) normalized to
// 64-bit fields.
type Sym struct {
	Name    string
	Value   uint64
	Size    uint64
	Bind    SymBind
	Type    SymType
	Shndx   uint16
	NameOff uint32 // offset into the owning DSO's string table, for re-resolution
}

func (s Sym) String() string {
	return fmt.Sprintf("%-30s val=%#x size=%d %s %s shndx=%d", s.Name, s.Value, s.Size, s.Bind, s.Type, s.Shndx)
}

// Defined reports whether this symbol has a definition in its own DSO
// (as opposed to being an external reference awaiting resolution).
func (s Sym) Defined() bool {
	return s.Shndx != SHN_UNDEF
}

func SymInfo(bind SymBind, typ SymType) uint8 {
	return uint8(bind)<<4 | uint8(typ)&0xf
}

func SymBindOf(info uint8) SymBind { return SymBind(info >> 4) }
func SymTypeOf(info uint8) SymType { return SymType(info & 0xf) }

// Versym is a single entry of the .gnu.version section (DT_VERSYM):
// the version index a defined symbol belongs to, or the version a
// needed (undefined) symbol requires.
type Versym uint16

const (
	VER_NDX_LOCAL  Versym = 0
	VER_NDX_GLOBAL Versym = 1
	// VERSYM_HIDDEN marks a version as not available for implicit
	// (unversioned) lookups — spec.md §9's "filtered-out range"; this
	// module treats any index with the hidden bit set the same way it
	// treats an unsatisfiable VERNEED entry: as unresolved. See
	// SPEC_FULL.md's Open Question resolution.
	VERSYM_HIDDEN Versym = 0x8000
)

func (v Versym) Index() uint16 { return uint16(v) &^ uint16(VERSYM_HIDDEN) }
func (v Versym) Hidden() bool  { return v&VERSYM_HIDDEN != 0 }

// Verdef describes one entry of a DSO's own exported version
// definitions (DT_VERDEF): a version name (e.g. "LIBC_2.2.5") to the
// version index symbols of that version carry in .gnu.version.
type Verdef struct {
	Index  uint16
	Flags  uint16
	Name   string
	Parent string // base version this one extends, if any
}

// Verneed describes one entry of a DSO's required-versions table
// (DT_VERNEED): for a given needed library, the set of (version name
// -> version index) pairs this DSO references symbols of.
type Verneed struct {
	File string
	Aux  []VerneedAux
}

type VerneedAux struct {
	Name  string
	Other uint16 // the Versym index this name is bound to
	Weak  bool
}

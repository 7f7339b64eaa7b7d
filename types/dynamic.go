package types

import "strings"

// DynTag is a d_tag value from the PT_DYNAMIC table.
type DynTag int64

const (
	DT_NULL         DynTag = 0
	DT_NEEDED       DynTag = 1
	DT_PLTRELSZ     DynTag = 2
	DT_PLTGOT       DynTag = 3
	DT_HASH         DynTag = 4
	DT_STRTAB       DynTag = 5
	DT_SYMTAB       DynTag = 6
	DT_RELA         DynTag = 7
	DT_RELASZ       DynTag = 8
	DT_RELAENT      DynTag = 9
	DT_STRSZ        DynTag = 10
	DT_SYMENT       DynTag = 11
	DT_INIT         DynTag = 12
	DT_FINI         DynTag = 13
	DT_SONAME       DynTag = 14
	DT_RPATH        DynTag = 15
	DT_SYMBOLIC     DynTag = 16
	DT_REL          DynTag = 17
	DT_RELSZ        DynTag = 18
	DT_RELENT       DynTag = 19
	DT_PLTREL       DynTag = 20
	DT_DEBUG        DynTag = 21
	DT_TEXTREL      DynTag = 22
	DT_JMPREL       DynTag = 23
	DT_BIND_NOW     DynTag = 24
	DT_INIT_ARRAY   DynTag = 25
	DT_FINI_ARRAY   DynTag = 26
	DT_INIT_ARRAYSZ DynTag = 27
	DT_FINI_ARRAYSZ DynTag = 28
	DT_RUNPATH      DynTag = 29
	DT_FLAGS        DynTag = 30
	DT_GNU_HASH     DynTag = 0x6ffffef5
	DT_VERSYM       DynTag = 0x6ffffff0
	DT_RELACOUNT    DynTag = 0x6ffffff9
	DT_RELCOUNT     DynTag = 0x6ffffffa
	DT_FLAGS_1      DynTag = 0x6ffffffb
	DT_VERDEF       DynTag = 0x6ffffffc
	DT_VERDEFNUM    DynTag = 0x6ffffffd
	DT_VERNEED      DynTag = 0x6ffffffe
	DT_VERNEEDNUM   DynTag = 0x6fffffff
)

var dynTagStrings = []Int64Name{
	{uint64(DT_NULL), "DT_NULL"},
	{uint64(DT_NEEDED), "DT_NEEDED"},
	{uint64(DT_PLTRELSZ), "DT_PLTRELSZ"},
	{uint64(DT_PLTGOT), "DT_PLTGOT"},
	{uint64(DT_HASH), "DT_HASH"},
	{uint64(DT_STRTAB), "DT_STRTAB"},
	{uint64(DT_SYMTAB), "DT_SYMTAB"},
	{uint64(DT_RELA), "DT_RELA"},
	{uint64(DT_RELASZ), "DT_RELASZ"},
	{uint64(DT_RELAENT), "DT_RELAENT"},
	{uint64(DT_STRSZ), "DT_STRSZ"},
	{uint64(DT_SYMENT), "DT_SYMENT"},
	{uint64(DT_INIT), "DT_INIT"},
	{uint64(DT_FINI), "DT_FINI"},
	{uint64(DT_SONAME), "DT_SONAME"},
	{uint64(DT_RPATH), "DT_RPATH"},
	{uint64(DT_SYMBOLIC), "DT_SYMBOLIC"},
	{uint64(DT_REL), "DT_REL"},
	{uint64(DT_RELSZ), "DT_RELSZ"},
	{uint64(DT_RELENT), "DT_RELENT"},
	{uint64(DT_PLTREL), "DT_PLTREL"},
	{uint64(DT_DEBUG), "DT_DEBUG"},
	{uint64(DT_TEXTREL), "DT_TEXTREL"},
	{uint64(DT_JMPREL), "DT_JMPREL"},
	{uint64(DT_BIND_NOW), "DT_BIND_NOW"},
	{uint64(DT_INIT_ARRAY), "DT_INIT_ARRAY"},
	{uint64(DT_FINI_ARRAY), "DT_FINI_ARRAY"},
	{uint64(DT_INIT_ARRAYSZ), "DT_INIT_ARRAYSZ"},
	{uint64(DT_FINI_ARRAYSZ), "DT_FINI_ARRAYSZ"},
	{uint64(DT_RUNPATH), "DT_RUNPATH"},
	{uint64(DT_FLAGS), "DT_FLAGS"},
	{uint64(DT_GNU_HASH), "DT_GNU_HASH"},
	{uint64(DT_VERSYM), "DT_VERSYM"},
	{uint64(DT_RELACOUNT), "DT_RELACOUNT"},
	{uint64(DT_RELCOUNT), "DT_RELCOUNT"},
	{uint64(DT_FLAGS_1), "DT_FLAGS_1"},
	{uint64(DT_VERDEF), "DT_VERDEF"},
	{uint64(DT_VERDEFNUM), "DT_VERDEFNUM"},
	{uint64(DT_VERNEED), "DT_VERNEED"},
	{uint64(DT_VERNEEDNUM), "DT_VERNEEDNUM"},
}

func (t DynTag) String() string { return StringName64(uint64(t), dynTagStrings, false) }

// DynEntry is one PT_DYNAMIC table entry (Elf32_Dyn / Elf64_Dyn).
type DynEntry struct {
	Tag DynTag
	Val uint64
}

// DynFlag is a DT_FLAGS bitmask value.
type DynFlag uint64

const (
	DF_ORIGIN     DynFlag = 0x1
	DF_SYMBOLIC   DynFlag = 0x2
	DF_TEXTREL    DynFlag = 0x4
	DF_BIND_NOW   DynFlag = 0x8
	DF_STATIC_TLS DynFlag = 0x10
)

func (f DynFlag) BindNow() bool  { return f&DF_BIND_NOW != 0 }
func (f DynFlag) TextRel() bool  { return f&DF_TEXTREL != 0 }
func (f DynFlag) StaticTLS() bool { return f&DF_STATIC_TLS != 0 }

var dynFlagNames = []struct {
	bit  DynFlag
	name string
}{
	{DF_ORIGIN, "ORIGIN"},
	{DF_SYMBOLIC, "SYMBOLIC"},
	{DF_TEXTREL, "TEXTREL"},
	{DF_BIND_NOW, "BIND_NOW"},
	{DF_STATIC_TLS, "STATIC_TLS"},
}

// List returns the set bit names, the same "bitmask -> []string"
// idiom the teacher uses for Mach-O header flags.
func (f DynFlag) List() []string {
	var out []string
	for _, n := range dynFlagNames {
		if f&n.bit != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

func (f DynFlag) String() string { return strings.Join(f.List(), "|") }

// DynFlag1 is a DT_FLAGS_1 bitmask value (the GNU extension flags).
type DynFlag1 uint64

const (
	DF_1_NOW    DynFlag1 = 0x1
	DF_1_GLOBAL DynFlag1 = 0x2
	DF_1_NODELETE DynFlag1 = 0x8
	DF_1_LOADFLTR DynFlag1 = 0x10
	DF_1_PIE    DynFlag1 = 0x08000000
)

func (f DynFlag1) Now() bool { return f&DF_1_NOW != 0 }

package types

//go:generate stringer -type=Class,Data,Machine,FileType -output header_string.go

import (
	"encoding/binary"
	"fmt"
)

const (
	EI_MAG0       = 0
	EI_MAG3       = 3
	EI_CLASS      = 4
	EI_DATA       = 5
	EI_VERSION    = 6
	EI_OSABI      = 7
	EI_ABIVERSION = 8
	EI_PAD        = 9
	EI_NIDENT     = 16
)

// ELFMagic holds e_ident[EI_MAG0..EI_MAG3].
var ELFMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// Class is the ELF file class (32 or 64 bit), e_ident[EI_CLASS].
type Class uint8

const (
	ELFCLASSNONE Class = 0
	ELFCLASS32   Class = 1
	ELFCLASS64   Class = 2
)

var classStrings = []IntName{
	{uint32(ELFCLASS32), "ELFCLASS32"},
	{uint32(ELFCLASS64), "ELFCLASS64"},
}

func (c Class) String() string   { return StringName(uint32(c), classStrings, false) }
func (c Class) GoString() string { return StringName(uint32(c), classStrings, true) }

// Data is the ELF data encoding (endianness), e_ident[EI_DATA].
type Data uint8

const (
	ELFDATANONE Data = 0
	ELFDATA2LSB Data = 1
	ELFDATA2MSB Data = 2
)

// ByteOrder returns the binary.ByteOrder matching this encoding.
func (d Data) ByteOrder() binary.ByteOrder {
	if d == ELFDATA2MSB {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

var dataStrings = []IntName{
	{uint32(ELFDATA2LSB), "ELFDATA2LSB"},
	{uint32(ELFDATA2MSB), "ELFDATA2MSB"},
}

func (d Data) String() string { return StringName(uint32(d), dataStrings, false) }

// OSABI identifies the target ABI, e_ident[EI_OSABI].
type OSABI uint8

const (
	ELFOSABI_NONE  OSABI = 0
	ELFOSABI_LINUX OSABI = 3
)

// FileType is the ELF object file type, e_type.
type FileType uint16

const (
	ET_NONE FileType = 0
	ET_REL  FileType = 1
	ET_EXEC FileType = 2
	ET_DYN  FileType = 3
	ET_CORE FileType = 4
)

var fileTypeStrings = []IntName{
	{uint32(ET_NONE), "ET_NONE"},
	{uint32(ET_REL), "ET_REL"},
	{uint32(ET_EXEC), "ET_EXEC"},
	{uint32(ET_DYN), "ET_DYN"},
	{uint32(ET_CORE), "ET_CORE"},
}

func (t FileType) String() string { return StringName(uint32(t), fileTypeStrings, false) }

// Machine is e_machine: the architecture this object targets.
type Machine uint16

const (
	EM_386     Machine = 3
	EM_ARM     Machine = 40
	EM_X86_64  Machine = 62
	EM_AARCH64 Machine = 183
	EM_RISCV   Machine = 243
)

var machineStrings = []IntName{
	{uint32(EM_386), "EM_386"},
	{uint32(EM_ARM), "EM_ARM"},
	{uint32(EM_X86_64), "EM_X86_64"},
	{uint32(EM_AARCH64), "EM_AARCH64"},
	{uint32(EM_RISCV), "EM_RISCV"},
}

func (m Machine) String() string { return StringName(uint32(m), machineStrings, false) }

// FileHeader is the ELF file header (Elf32_Ehdr / Elf64_Ehdr), with
// class- and endian-dependent fields normalized to 64-bit Go types so
// 32- and 64-bit objects share one in-memory representation past the
// point of decoding.
type FileHeader struct {
	Class      Class
	Data       Data
	OSABI      OSABI
	ABIVersion uint8
	Type       FileType
	Machine    Machine
	Version    uint32
	Entry      uint64
	Phoff      uint64
	Shoff      uint64
	Flags      uint32
	Ehsize     uint16
	Phentsize  uint16
	Phnum      uint16
	Shentsize  uint16
	Shnum      uint16
	Shstrndx   uint16
}

func (h FileHeader) String() string {
	return fmt.Sprintf("Class:%s Data:%s Type:%s Machine:%s Entry:%#x Phoff:%#x Phnum:%d",
		h.Class, h.Data, h.Type, h.Machine, h.Entry, h.Phoff, h.Phnum)
}

// ParseIdent validates e_ident's magic, class and data encoding and
// returns them without needing the rest of the header decoded — the
// loader calls this before it knows which ByteOrder to decode the
// remaining fields with.
func ParseIdent(ident [EI_NIDENT]byte) (Class, Data, error) {
	if ident[EI_MAG0] != ELFMagic[0] || ident[1] != ELFMagic[1] ||
		ident[2] != ELFMagic[2] || ident[3] != ELFMagic[3] {
		return 0, 0, fmt.Errorf("bad ELF magic: % x", ident[:4])
	}
	class := Class(ident[EI_CLASS])
	if class != ELFCLASS32 && class != ELFCLASS64 {
		return 0, 0, fmt.Errorf("unsupported ELF class %d", ident[EI_CLASS])
	}
	data := Data(ident[EI_DATA])
	if data != ELFDATA2LSB && data != ELFDATA2MSB {
		return 0, 0, fmt.Errorf("unsupported ELF data encoding %d", ident[EI_DATA])
	}
	return class, data, nil
}

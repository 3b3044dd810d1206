package testutil

import (
	"bytes"
	"encoding/binary"
)

// ELF machine values used by the builders.
const (
	EMX86_64  uint16 = 62
	EMAarch64 uint16 = 183
)

const (
	shtProgbits = 1
	shtSymtab   = 2
	shtStrtab   = 3
	shtNote     = 7

	// STB_GLOBAL, STT_FUNC
	elfGlobalFunc uint8 = 0x12
	elfSymSize          = 24
)

// ELF describes a 64-bit little endian ELF file with optional build ID
// notes, extra sections and a symbol table.
type ELF struct {
	Machine uint16
	// GNUBuildID is stored in .note.gnu.build-id. Nil omits the section.
	GNUBuildID []byte
	// GoBuildID is stored in .note.go.buildid. Empty omits the section.
	GoBuildID string
	// Sections are written as SHT_PROGBITS after the notes, for example
	// .debug_abbrev and .debug_info.
	Sections []Section
	// Symbols are written to .symtab and .strtab. Type is st_info.
	Symbols []Symbol
}

type elfSection struct {
	name    string
	typ     uint32
	data    []byte
	link    uint32
	info    uint32
	entsize uint64
	nameOff uint32
	offset  uint64
}

func elfNote(name string, typ uint32, desc []byte) []byte {
	pad := func(b []byte) []byte {
		for len(b)%4 != 0 {
			b = append(b, 0)
		}
		return b
	}
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(len(name)))
	binary.Write(&buf, binary.LittleEndian, uint32(len(desc)))
	binary.Write(&buf, binary.LittleEndian, typ)
	buf.Write(pad([]byte(name)))
	buf.Write(pad(append([]byte(nil), desc...)))
	return buf.Bytes()
}

func elfSymtab(syms []Symbol) (symtab, strtab []byte) {
	le := binary.LittleEndian
	var buf bytes.Buffer
	// Index 0 is the undefined symbol.
	buf.Write(make([]byte, elfSymSize))
	strtab = []byte{0}
	for _, s := range syms {
		info := s.Type
		if info == 0 {
			info = elfGlobalFunc
		}
		binary.Write(&buf, le, uint32(len(strtab)))
		buf.WriteByte(info)
		buf.WriteByte(0)                 // other
		binary.Write(&buf, le, uint16(1)) // shndx
		binary.Write(&buf, le, s.Value)
		binary.Write(&buf, le, s.Size)
		strtab = append(strtab, s.Name...)
		strtab = append(strtab, 0)
	}
	return buf.Bytes(), strtab
}

// Bytes serializes the file. Notes come first, so the first note header
// starts right after the 64 byte ELF header.
func (e ELF) Bytes() []byte {
	const (
		ehsize    = 64
		shentsize = 64
	)
	machine := e.Machine
	if machine == 0 {
		machine = EMX86_64
	}

	var sections []*elfSection
	if e.GNUBuildID != nil {
		sections = append(sections, &elfSection{
			name: ".note.gnu.build-id",
			typ:  shtNote,
			data: elfNote("GNU\x00", 3, e.GNUBuildID),
		})
	}
	if e.GoBuildID != "" {
		sections = append(sections, &elfSection{
			name: ".note.go.buildid",
			typ:  shtNote,
			data: elfNote("Go\x00\x00", 4, []byte(e.GoBuildID)),
		})
	}
	for _, s := range e.Sections {
		sections = append(sections, &elfSection{name: s.Name, typ: shtProgbits, data: s.Data})
	}
	if len(e.Symbols) > 0 {
		symtab, strtab := elfSymtab(e.Symbols)
		// Section header indexes start at 1; .strtab follows .symtab.
		strndx := uint32(len(sections) + 2)
		sections = append(sections,
			&elfSection{name: ".symtab", typ: shtSymtab, data: symtab, link: strndx, info: 1, entsize: elfSymSize},
			&elfSection{name: ".strtab", typ: shtStrtab, data: strtab},
		)
	}

	shstrtab := []byte{0}
	for _, s := range sections {
		s.nameOff = uint32(len(shstrtab))
		shstrtab = append(shstrtab, s.name...)
		shstrtab = append(shstrtab, 0)
	}
	names := &elfSection{name: ".shstrtab", typ: shtStrtab, nameOff: uint32(len(shstrtab))}
	shstrtab = append(shstrtab, ".shstrtab\x00"...)
	names.data = shstrtab
	sections = append(sections, names)

	var body bytes.Buffer
	for _, s := range sections {
		s.offset = uint64(ehsize + body.Len())
		body.Write(s.data)
		for body.Len()%8 != 0 {
			body.WriteByte(0)
		}
	}
	shoff := uint64(ehsize + body.Len())
	shnum := uint16(len(sections) + 1)

	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	le := binary.LittleEndian
	binary.Write(&buf, le, uint16(2)) // ET_EXEC
	binary.Write(&buf, le, machine)
	binary.Write(&buf, le, uint32(1))
	binary.Write(&buf, le, uint64(0)) // entry
	binary.Write(&buf, le, uint64(0)) // phoff
	binary.Write(&buf, le, shoff)
	binary.Write(&buf, le, uint32(0)) // flags
	binary.Write(&buf, le, uint16(ehsize))
	binary.Write(&buf, le, uint16(56)) // phentsize
	binary.Write(&buf, le, uint16(0))  // phnum
	binary.Write(&buf, le, uint16(shentsize))
	binary.Write(&buf, le, shnum)
	binary.Write(&buf, le, shnum-1) // shstrndx

	buf.Write(body.Bytes())

	// Null section header.
	buf.Write(make([]byte, shentsize))
	for _, s := range sections {
		binary.Write(&buf, le, s.nameOff)
		binary.Write(&buf, le, s.typ)
		binary.Write(&buf, le, uint64(0)) // flags
		binary.Write(&buf, le, uint64(0)) // addr
		binary.Write(&buf, le, s.offset)
		binary.Write(&buf, le, uint64(len(s.data)))
		binary.Write(&buf, le, s.link)
		binary.Write(&buf, le, s.info)
		binary.Write(&buf, le, uint64(4)) // addralign
		binary.Write(&buf, le, s.entsize)
	}
	return buf.Bytes()
}

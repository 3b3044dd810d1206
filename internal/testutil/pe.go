package testutil

import (
	"bytes"
	"encoding/binary"
	"strconv"
)

// PE machine values used by the builders.
const (
	MachineAmd64 uint16 = 0x8664
	MachineArm64 uint16 = 0xaa64
)

const (
	peFileAlign    = 0x200
	peSectionAlign = 0x1000
	peHeaderOff    = 0x40
	peOptHdrSize   = 240
	peDebugDirSize = 28

	// Offset of the CodeView record inside .rdata.
	peCodeViewOff = 0x40
)

// CodeView is the RSDS record referenced by the debug directory.
type CodeView struct {
	GUID [16]byte
	Age  uint32
	PDB  string
}

// PE describes a PE32+ file with a .text and a .rdata section.
type PE struct {
	Machine uint16
	// CodeView adds a debug directory with one CodeView entry to .rdata.
	CodeView *CodeView
	// DebugDirRVA overrides the address the debug data directory points at.
	DebugDirRVA uint32
	// GoBuildID is written to .text in the form the Go linker uses.
	GoBuildID string
	// Sections follow .rdata. Names longer than eight bytes go through the
	// COFF string table, as .debug_info does.
	Sections []Section
	// Symbols are COFF symbols in section 1 (.text). Value is relative to
	// the section.
	Symbols []Symbol
}

type peSection struct {
	name  string
	data  []byte
	va    uint32
	vsize uint32
	size  uint32
	off   uint32
}

func peCodeView(cv *CodeView) []byte {
	var buf bytes.Buffer
	buf.WriteString("RSDS")
	buf.Write(cv.GUID[:])
	binary.Write(&buf, binary.LittleEndian, cv.Age)
	buf.WriteString(cv.PDB + "\x00")
	return buf.Bytes()
}

// Bytes serializes the file.
func (p PE) Bytes() []byte {
	le := binary.LittleEndian
	machine := p.Machine
	if machine == 0 {
		machine = MachineAmd64
	}

	text := make([]byte, 0x40)
	if p.GoBuildID != "" {
		text = append(text, "\xff Go build ID: \""+p.GoBuildID+"\"\n \xff"...)
	}
	rdata := &peSection{name: ".rdata", data: make([]byte, peCodeViewOff)}
	var rec []byte
	if p.CodeView != nil {
		rec = peCodeView(p.CodeView)
		rdata.data = append(rdata.data, rec...)
	}
	sections := []*peSection{{name: ".text", data: text}, rdata}
	for _, s := range p.Sections {
		sections = append(sections, &peSection{name: s.Name, data: s.Data})
	}

	hdrSize := alignUp(peHeaderOff+4+20+peOptHdrSize+40*len(sections), peFileAlign)
	off := hdrSize
	for i, s := range sections {
		s.va = uint32(peSectionAlign * (i + 1))
		s.off = uint32(off)
		s.size = uint32(alignUp(max(len(s.data), 1), peFileAlign))
		s.vsize = uint32(len(s.data))
		if i < 2 {
			// Code and read only data span their whole raw size.
			s.vsize = s.size
		}
		off += int(s.size)
	}
	symOff := off

	var debugDir struct{ va, size uint32 }
	if p.CodeView != nil {
		entry := rdata.data[:peDebugDirSize]
		le.PutUint32(entry[12:], 2) // IMAGE_DEBUG_TYPE_CODEVIEW
		le.PutUint32(entry[16:], uint32(len(rec)))
		le.PutUint32(entry[20:], rdata.va+peCodeViewOff)
		le.PutUint32(entry[24:], rdata.off+peCodeViewOff)
		debugDir.va, debugDir.size = rdata.va, peDebugDirSize
	}
	if p.DebugDirRVA != 0 {
		debugDir.va, debugDir.size = p.DebugDirRVA, peDebugDirSize
	}

	// COFF string table. Offsets include the leading size field.
	strtab := []byte{0, 0, 0, 0}
	addString := func(name string) int {
		off := len(strtab)
		strtab = append(strtab, name...)
		strtab = append(strtab, 0)
		return off
	}

	var shdrs bytes.Buffer
	for _, s := range sections {
		name := make([]byte, 8)
		if len(s.name) <= 8 {
			copy(name, s.name)
		} else {
			copy(name, "/"+strconv.Itoa(addString(s.name)))
		}
		shdrs.Write(name)
		binary.Write(&shdrs, le, s.vsize)
		binary.Write(&shdrs, le, s.va)
		binary.Write(&shdrs, le, s.size)
		binary.Write(&shdrs, le, s.off)
		// Relocations and line numbers.
		shdrs.Write(make([]byte, 12))
		binary.Write(&shdrs, le, uint32(0x40000040))
	}

	var syms bytes.Buffer
	for _, s := range p.Symbols {
		name := make([]byte, 8)
		if len(s.Name) <= 8 {
			copy(name, s.Name)
		} else {
			le.PutUint32(name[4:], uint32(addString(s.Name)))
		}
		syms.Write(name)
		binary.Write(&syms, le, uint32(s.Value))
		binary.Write(&syms, le, int16(1))
		binary.Write(&syms, le, uint16(0x20)) // function
		// IMAGE_SYM_CLASS_EXTERNAL, no aux records.
		syms.Write([]byte{2, 0})
	}
	le.PutUint32(strtab, uint32(len(strtab)))

	var buf bytes.Buffer
	buf.WriteString("MZ")
	buf.Write(make([]byte, 0x3c-2))
	binary.Write(&buf, le, uint32(peHeaderOff))
	buf.WriteString("PE\x00\x00")

	// COFF file header.
	binary.Write(&buf, le, machine)
	binary.Write(&buf, le, uint16(len(sections)))
	binary.Write(&buf, le, uint32(0))
	binary.Write(&buf, le, uint32(symOff))
	binary.Write(&buf, le, uint32(len(p.Symbols)))
	binary.Write(&buf, le, uint16(peOptHdrSize))
	binary.Write(&buf, le, uint16(0x22))

	// Optional header, PE32+.
	binary.Write(&buf, le, uint16(0x20b))
	buf.Write([]byte{14, 0})
	binary.Write(&buf, le, [3]uint32{sections[0].size, 0, 0})
	binary.Write(&buf, le, [2]uint32{sections[0].va, sections[0].va})
	binary.Write(&buf, le, uint64(0x140000000))
	binary.Write(&buf, le, [2]uint32{peSectionAlign, peFileAlign})
	binary.Write(&buf, le, [6]uint16{6, 0, 0, 0, 6, 0})
	binary.Write(&buf, le, uint32(0))
	binary.Write(&buf, le, uint32(peSectionAlign*(len(sections)+1)))
	binary.Write(&buf, le, uint32(hdrSize))
	binary.Write(&buf, le, uint32(0))
	binary.Write(&buf, le, [2]uint16{3, 0x8160})
	binary.Write(&buf, le, [4]uint64{0x100000, 0x1000, 0x100000, 0x1000})
	binary.Write(&buf, le, uint32(0))
	binary.Write(&buf, le, uint32(16))
	for i := 0; i < 16; i++ {
		if i == 6 {
			binary.Write(&buf, le, [2]uint32{debugDir.va, debugDir.size})
			continue
		}
		binary.Write(&buf, le, uint64(0))
	}

	buf.Write(shdrs.Bytes())
	for _, s := range sections {
		for buf.Len() < int(s.off) {
			buf.WriteByte(0)
		}
		buf.Write(s.data)
	}
	for buf.Len() < symOff {
		buf.WriteByte(0)
	}
	buf.Write(syms.Bytes())
	buf.Write(strtab)
	return buf.Bytes()
}

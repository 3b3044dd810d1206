// Package testutil builds minimal Mach-O, ELF and PE containers for tests.
// The files carry an identifier and, optionally, a symbol table and DWARF
// sections. Nothing else a loader would need is written.
package testutil

import (
	"bytes"
	"encoding/binary"
)

// Mach-O constants used by the builders.
const (
	CPUAmd64 uint32 = 0x01000007
	CPUArm64 uint32 = 0x0100000c

	MHExecute uint32 = 0x2
	MHDsym    uint32 = 0xa

	machoMagic64 uint32 = 0xfeedfacf
	fatMagic     uint32 = 0xcafebabe
	lcSymtab     uint32 = 0x2
	lcSegment64  uint32 = 0x19
	lcUUID       uint32 = 0x1b

	// NStab is a debugger entry type (N_FUN). The default symbol type is an
	// external symbol defined in a section.
	NStab uint8 = 0x24
	nSect uint8 = 0x0e
	nExt  uint8 = 0x01
)

// Section is a named blob of section contents.
type Section struct {
	Name string
	Data []byte
}

// Symbol is a symbol table entry. Type is format specific; zero picks a
// global function or external section symbol.
type Symbol struct {
	Name  string
	Value uint64
	Size  uint64
	Type  uint8
}

// MachO describes a thin 64-bit little endian Mach-O file.
type MachO struct {
	CPU      uint32
	FileType uint32
	// UUID is written as LC_UUID. Nil omits the load command.
	UUID []byte
	// DWARF sections go into a __DWARF segment, named like "__debug_info".
	DWARF []Section
	// Symbols are written as LC_SYMTAB.
	Symbols []Symbol
}

func cpuSubtype(cpu uint32) uint32 {
	if cpu == CPUAmd64 {
		return 3
	}
	return 0
}

func alignUp(n, to int) int {
	return (n + to - 1) / to * to
}

func fixedName(name string) []byte {
	b := make([]byte, 16)
	copy(b, name)
	return b
}

// Bytes serializes the file.
func (m MachO) Bytes() []byte {
	const hdrSize = 32
	le := binary.LittleEndian

	cpu := m.CPU
	if cpu == 0 {
		cpu = CPUArm64
	}
	ft := m.FileType
	if ft == 0 {
		ft = MHExecute
	}

	sizeofcmds := 0
	if m.UUID != nil {
		sizeofcmds += 24
	}
	if len(m.DWARF) > 0 {
		sizeofcmds += 72 + 80*len(m.DWARF)
	}
	if len(m.Symbols) > 0 {
		sizeofcmds += 24
	}
	dataOff := alignUp(hdrSize+sizeofcmds, 8)

	// Payload following the load commands. Offsets are absolute.
	var data bytes.Buffer
	sectOffs := make([]int, len(m.DWARF))
	for i, s := range m.DWARF {
		sectOffs[i] = dataOff + data.Len()
		data.Write(s.Data)
		for data.Len()%8 != 0 {
			data.WriteByte(0)
		}
	}
	segSize := data.Len()

	symOff := dataOff + data.Len()
	strtab := []byte{' ', 0}
	for _, sym := range m.Symbols {
		typ, sect := sym.Type, uint8(0)
		if typ == 0 {
			typ, sect = nSect|nExt, 1
		}
		binary.Write(&data, le, uint32(len(strtab)))
		data.WriteByte(typ)
		data.WriteByte(sect)
		binary.Write(&data, le, uint16(0))
		binary.Write(&data, le, sym.Value)
		strtab = append(strtab, sym.Name...)
		strtab = append(strtab, 0)
	}
	strOff := dataOff + data.Len()
	data.Write(strtab)

	var cmds bytes.Buffer
	ncmds := uint32(0)
	if m.UUID != nil {
		var id [16]byte
		copy(id[:], m.UUID)
		binary.Write(&cmds, le, lcUUID)
		binary.Write(&cmds, le, uint32(24))
		cmds.Write(id[:])
		ncmds++
	}
	if len(m.DWARF) > 0 {
		const vmaddr = 0x100008000
		binary.Write(&cmds, le, lcSegment64)
		binary.Write(&cmds, le, uint32(72+80*len(m.DWARF)))
		cmds.Write(fixedName("__DWARF"))
		binary.Write(&cmds, le, uint64(vmaddr))
		binary.Write(&cmds, le, uint64(alignUp(segSize, 0x1000)))
		binary.Write(&cmds, le, uint64(dataOff))
		binary.Write(&cmds, le, uint64(segSize))
		binary.Write(&cmds, le, uint32(7)) // maxprot
		binary.Write(&cmds, le, uint32(3)) // initprot
		binary.Write(&cmds, le, uint32(len(m.DWARF)))
		binary.Write(&cmds, le, uint32(0)) // flags
		for i, s := range m.DWARF {
			cmds.Write(fixedName(s.Name))
			cmds.Write(fixedName("__DWARF"))
			binary.Write(&cmds, le, uint64(vmaddr)+uint64(sectOffs[i]-dataOff))
			binary.Write(&cmds, le, uint64(len(s.Data)))
			binary.Write(&cmds, le, uint32(sectOffs[i]))
			// align, reloff, nreloc, flags, reserved1-3
			cmds.Write(make([]byte, 7*4))
		}
		ncmds++
	}
	if len(m.Symbols) > 0 {
		binary.Write(&cmds, le, lcSymtab)
		binary.Write(&cmds, le, uint32(24))
		binary.Write(&cmds, le, uint32(symOff))
		binary.Write(&cmds, le, uint32(len(m.Symbols)))
		binary.Write(&cmds, le, uint32(strOff))
		binary.Write(&cmds, le, uint32(len(strtab)))
		ncmds++
	}

	var buf bytes.Buffer
	for _, v := range []uint32{
		machoMagic64,
		cpu,
		cpuSubtype(cpu),
		ft,
		ncmds,
		uint32(cmds.Len()),
		0, // flags
		0, // reserved
	} {
		binary.Write(&buf, le, v)
	}
	buf.Write(cmds.Bytes())
	for buf.Len() < dataOff {
		buf.WriteByte(0)
	}
	buf.Write(data.Bytes())
	return buf.Bytes()
}

// FatMachO serializes a universal binary holding the given slices, each
// aligned to 4 KiB.
func FatMachO(slices ...MachO) []byte {
	const align = 12
	const page = 1 << align

	var hdr bytes.Buffer
	binary.Write(&hdr, binary.BigEndian, fatMagic)
	binary.Write(&hdr, binary.BigEndian, uint32(len(slices)))

	bodies := make([][]byte, len(slices))
	offset := uint32(page)
	for i, s := range slices {
		bodies[i] = s.Bytes()
		cpu := s.CPU
		if cpu == 0 {
			cpu = CPUArm64
		}
		for _, v := range []uint32{cpu, cpuSubtype(cpu), offset, uint32(len(bodies[i])), align} {
			binary.Write(&hdr, binary.BigEndian, v)
		}
		offset += page
	}

	out := make([]byte, page*(len(slices)+1))
	copy(out, hdr.Bytes())
	for i, b := range bodies {
		copy(out[page*(i+1):], b)
	}
	return out
}


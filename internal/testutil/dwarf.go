package testutil

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
)

// DWARF language codes used by the builders.
const (
	LangC99 uint8 = 0x0c
	LangGo  uint8 = 0x16
)

// DWARFUnit describes a single DWARF 4 compilation unit whose children are
// subprograms with a name only.
type DWARFUnit struct {
	Name      string
	Producer  string
	Language  uint8
	Dir       string
	Functions []string
}

// Sections returns the .debug_abbrev and .debug_info contents of the unit.
func (u DWARFUnit) Sections() (abbrev, info []byte) {
	abbrev = []byte{
		1, 0x11, 1, // compile_unit, has children
		0x03, 0x08, // name, string
		0x25, 0x08, // producer, string
		0x13, 0x0b, // language, data1
		0x1b, 0x08, // comp_dir, string
		0, 0,
		2, 0x2e, 0, // subprogram, no children
		0x03, 0x08,
		0, 0,
		0,
	}

	var die bytes.Buffer
	die.WriteByte(1)
	die.WriteString(u.Name + "\x00")
	die.WriteString(u.Producer + "\x00")
	die.WriteByte(u.Language)
	die.WriteString(u.Dir + "\x00")
	for _, fn := range u.Functions {
		die.WriteByte(2)
		die.WriteString(fn + "\x00")
	}
	die.WriteByte(0)

	var buf bytes.Buffer
	// unit_length covers version, abbrev offset and address size.
	binary.Write(&buf, binary.LittleEndian, uint32(2+4+1+die.Len()))
	binary.Write(&buf, binary.LittleEndian, uint16(4))
	binary.Write(&buf, binary.LittleEndian, uint32(0))
	buf.WriteByte(8)
	buf.Write(die.Bytes())
	return abbrev, buf.Bytes()
}

// ZLIB wraps data the way old Darwin toolchains compressed DWARF sections:
// a "ZLIB" magic, the big endian uncompressed size, then a zlib stream.
func ZLIB(data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("ZLIB")
	binary.Write(&buf, binary.BigEndian, uint64(len(data)))
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

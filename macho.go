// This file is part of GoRE.
//
// Copyright (C) 2019-2026 GoRE Authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package symfile

import (
	"bytes"
	"compress/zlib"
	"debug/dwarf"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"
)

const maxDwarfSectionSize = 1 << 32

func openMachO(r io.ReaderAt) (*machoFile, error) {
	f, err := macho.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("error when parsing the Mach-O file: %w", err)
	}
	return newMachoFile(f), nil
}

// openFatMachO returns one handler per architecture in a universal binary.
func openFatMachO(r io.ReaderAt) ([]fileHandler, error) {
	ff, err := macho.NewFatFile(r)
	if err != nil {
		return nil, fmt.Errorf("error when parsing the fat Mach-O file: %w", err)
	}
	if len(ff.Arches) == 0 {
		return nil, fmt.Errorf("fat Mach-O file has no architectures")
	}
	ret := make([]fileHandler, 0, len(ff.Arches))
	for _, arch := range ff.Arches {
		ret = append(ret, newMachoFile(arch.File))
	}
	return ret, nil
}

func newMachoFile(f *macho.File) *machoFile {
	ret := &machoFile{file: f}
	ret.getsymtab = sync.OnceValue(ret.initSymtab)
	return ret
}

var _ fileHandler = (*machoFile)(nil)

type machoFile struct {
	file      *macho.File
	getsymtab func() map[string]Symbol
}

func (m *machoFile) initSymtab() map[string]Symbol {
	if m.file.Symtab == nil {
		return nil
	}
	// Stab entries describe debug information, not code or data.
	const stabTypeMask = 0xe0
	var syms []Symbol
	for _, s := range m.file.Symtab.Syms {
		if s.Type&stabTypeMask == 0 {
			syms = append(syms, Symbol{Name: s.Name, Value: s.Value})
		}
	}
	return indexSymbols(syms)
}

func (m *machoFile) getSymbols() (map[string]Symbol, error) {
	return m.getsymtab(), nil
}

// The underlying reader is closed by openedFile.
func (m *machoFile) Close() error {
	return m.file.Close()
}

func (m *machoFile) getFileInfo() *FileInfo {
	fi := &FileInfo{
		ByteOrder: m.file.ByteOrder,
		OS:        "darwin",
	}
	switch m.file.CPU {
	case types.CPUI386:
		fi.WordSize = intSize32
		fi.Arch = Arch386
	case types.CPUArm:
		fi.WordSize = intSize32
		fi.Arch = ArchARM
	case types.CPUAmd64:
		fi.WordSize = intSize64
		fi.Arch = ArchAMD64
	case types.CPUArm64:
		fi.WordSize = intSize64
		fi.Arch = ArchARM64
	default:
		fi.WordSize = intSize64
		fi.Arch = strings.ToLower(m.file.CPU.String())
	}
	return fi
}

// getIdentifier returns the LC_UUID. Executables, stripped executables and
// dSYM companions all carry it in the same load command.
func (m *machoFile) getIdentifier() (Identifier, error) {
	lc := m.file.UUID()
	if lc == nil {
		return Identifier{}, ErrNoIdentifierPresent
	}
	id := lc.UUID
	if isNullUUID(id[:]) {
		return Identifier{}, ErrNoIdentifierPresent
	}
	return NewIdentifier(KindMachOUUID, id[:]), nil
}

// dwarfNewSections are the sections handed to dwarf.New. Everything else in
// the __DWARF segment is added afterwards.
var dwarfNewSections = []string{"abbrev", "info", "line", "ranges", "str"}

// Section names are limited to 16 bytes in Mach-O.
var machoDwarfRenames = map[string]string{
	"str_offs": "str_offsets",
}

type dwarfSection struct {
	name string
	data []byte
}

// getDwarf reads the DWARF sections of the slice. dSYM companions keep them
// in the __DWARF segment; executables built without dsymutil may keep them
// in __DWARF as well.
func (m *machoFile) getDwarf() (*dwarf.Data, error) {
	var sections []dwarfSection
	for _, s := range m.file.Sections {
		name, ok := machoDwarfName(s.Name)
		if !ok {
			continue
		}
		data, err := machoSectionData(s)
		if err != nil {
			return nil, fmt.Errorf("error when reading section %s: %w", s.Name, err)
		}
		sections = append(sections, dwarfSection{name: name, data: data})
	}
	if len(sections) == 0 {
		return nil, ErrSectionDoesNotExist
	}

	base := make(map[string][]byte, len(dwarfNewSections))
	for _, s := range sections {
		if slices.Contains(dwarfNewSections, s.name) {
			base[s.name] = s.data
		}
	}
	d, err := dwarf.New(base["abbrev"], nil, nil, base["info"], base["line"], nil, base["ranges"], base["str"])
	if err != nil {
		return nil, err
	}

	for i, s := range sections {
		switch {
		case slices.Contains(dwarfNewSections, s.name):
		case s.name == "types":
			err = d.AddTypes(fmt.Sprintf("types-%d", i), s.data)
		default:
			// Unsupported sections are ignored by AddSection.
			err = d.AddSection(".debug_"+s.name, s.data)
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func machoDwarfName(section string) (string, bool) {
	name, ok := strings.CutPrefix(section, "__debug_")
	if !ok {
		name, ok = strings.CutPrefix(section, "__zdebug_")
	}
	if !ok {
		return "", false
	}
	if renamed, found := machoDwarfRenames[name]; found {
		name = renamed
	}
	return name, true
}

// machoSectionData returns the section contents. Old toolchains compressed
// DWARF with a "ZLIB" magic followed by the big endian uncompressed size.
func machoSectionData(s *types.Section) ([]byte, error) {
	b, err := s.Data()
	if err != nil && uint64(len(b)) < s.Size {
		return nil, err
	}
	if len(b) < 12 || string(b[:4]) != "ZLIB" {
		return b, nil
	}

	size := binary.BigEndian.Uint64(b[4:12])
	if size > maxDwarfSectionSize {
		return nil, fmt.Errorf("compressed section %s too large: %d bytes", s.Name, size)
	}
	zr, err := zlib.NewReader(bytes.NewReader(b[12:]))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	return out, nil
}

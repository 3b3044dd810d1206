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
	"debug/dwarf"
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

const (
	debugDirectoryEntrySize = 28
	debugTypeCodeView       = 2
	maxCodeViewSize         = 4096
)

func openPE(r io.ReaderAt) (peF *peFile, err error) {
	// Parsing by the file by debug/pe can panic if the PE file is malformed.
	// To prevent a crash, we recover the panic and return it as an error
	// instead.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("error when processing PE file, probably corrupt: %s", r)
		}
	}()

	f, err := pe.NewFile(r)
	if err != nil {
		err = fmt.Errorf("error when parsing the PE file: %w", err)
		return
	}

	imageBase := uint64(0)
	var dirs []pe.DataDirectory

	switch hdr := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(hdr.ImageBase)
		dirs = hdr.DataDirectory[:min(hdr.NumberOfRvaAndSizes, uint32(len(hdr.DataDirectory)))]
	case *pe.OptionalHeader64:
		imageBase = hdr.ImageBase
		dirs = hdr.DataDirectory[:min(hdr.NumberOfRvaAndSizes, uint32(len(hdr.DataDirectory)))]
	default:
		err = errors.New("unknown optional header type")
		return
	}

	peF = &peFile{file: f, reader: r, imageBase: imageBase, dataDirs: dirs}
	peF.getsymtab = sync.OnceValues(peF.initSymTab)
	return
}

var _ fileHandler = (*peFile)(nil)

type peFile struct {
	file      *pe.File
	reader    io.ReaderAt
	imageBase uint64
	dataDirs  []pe.DataDirectory
	getsymtab func() (map[string]Symbol, error)
}

// initSymTab converts COFF symbols to virtual addresses. Go's linker keeps a
// COFF symbol table in unstripped PE files.
func (p *peFile) initSymTab() (map[string]Symbol, error) {
	syms := make([]Symbol, 0, len(p.file.Symbols))
	for _, s := range p.file.Symbols {
		sym := Symbol{Name: s.Name, Value: uint64(s.Value)}
		// Section numbers of zero or less mark undefined, absolute and debug
		// symbols. Their value is not an address.
		if s.SectionNumber > 0 {
			if int(s.SectionNumber) > len(p.file.Sections) {
				return nil, fmt.Errorf("invalid section number %d in symbol table", s.SectionNumber)
			}
			sect := p.file.Sections[s.SectionNumber-1]
			sym.Value += p.imageBase + uint64(sect.VirtualAddress)
		}
		syms = append(syms, sym)
	}
	return indexSymbols(syms), nil
}

func (p *peFile) getSymbols() (map[string]Symbol, error) {
	return p.getsymtab()
}

func (p *peFile) Close() error {
	return p.file.Close()
}

func (p *peFile) getFileInfo() *FileInfo {
	fi := &FileInfo{ByteOrder: binary.LittleEndian, OS: "windows"}
	switch p.file.Machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		fi.WordSize = intSize32
		fi.Arch = Arch386
	case pe.IMAGE_FILE_MACHINE_ARM64:
		fi.WordSize = intSize64
		fi.Arch = ArchARM64
	default:
		fi.WordSize = intSize64
		fi.Arch = ArchAMD64
	}
	return fi
}

// getIdentifier returns the GUID and age of the CodeView record referenced
// by the debug directory. Go binaries have no CodeView record, so the raw Go
// build ID in the code section is used instead.
func (p *peFile) getIdentifier() (Identifier, error) {
	id, err := p.codeViewIdentifier()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoIdentifierPresent) {
		return Identifier{}, err
	}

	section := p.file.Section(".text")
	if section == nil {
		return Identifier{}, ErrNoIdentifierPresent
	}
	data, err := section.Data()
	if err != nil {
		return Identifier{}, fmt.Errorf("failed to get code section: %w", err)
	}
	goID, err := parseBuildIDFromRaw(data)
	if err != nil {
		return Identifier{}, err
	}
	if goID == "" {
		return Identifier{}, ErrNoIdentifierPresent
	}
	return NewIdentifier(KindGoBuildID, []byte(goID)), nil
}

func (p *peFile) codeViewIdentifier() (Identifier, error) {
	if len(p.dataDirs) <= pe.IMAGE_DIRECTORY_ENTRY_DEBUG {
		return Identifier{}, ErrNoIdentifierPresent
	}
	dir := p.dataDirs[pe.IMAGE_DIRECTORY_ENTRY_DEBUG]
	if dir.VirtualAddress == 0 || dir.Size < debugDirectoryEntrySize {
		return Identifier{}, ErrNoIdentifierPresent
	}

	data, err := p.rvaData(dir.VirtualAddress, dir.Size)
	if errors.Is(err, ErrSectionDoesNotExist) {
		return Identifier{}, ErrNoIdentifierPresent
	}
	if err != nil {
		return Identifier{}, err
	}

	for off := 0; off+debugDirectoryEntrySize <= len(data); off += debugDirectoryEntrySize {
		entry := data[off : off+debugDirectoryEntrySize]
		if binary.LittleEndian.Uint32(entry[12:]) != debugTypeCodeView {
			continue
		}
		size := binary.LittleEndian.Uint32(entry[16:])
		ptr := binary.LittleEndian.Uint32(entry[24:])
		if size > maxCodeViewSize {
			return Identifier{}, fmt.Errorf("CodeView record too large: %d bytes", size)
		}
		rec := make([]byte, size)
		if _, err := p.reader.ReadAt(rec, int64(ptr)); err != nil {
			return Identifier{}, fmt.Errorf("error when reading the CodeView record: %w", err)
		}
		return parseCodeView(rec)
	}
	return Identifier{}, ErrNoIdentifierPresent
}

// rvaData returns size bytes at the relative virtual address.
func (p *peFile) rvaData(rva, size uint32) ([]byte, error) {
	for _, s := range p.file.Sections {
		if s.VirtualAddress <= rva && rva < s.VirtualAddress+s.VirtualSize {
			data, err := s.Data()
			if err != nil {
				return nil, fmt.Errorf("error when reading section %s: %w", s.Name, err)
			}
			start := rva - s.VirtualAddress
			if uint64(start)+uint64(size) > uint64(len(data)) {
				return nil, fmt.Errorf("debug directory out of section bounds")
			}
			return data[start : start+size], nil
		}
	}
	return nil, ErrSectionDoesNotExist
}

func (p *peFile) getDwarf() (*dwarf.Data, error) {
	return p.file.DWARF()
}

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
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

func openELF(r io.ReaderAt) (*elfFile, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("error when parsing the ELF file: %w", err)
	}
	ret := &elfFile{file: f}
	ret.getsymtab = sync.OnceValues(ret.initSymTab)
	return ret, nil
}

var _ fileHandler = (*elfFile)(nil)

type elfFile struct {
	file      *elf.File
	getsymtab func() (map[string]Symbol, error)
}

func (e *elfFile) initSymTab() (map[string]Symbol, error) {
	syms, err := e.file.Symbols()
	if errors.Is(err, elf.ErrNoSymbols) {
		// Stripped binaries and some split debug files carry no .symtab.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error when getting the symbols: %w", err)
	}
	ret := make([]Symbol, 0, len(syms))
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) == elf.STT_SECTION || elf.ST_TYPE(sym.Info) == elf.STT_FILE {
			continue
		}
		ret = append(ret, Symbol{Name: sym.Name, Value: sym.Value, Size: sym.Size})
	}
	return indexSymbols(ret), nil
}

func (e *elfFile) getSymbols() (map[string]Symbol, error) {
	return e.getsymtab()
}

func (e *elfFile) Close() error {
	return e.file.Close()
}

func (e *elfFile) getSectionData(name string) (uint64, []byte, error) {
	section := e.file.Section(name)
	if section == nil {
		return 0, nil, ErrSectionDoesNotExist
	}
	data, err := section.Data()
	return section.Addr, data, err
}

var elfArches = map[elf.Machine]string{
	elf.EM_386:     Arch386,
	elf.EM_X86_64:  ArchAMD64,
	elf.EM_ARM:     ArchARM,
	elf.EM_AARCH64: ArchARM64,
	elf.EM_MIPS:    ArchMIPS,
	elf.EM_PPC64:   ArchPPC64,
}

func (e *elfFile) getFileInfo() *FileInfo {
	hdr := e.file.FileHeader
	fi := &FileInfo{
		ByteOrder: hdr.ByteOrder,
		OS:        hdr.OSABI.String(),
		Arch:      elfArches[hdr.Machine],
		WordSize:  intSize64,
	}
	if hdr.Class == elf.ELFCLASS32 {
		fi.WordSize = intSize32
	}
	if fi.Arch == "" {
		fi.Arch = strings.ToLower(strings.TrimPrefix(hdr.Machine.String(), "EM_"))
	}
	return fi
}

// getIdentifier looks for a GNU build ID note. The conventional section is
// tried first, then every other note section, since separate debug files
// produced by objcopy keep the note but linkers may rename it. Go binaries
// without a GNU note fall back to the Go build ID.
func (e *elfFile) getIdentifier() (Identifier, error) {
	_, data, err := e.getSectionData(".note.gnu.build-id")
	if err == nil {
		if id, ok := findGNUBuildID(data, e.file.ByteOrder); ok {
			return id, nil
		}
	} else if !errors.Is(err, ErrSectionDoesNotExist) {
		return Identifier{}, fmt.Errorf("error when getting note section: %w", err)
	}

	for _, s := range e.file.Sections {
		if s.Type != elf.SHT_NOTE || s.Name == ".note.gnu.build-id" {
			continue
		}
		data, err := s.Data()
		if err != nil {
			// Unreadable notes can not hold a usable ID.
			continue
		}
		if id, ok := findGNUBuildID(data, e.file.ByteOrder); ok {
			return id, nil
		}
	}

	_, data, err = e.getSectionData(".note.go.buildid")
	if errors.Is(err, ErrSectionDoesNotExist) {
		return Identifier{}, ErrNoIdentifierPresent
	}
	if err != nil {
		return Identifier{}, fmt.Errorf("error when getting note section: %w", err)
	}
	goID, err := parseBuildIDFromElf(data, e.file.ByteOrder)
	if err != nil {
		return Identifier{}, err
	}
	if goID == "" {
		return Identifier{}, ErrNoIdentifierPresent
	}
	return NewIdentifier(KindGoBuildID, []byte(goID)), nil
}

func (e *elfFile) getDwarf() (*dwarf.Data, error) {
	return e.file.DWARF()
}

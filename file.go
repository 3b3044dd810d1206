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
	"debug/dwarf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

var (
	elfMagic       = []byte{0x7f, 0x45, 0x4c, 0x46}
	peMagic        = []byte{0x4d, 0x5a}
	maxMagicBufLen = 4
	machoMagic1    = []byte{0xfe, 0xed, 0xfa, 0xce}
	machoMagic2    = []byte{0xfe, 0xed, 0xfa, 0xcf}
	machoMagic3    = []byte{0xce, 0xfa, 0xed, 0xfe}
	machoMagic4    = []byte{0xcf, 0xfa, 0xed, 0xfe}
	fatMagic1      = []byte{0xca, 0xfe, 0xba, 0xbe}
	fatMagic2      = []byte{0xca, 0xfe, 0xba, 0xbf}
)

// FS is the filesystem the engine reads binaries and bundles from.
type FS interface {
	billy.Basic
	billy.Dir
}

// DefaultFS returns the host filesystem. Paths given to it must be absolute.
func DefaultFS() FS {
	return osfs.New("/")
}

type fileHandler interface {
	io.Closer
	getFileInfo() *FileInfo
	getIdentifier() (Identifier, error)
	getDwarf() (*dwarf.Data, error)
	getSymbols() (map[string]Symbol, error)
}

// openedFile is a binary container with one handler per architecture slice.
// Thin files have exactly one slice.
type openedFile struct {
	path   string
	slices []fileHandler
	file   billy.File
}

func openFile(fs billy.Basic, path string) (*openedFile, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, maxMagicBufLen)
	n, err := f.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, err
	}
	if n < maxMagicBufLen {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrNotABinary, ErrNotEnoughBytesRead)
	}

	of := &openedFile{path: path, file: f}
	switch {
	case fileMagicMatch(buf, elfMagic):
		elf, err := openELF(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %w", ErrNotABinary, err)
		}
		of.slices = []fileHandler{elf}
	case fileMagicMatch(buf, peMagic):
		pe, err := openPE(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %w", ErrNotABinary, err)
		}
		of.slices = []fileHandler{pe}
	case fileMagicMatch(buf, machoMagic1) || fileMagicMatch(buf, machoMagic2) || fileMagicMatch(buf, machoMagic3) || fileMagicMatch(buf, machoMagic4):
		macho, err := openMachO(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %w", ErrNotABinary, err)
		}
		of.slices = []fileHandler{macho}
	case fileMagicMatch(buf, fatMagic1) || fileMagicMatch(buf, fatMagic2):
		slices, err := openFatMachO(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %w", ErrNotABinary, err)
		}
		of.slices = slices
	default:
		f.Close()
		return nil, ErrNotABinary
	}
	return of, nil
}

// slice returns the handler for the architecture. An empty arch selects the
// first slice.
func (o *openedFile) slice(arch string) (fileHandler, error) {
	if arch == "" {
		return o.slices[0], nil
	}
	for _, s := range o.slices {
		if s.getFileInfo().Arch == arch {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrArchNotFound, arch, o.path)
}

// Close releases the slice handlers and the underlying file.
func (o *openedFile) Close() error {
	var errs []error
	for _, s := range o.slices {
		errs = append(errs, s.Close())
	}
	errs = append(errs, o.file.Close())
	return errors.Join(errs...)
}

func fileMagicMatch(buf, magic []byte) bool {
	return bytes.HasPrefix(buf, magic)
}

// FileInfo holds information about the file.
type FileInfo struct {
	// Arch is the architecture the binary is compiled for.
	Arch string
	// OS is the operating system the binary is compiled for.
	OS string
	// ByteOrder is the byte order.
	ByteOrder binary.ByteOrder
	// WordSize is the natural integer size used by the file.
	WordSize int
}

const (
	ArchAMD64 = "amd64"
	ArchARM   = "arm"
	ArchARM64 = "arm64"
	Arch386   = "i386"
	ArchMIPS  = "mips"
	ArchPPC64 = "ppc64"
)

const (
	intSize32 = 4
	intSize64 = 8
)

// Extractor reads unique build identifiers from binaries. It does not cache,
// every call reads the file again.
type Extractor struct {
	fs FS
}

// NewExtractor returns an extractor reading from fs.
func NewExtractor(fs FS) *Extractor {
	return &Extractor{fs: fs}
}

// Identifiers returns the identifier of every architecture slice in the file.
// Slices without an identifier are left out. If no slice has one,
// ErrNoIdentifierPresent is returned.
func (e *Extractor) Identifiers(path string) (ids []ArchIdentifier, err error) {
	f, err := openFile(e.fs, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Note and load command parsing runs on untrusted input. A panic in one
	// file must not take down a whole candidate scan.
	defer func() {
		if r := recover(); r != nil {
			ids = nil
			err = fmt.Errorf("error when reading identifiers from %s, probably corrupt: %v", path, r)
		}
	}()

	for _, s := range f.slices {
		id, err := s.getIdentifier()
		if errors.Is(err, ErrNoIdentifierPresent) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, ArchIdentifier{Arch: s.getFileInfo().Arch, Identifier: id})
	}
	if len(ids) == 0 {
		return nil, ErrNoIdentifierPresent
	}
	return ids, nil
}

// Identifier returns the identifier of a single architecture slice. An empty
// arch selects the first slice.
func (e *Extractor) Identifier(path, arch string) (ArchIdentifier, error) {
	f, err := openFile(e.fs, path)
	if err != nil {
		return ArchIdentifier{}, err
	}
	defer f.Close()

	s, err := f.slice(arch)
	if err != nil {
		return ArchIdentifier{}, err
	}
	id, err := s.getIdentifier()
	if err != nil {
		return ArchIdentifier{}, err
	}
	return ArchIdentifier{Arch: s.getFileInfo().Arch, Identifier: id}, nil
}

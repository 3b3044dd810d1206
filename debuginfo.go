// This file is part of GoRE.
//
// Copyright (C) 2026 GoRE Authors
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
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Format is how a symbol file was found on disk.
type Format uint8

const (
	// FormatFlat is a single file not wrapped in a bundle.
	FormatFlat Format = iota + 1
	// FormatBundle is a file inside a .dSYM bundle.
	FormatBundle
)

func (f Format) String() string {
	switch f {
	case FormatFlat:
		return "flat"
	case FormatBundle:
		return "bundle"
	default:
		return "unknown"
	}
}

// DebugSource is the debug information of a symbol file attached to an
// image. It is fully built before it is published to the database and is not
// modified afterwards.
type DebugSource struct {
	// Path is the file the debug information was read from.
	Path string
	// Format tells whether the file came from a bundle.
	Format Format
	// Arch is the architecture slice that matched.
	Arch string
	// Identifier is the confirmed identifier shared with the image.
	Identifier Identifier
	// CompileUnits lists the DWARF compilation units. Empty if the file has
	// no DWARF sections.
	CompileUnits []CompileUnit
	// LoadedAt is when the file was read.
	LoadedAt time.Time

	symbols map[string]Symbol
}

// HasDWARF reports whether DWARF data was loaded.
func (s *DebugSource) HasDWARF() bool {
	return len(s.CompileUnits) > 0
}

// SymbolCount returns the number of symbols in the symbol table.
func (s *DebugSource) SymbolCount() int {
	return len(s.symbols)
}

// Symbol looks up a symbol by name.
func (s *DebugSource) Symbol(name string) (Symbol, error) {
	sym, ok := s.symbols[name]
	if !ok {
		return Symbol{}, ErrSymbolNotFound
	}
	return sym, nil
}

// loadDebugSource reads the debug information of the matched slice. Missing
// DWARF or symbol tables are not errors; the identifier already proved the
// file belongs to the image.
func loadDebugSource(fs FS, c *Candidate, match ArchIdentifier, logger zerolog.Logger) (*DebugSource, error) {
	f, err := openFile(fs, c.Path)
	if err != nil {
		return nil, fmt.Errorf("error when opening symbol file: %w", err)
	}
	defer f.Close()

	fh, err := f.slice(match.Arch)
	if err != nil {
		return nil, err
	}

	src := &DebugSource{
		Path:       c.Path,
		Format:     c.Format,
		Arch:       match.Arch,
		Identifier: match.Identifier,
		LoadedAt:   time.Now(),
	}

	data, err := fh.getDwarf()
	if err != nil {
		logger.Debug().Err(err).Str("path", c.Path).Msg("No DWARF data in symbol file")
	} else {
		src.CompileUnits = readCompileUnits(data)
	}

	syms, err := fh.getSymbols()
	if err != nil {
		logger.Debug().Err(err).Str("path", c.Path).Msg("Symbol table not available")
	} else {
		src.symbols = syms
	}

	logger.Debug().
		Str("path", c.Path).
		Int("compile_units", len(src.CompileUnits)).
		Int("symbols", len(src.symbols)).
		Msg("Debug information loaded")
	return src, nil
}

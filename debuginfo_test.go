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
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goretk/symfile/internal/testutil"
)

// machoDsymWithDebugInfo is a dSYM companion carrying mainUnit and a symbol
// table with one debugger entry.
func machoDsymWithDebugInfo(u [16]byte, compress bool) []byte {
	abbrev, info := mainUnit.Sections()
	if compress {
		info = testutil.ZLIB(info)
	}
	return testutil.MachO{
		CPU:      testutil.CPUArm64,
		FileType: testutil.MHDsym,
		UUID:     u[:],
		DWARF: []testutil.Section{
			{Name: "__debug_abbrev", Data: abbrev},
			{Name: "__debug_info", Data: info},
		},
		Symbols: []testutil.Symbol{
			{Name: "_main", Value: 0x100003f00},
			{Name: "_helper", Value: 0x100003f40},
			{Name: "main.c", Type: testutil.NStab},
		},
	}.Bytes()
}

func loadTestSource(t *testing.T, data []byte) *DebugSource {
	t.Helper()
	fs := newTestFS(t, map[string][]byte{"/sym/file": data})
	match, err := NewExtractor(fs).Identifier("/sym/file", "")
	require.NoError(t, err)
	src, err := loadDebugSource(fs, &Candidate{Path: "/sym/file", Format: FormatFlat}, match, zerolog.Nop())
	require.NoError(t, err)
	return src
}

func TestLoadDebugSourceMachO(t *testing.T) {
	for _, compress := range []bool{false, true} {
		src := loadTestSource(t, machoDsymWithDebugInfo(uuidA, compress))

		assert.True(t, src.HasDWARF(), "compressed: %v", compress)
		require.Len(t, src.CompileUnits, 1)
		assert.Equal(t, mainCompileUnit, src.CompileUnits[0])

		assert.Equal(t, 2, src.SymbolCount(), "Debugger entries are not symbols.")
		sym, err := src.Symbol("_main")
		require.NoError(t, err)
		assert.Equal(t, uint64(0x100003f00), sym.Value)
		assert.Equal(t, uint64(0x40), sym.Size, "Size is inferred from the next symbol.")

		_, err = src.Symbol("main.c")
		assert.ErrorIs(t, err, ErrSymbolNotFound)
	}
}

func TestLoadDebugSourceELF(t *testing.T) {
	abbrev, info := mainUnit.Sections()
	data := testutil.ELF{
		GNUBuildID: buildIDA,
		Sections: []testutil.Section{
			{Name: ".debug_abbrev", Data: abbrev},
			{Name: ".debug_info", Data: info},
		},
		Symbols: []testutil.Symbol{
			// STB_LOCAL, STT_FILE
			{Name: "main.c", Type: 0x04},
			{Name: "main", Value: 0x401000, Size: 0x18},
			{Name: "helper", Value: 0x401020},
		},
	}.Bytes()

	src := loadTestSource(t, data)
	assert.Equal(t, KindGNUBuildID, src.Identifier.Kind())
	require.True(t, src.HasDWARF())
	assert.Equal(t, mainCompileUnit, src.CompileUnits[0])

	assert.Equal(t, 2, src.SymbolCount())
	sym, err := src.Symbol("main")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x401000), sym.Value)
	assert.Equal(t, uint64(0x18), sym.Size, "Sizes from the symbol table are kept.")
}

func TestLoadDebugSourcePE(t *testing.T) {
	abbrev, info := mainUnit.Sections()
	data := testutil.PE{
		CodeView: &testutil.CodeView{GUID: uuidA, Age: 1, PDB: "app.pdb"},
		Sections: []testutil.Section{
			{Name: ".debug_abbrev", Data: abbrev},
			{Name: ".debug_info", Data: info},
		},
		Symbols: []testutil.Symbol{
			{Name: "main", Value: 0x10},
			{Name: "main.helper", Value: 0x40},
		},
	}.Bytes()

	src := loadTestSource(t, data)
	assert.Equal(t, KindCodeView, src.Identifier.Kind())
	require.True(t, src.HasDWARF())
	assert.Equal(t, mainCompileUnit, src.CompileUnits[0])

	assert.Equal(t, 2, src.SymbolCount())
	sym, err := src.Symbol("main.helper")
	require.NoError(t, err, "Long names come from the string table.")
	assert.Equal(t, uint64(0x140001040), sym.Value)
	sym, err = src.Symbol("main")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x30), sym.Size)
}

func TestLoadDebugSourceWithoutDebugInfo(t *testing.T) {
	src := loadTestSource(t, machoDsym(uuidA))
	assert.False(t, src.HasDWARF())
	assert.Zero(t, src.SymbolCount())
	_, err := src.Symbol("_main")
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestMachODwarfName(t *testing.T) {
	tests := []struct {
		section string
		name    string
		ok      bool
	}{
		{"__debug_info", "info", true},
		{"__zdebug_abbrev", "abbrev", true},
		{"__debug_str_offs", "str_offsets", true},
		{"__debug_line_str", "line_str", true},
		{"__text", "", false},
		{"__apple_names", "", false},
	}
	for _, test := range tests {
		test := test
		t.Run(test.section, func(t *testing.T) {
			name, ok := machoDwarfName(test.section)
			assert.Equal(t, test.ok, ok)
			assert.Equal(t, test.name, name)
		})
	}
}

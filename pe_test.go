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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goretk/symfile/internal/testutil"
)

func TestExtractorPE(t *testing.T) {
	cv := &testutil.CodeView{GUID: uuidA, Age: 3, PDB: `C:\build\app.pdb`}
	fs := newTestFS(t, map[string][]byte{
		"/bin/codeview.exe": testutil.PE{CodeView: cv}.Bytes(),
		"/bin/arm64.exe":    testutil.PE{Machine: testutil.MachineArm64, CodeView: cv}.Bytes(),
		"/bin/go.exe":       testutil.PE{GoBuildID: goBuildID}.Bytes(),
		"/bin/both.exe":     testutil.PE{CodeView: cv, GoBuildID: goBuildID}.Bytes(),
		"/bin/bare.exe":     testutil.PE{}.Bytes(),
		// Debug directory address outside of every section.
		"/bin/unmapped.exe": testutil.PE{DebugDirRVA: 0x9000, GoBuildID: goBuildID}.Bytes(),
		// Debug directory starting 16 bytes before the end of .rdata.
		"/bin/truncated.exe": testutil.PE{CodeView: cv, DebugDirRVA: 0x2000 + 0x200 - 16}.Bytes(),
	})
	e := NewExtractor(fs)

	t.Run("codeview", func(t *testing.T) {
		id, err := e.Identifier("/bin/codeview.exe", "")
		require.NoError(t, err)
		assert.Equal(t, ArchAMD64, id.Arch)
		assert.Equal(t, KindCodeView, id.Identifier.Kind())
		assert.Equal(t, 20, id.Identifier.Len())
		assert.Equal(t, uuidA[:], id.Identifier.Bytes()[:16])
	})

	t.Run("arm64", func(t *testing.T) {
		id, err := e.Identifier("/bin/arm64.exe", "")
		require.NoError(t, err)
		assert.Equal(t, ArchARM64, id.Arch)
	})

	t.Run("go build ID fallback", func(t *testing.T) {
		id, err := e.Identifier("/bin/go.exe", "")
		require.NoError(t, err)
		assert.Equal(t, KindGoBuildID, id.Identifier.Kind())
		assert.Equal(t, goBuildID, id.Identifier.String())
	})

	t.Run("codeview wins over go build ID", func(t *testing.T) {
		id, err := e.Identifier("/bin/both.exe", "")
		require.NoError(t, err)
		assert.Equal(t, KindCodeView, id.Identifier.Kind())
	})

	t.Run("no debug directory", func(t *testing.T) {
		_, err := e.Identifier("/bin/bare.exe", "")
		assert.ErrorIs(t, err, ErrNoIdentifierPresent)
	})

	t.Run("unmapped debug directory", func(t *testing.T) {
		id, err := e.Identifier("/bin/unmapped.exe", "")
		require.NoError(t, err)
		assert.Equal(t, KindGoBuildID, id.Identifier.Kind())
	})

	t.Run("debug directory out of bounds", func(t *testing.T) {
		assert.NotPanics(t, func() {
			_, err := e.Identifiers("/bin/truncated.exe")
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNoIdentifierPresent)
			assert.Contains(t, err.Error(), "out of section bounds")
		})
	})
}

func TestExtractorPETruncatedHeaders(t *testing.T) {
	data := testutil.PE{CodeView: &testutil.CodeView{GUID: uuidA, Age: 1}}.Bytes()
	fs := newTestFS(t, map[string][]byte{"/bin/short.exe": data[:0x100]})

	_, err := NewExtractor(fs).Identifiers("/bin/short.exe")
	assert.ErrorIs(t, err, ErrNotABinary)
}

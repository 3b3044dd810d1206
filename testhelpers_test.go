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
	"path"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/goretk/symfile/internal/testutil"
)

var (
	uuidA = uuid.MustParse("8A3B6C5D-1E2F-4A5B-8C7D-9E0F1A2B3C4D")
	uuidB = uuid.MustParse("0F1E2D3C-4B5A-4968-8776-A5B4C3D2E1F0")

	buildIDA = []byte{
		0x5f, 0x0e, 0x2c, 0x9b, 0x31, 0x8d, 0x47, 0x1a, 0x9e, 0x6b,
		0x02, 0xc4, 0x7d, 0x11, 0xe8, 0x53, 0xa0, 0x36, 0xbb, 0x70,
	}
)

func machoExe(u uuid.UUID) []byte {
	return testutil.MachO{CPU: testutil.CPUArm64, UUID: u[:]}.Bytes()
}

func machoDsym(u uuid.UUID) []byte {
	return testutil.MachO{CPU: testutil.CPUArm64, FileType: testutil.MHDsym, UUID: u[:]}.Bytes()
}

func machoID(u uuid.UUID) Identifier {
	return NewIdentifier(KindMachOUUID, u[:])
}

// newTestFS returns an in-memory filesystem holding files. Keys ending in a
// slash create empty directories.
func newTestFS(t *testing.T, files map[string][]byte) FS {
	t.Helper()
	fs := memfs.New()
	for p, data := range files {
		if p[len(p)-1] == '/' {
			require.NoError(t, fs.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, fs.MkdirAll(path.Dir(p), 0o755))
		require.NoError(t, util.WriteFile(fs, p, data, 0o644))
	}
	return fs
}

// standardFS is an executable with a matching bundle, a bundle built from a
// different executable and a flat copy of the matching dSYM.
func standardFS(t *testing.T) FS {
	return newTestFS(t, map[string][]byte{
		"/work/a.out": machoExe(uuidA),
		"/work/a.out.dSYM/Contents/Resources/DWARF/a.out": machoDsym(uuidA),
		"/work/other.dSYM/Contents/Resources/DWARF/other": machoDsym(uuidB),
		"/work/a.out.sym":  machoDsym(uuidA),
		"/work/b.out.sym":  machoDsym(uuidB),
		"/work/notes.txt":  []byte("not a binary at all"),
		"/work/empty.dSYM/": nil,
	})
}

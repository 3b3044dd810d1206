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
	"encoding/binary"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goretk/symfile/internal/testutil"
)

func newTestMatcher(fs FS) (*Matcher, *Resolver) {
	return NewMatcher(NewExtractor(fs), zerolog.Nop()), NewResolver(fs)
}

func TestMatch(t *testing.T) {
	fs := standardFS(t)
	m, r := newTestMatcher(fs)
	img := &Image{Path: "/work/a.out", Arch: ArchARM64, Identifier: machoID(uuidA)}

	t.Run("bundle root", func(t *testing.T) {
		result, err := m.Match(img, r.Resolve("/work/a.out.dSYM"))
		require.NoError(t, err)
		assert.Equal(t, Matched, result.Status)
		assert.Equal(t, "/work/a.out.dSYM/Contents/Resources/DWARF/a.out", result.Candidate.Path)
		assert.Equal(t, ArchARM64, result.Match.Arch)
		assert.True(t, result.Match.Identifier.Equal(img.Identifier))
	})

	t.Run("flat file", func(t *testing.T) {
		result, err := m.Match(img, r.Resolve("/work/a.out.sym"))
		require.NoError(t, err)
		assert.Equal(t, Matched, result.Status)
	})

	t.Run("mismatch", func(t *testing.T) {
		result, err := m.Match(img, r.Resolve("/work/other.dSYM"))
		require.NoError(t, err)
		assert.Equal(t, IdentifierMismatch, result.Status)
		assert.Nil(t, result.Candidate)
		assert.True(t, result.Expected.Equal(machoID(uuidA)))
		require.Len(t, result.Found, 1)
		assert.Equal(t, "/work/other.dSYM/Contents/Resources/DWARF/other", result.Found[0].Path)
		assert.True(t, result.Found[0].Identifier.Equal(machoID(uuidB)))
	})

	t.Run("unreadable candidate", func(t *testing.T) {
		result, err := m.Match(img, r.Resolve("/work/notes.txt"))
		require.NoError(t, err)
		assert.Equal(t, NoCandidateFound, result.Status)
		require.Len(t, result.Failures, 1)
		assert.ErrorIs(t, result.Failures[0], ErrNotABinary)
	})

	t.Run("empty bundle", func(t *testing.T) {
		result, err := m.Match(img, r.Resolve("/work/empty.dSYM"))
		require.NoError(t, err)
		assert.Equal(t, NoCandidateFound, result.Status)
		assert.Empty(t, result.Failures)
	})

	t.Run("invalid path", func(t *testing.T) {
		result, err := m.Match(img, r.Resolve("/work/a.out.dSYM/Contents"))
		require.NoError(t, err)
		assert.Equal(t, InvalidPath, result.Status)
		assert.NotEmpty(t, result.Reason)
	})

	t.Run("image without identifier", func(t *testing.T) {
		_, err := m.Match(&Image{Path: "/work/a.out"}, r.Resolve("/work/a.out.dSYM"))
		assert.ErrorIs(t, err, ErrNoIdentifierPresent)
	})
}

func TestMatchFirstMatchingCandidateWins(t *testing.T) {
	fs := newTestFS(t, map[string][]byte{
		"/b.dSYM/Contents/Resources/DWARF/1": []byte("garbage that is not a binary"),
		"/b.dSYM/Contents/Resources/DWARF/2": machoDsym(uuidB),
		"/b.dSYM/Contents/Resources/DWARF/3": machoDsym(uuidA),
		"/b.dSYM/Contents/Resources/DWARF/4": machoDsym(uuidA),
	})
	m, r := newTestMatcher(fs)
	img := &Image{Path: "/b", Identifier: machoID(uuidA)}

	result, err := m.Match(img, r.Resolve("/b.dSYM"))
	require.NoError(t, err)
	assert.Equal(t, Matched, result.Status)
	assert.Equal(t, "/b.dSYM/Contents/Resources/DWARF/3", result.Candidate.Path)
	assert.Len(t, result.Failures, 1)
	assert.Len(t, result.Found, 1)
}

func TestMatchFatCandidate(t *testing.T) {
	fat := testutil.FatMachO(
		testutil.MachO{CPU: testutil.CPUAmd64, FileType: testutil.MHDsym, UUID: uuidB[:]},
		testutil.MachO{CPU: testutil.CPUArm64, FileType: testutil.MHDsym, UUID: uuidA[:]},
	)
	fs := newTestFS(t, map[string][]byte{"/u.dSYM/Contents/Resources/DWARF/u": fat})
	m, r := newTestMatcher(fs)

	result, err := m.Match(&Image{Path: "/u", Identifier: machoID(uuidA)}, r.Resolve("/u.dSYM"))
	require.NoError(t, err)
	assert.Equal(t, Matched, result.Status)
	assert.Equal(t, ArchARM64, result.Match.Arch)

	result, err = m.Match(&Image{Path: "/u", Identifier: machoID(uuidB)}, r.Resolve("/u.dSYM"))
	require.NoError(t, err)
	assert.Equal(t, Matched, result.Status)
	assert.Equal(t, ArchAMD64, result.Match.Arch)
}

func TestMatchSkipsCorruptCandidate(t *testing.T) {
	bad := testutil.ELF{GNUBuildID: buildIDA}.Bytes()
	// namesz of the first note, which starts right after the ELF header.
	binary.LittleEndian.PutUint32(bad[64:], 0xfffffffd)

	fs := newTestFS(t, map[string][]byte{
		"/c.dSYM/Contents/Resources/DWARF/0bad":  bad,
		"/c.dSYM/Contents/Resources/DWARF/1good": testutil.ELF{GNUBuildID: buildIDA}.Bytes(),
	})
	m, r := newTestMatcher(fs)
	img := &Image{Path: "/c", Identifier: NewIdentifier(KindGNUBuildID, buildIDA)}

	var result *MatchResult
	var err error
	assert.NotPanics(t, func() {
		result, err = m.Match(img, r.Resolve("/c.dSYM"))
	})
	require.NoError(t, err)
	assert.Equal(t, Matched, result.Status)
	assert.Equal(t, "/c.dSYM/Contents/Resources/DWARF/1good", result.Candidate.Path)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "/c.dSYM/Contents/Resources/DWARF/0bad", result.Failures[0].Path)
	assert.ErrorIs(t, result.Failures[0], ErrNoIdentifierPresent)
}

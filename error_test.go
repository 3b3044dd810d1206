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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttachErrorMessages(t *testing.T) {
	mismatch := &MatchResult{
		Status:   IdentifierMismatch,
		Expected: machoID(uuidA),
		Found: []FoundIdentifier{
			{Path: "/w/b.dSYM/Contents/Resources/DWARF/b", Arch: ArchARM64, Identifier: machoID(uuidB)},
		},
	}
	noCandidate := &MatchResult{
		Status:   NoCandidateFound,
		Failures: []*CandidateError{{Path: "/w/x", Err: ErrNotABinary}},
	}

	tests := []struct {
		name     string
		err      *AttachError
		sentinel error
		expected string
	}{
		{
			name:     "invalid path",
			err:      &AttachError{Kind: KindInvalidPath, Path: "/w/a.dSYM/Contents", Image: "/w/a", Reason: "no such file"},
			sentinel: ErrInvalidPath,
			expected: "invalid module path '/w/a.dSYM/Contents': no such file",
		},
		{
			name:     "no identifier",
			err:      &AttachError{Kind: KindNoIdentifierPresent, Path: "/w/a.dSYM", Image: "/w/a"},
			sentinel: ErrNoIdentifierPresent,
			expected: "'/w/a' has no UUID, unable to verify symbol file '/w/a.dSYM'",
		},
		{
			name:     "mismatch",
			err:      &AttachError{Kind: KindIdentifierMismatch, Path: "/w/b.dSYM", Image: "/w/a", Result: mismatch},
			sentinel: ErrIdentifierMismatch,
			expected: "symbol file '/w/b.dSYM' does not match '/w/a': expected UUID 8A3B6C5D-1E2F-4A5B-8C7D-9E0F1A2B3C4D, found 0F1E2D3C-4B5A-4968-8776-A5B4C3D2E1F0 in '/w/b.dSYM/Contents/Resources/DWARF/b'",
		},
		{
			name:     "mismatch without result",
			err:      &AttachError{Kind: KindIdentifierMismatch, Path: "/w/b.dSYM", Image: "/w/a"},
			sentinel: ErrIdentifierMismatch,
			expected: "symbol file '/w/b.dSYM' does not match '/w/a'",
		},
		{
			name:     "no candidate",
			err:      &AttachError{Kind: KindNoCandidateFound, Path: "/w/a.dSYM", Image: "/w/a"},
			sentinel: ErrNoCandidateFound,
			expected: "symbol file '/w/a.dSYM' does not match '/w/a': no debug information files found",
		},
		{
			name:     "no candidate with failures",
			err:      &AttachError{Kind: KindNoCandidateFound, Path: "/w/x", Image: "/w/a", Result: noCandidate},
			sentinel: ErrNoCandidateFound,
			expected: "symbol file '/w/x' does not match '/w/a': no debug information files found (/w/x: not a binary)",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.err.Error())
			assert.ErrorIs(t, test.err, test.sentinel)

			var ae *AttachError
			assert.True(t, errors.As(error(test.err), &ae))
			assert.Equal(t, test.err.Kind, ae.Kind)
		})
	}
}

func TestAttachErrorIsOnlyItsKind(t *testing.T) {
	err := &AttachError{Kind: KindIdentifierMismatch}
	assert.NotErrorIs(t, err, ErrInvalidPath)
	assert.NotErrorIs(t, err, ErrNoCandidateFound)
}

func TestCandidateErrorUnwrap(t *testing.T) {
	err := &CandidateError{Path: "/x", Err: ErrNotABinary}
	assert.ErrorIs(t, err, ErrNotABinary)
	assert.Equal(t, "/x: not a binary", err.Error())
}

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
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// IdentifierKind tells which container field an identifier was read from.
type IdentifierKind uint8

const (
	// KindUnknown is used for identifiers parsed from user input.
	KindUnknown IdentifierKind = iota
	// KindMachOUUID is the 16 byte LC_UUID of a Mach-O file.
	KindMachOUUID
	// KindGNUBuildID is the descriptor of an ELF NT_GNU_BUILD_ID note.
	KindGNUBuildID
	// KindGoBuildID is the Go toolchain build ID string.
	KindGoBuildID
	// KindCodeView is the GUID and age of a PE CodeView RSDS record.
	KindCodeView
)

func (k IdentifierKind) String() string {
	switch k {
	case KindMachOUUID:
		return "uuid"
	case KindGNUBuildID:
		return "gnu-build-id"
	case KindGoBuildID:
		return "go-build-id"
	case KindCodeView:
		return "codeview"
	default:
		return "unknown"
	}
}

// Identifier is the unique build identifier embedded in a binary. The zero
// value is the absent identifier.
type Identifier struct {
	kind IdentifierKind
	// Stored as a string so the value is immutable and comparable.
	raw string
}

// NewIdentifier returns an identifier of the given kind. The bytes are copied.
func NewIdentifier(kind IdentifierKind, b []byte) Identifier {
	return Identifier{kind: kind, raw: string(b)}
}

// Kind returns where the identifier came from.
func (i Identifier) Kind() IdentifierKind {
	return i.kind
}

// Bytes returns a copy of the identifier bytes.
func (i Identifier) Bytes() []byte {
	return []byte(i.raw)
}

// Len returns the identifier length in bytes.
func (i Identifier) Len() int {
	return len(i.raw)
}

// IsZero reports whether the identifier is absent.
func (i Identifier) IsZero() bool {
	return len(i.raw) == 0
}

// Equal compares the identifier bytes. The kind is not part of the
// comparison and there is no prefix or truncation tolerance.
func (i Identifier) Equal(o Identifier) bool {
	if i.IsZero() || o.IsZero() {
		return false
	}
	return i.raw == o.raw
}

func (i Identifier) String() string {
	if i.IsZero() {
		return "<none>"
	}
	switch {
	case i.kind == KindGoBuildID:
		return i.raw
	case i.kind == KindCodeView && len(i.raw) == 20:
		// GUID fields are stored little endian; age is a trailing uint32.
		b := []byte(i.raw)
		var g uuid.UUID
		binary.BigEndian.PutUint32(g[0:], binary.LittleEndian.Uint32(b[0:]))
		binary.BigEndian.PutUint16(g[4:], binary.LittleEndian.Uint16(b[4:]))
		binary.BigEndian.PutUint16(g[6:], binary.LittleEndian.Uint16(b[6:]))
		copy(g[8:], b[8:16])
		return fmt.Sprintf("%s-%d", strings.ToUpper(g.String()), binary.LittleEndian.Uint32(b[16:]))
	case len(i.raw) == 16 && i.kind != KindGNUBuildID:
		u, _ := uuid.FromBytes([]byte(i.raw))
		return strings.ToUpper(u.String())
	default:
		return hex.EncodeToString([]byte(i.raw))
	}
}

// ParseIdentifier parses an identifier given as a hyphenated UUID or as plain
// hex digits.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identifier{}, fmt.Errorf("%w: empty string", ErrInvalidIdentifier)
	}
	if strings.Contains(s, "-") {
		u, err := uuid.Parse(s)
		if err != nil {
			return Identifier{}, fmt.Errorf("%w: %s", ErrInvalidIdentifier, err)
		}
		return NewIdentifier(KindUnknown, u[:]), nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: %s", ErrInvalidIdentifier, err)
	}
	return NewIdentifier(KindUnknown, b), nil
}

// ArchIdentifier is the identifier of one architecture slice of a file.
type ArchIdentifier struct {
	Arch       string
	Identifier Identifier
}

func containsIdentifier(ids []ArchIdentifier, id Identifier) (ArchIdentifier, bool) {
	for _, a := range ids {
		if a.Identifier.Equal(id) {
			return a, true
		}
	}
	return ArchIdentifier{}, false
}

func isNullUUID(b []byte) bool {
	return bytes.Equal(b, make([]byte, len(b)))
}

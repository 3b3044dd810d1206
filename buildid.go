// Copyright 2019 The GoRE.tk Authors. All rights reserved.
// Use of this source code is governed by the license that
// can be found in the LICENSE file.

package symfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

var (
	goNoteNameELF  = []byte("Go\x00\x00")
	gnuNoteNameELF = []byte("GNU\x00")
	goNoteRawStart = []byte("\xff Go build ID: \"")
	goNoteRawEnd   = []byte("\"\n \xff")
	codeViewMagic  = []byte("RSDS")
)

const (
	ntGNUBuildID = 3
	ntGoBuildID  = 4
)

func parseBuildIDFromElf(data []byte, byteOrder binary.ByteOrder) (string, error) {
	r := bytes.NewReader(data)
	var nameLen uint32
	var idLen uint32
	var tag uint32
	err := binary.Read(r, byteOrder, &nameLen)
	if err != nil {
		return "", fmt.Errorf("error when reading the BuildID name length: %w", err)
	}
	err = binary.Read(r, byteOrder, &idLen)
	if err != nil {
		return "", fmt.Errorf("error when reading the BuildID ID length: %w", err)
	}
	err = binary.Read(r, byteOrder, &tag)
	if err != nil {
		return "", fmt.Errorf("error when reading the BuildID tag: %w", err)
	}

	if tag != uint32(ntGoBuildID) {
		return "", fmt.Errorf("build ID does not match expected value. 0x%x parsed", tag)
	}

	if uint64(len(data)) < 16+uint64(idLen) || nameLen != uint32(len(goNoteNameELF)) {
		return "", fmt.Errorf("malformed Go build ID note")
	}
	noteName := data[12 : 12+int(nameLen)]
	if !bytes.Equal(noteName, goNoteNameELF) {
		return "", fmt.Errorf("note name not as expected")
	}
	return string(data[16 : 16+int(idLen)]), nil
}

func parseBuildIDFromRaw(data []byte) (string, error) {
	idx := bytes.Index(data, goNoteRawStart)
	if idx < 0 {
		// No Build ID
		return "", nil
	}
	end := bytes.Index(data[idx:], goNoteRawEnd)
	if end < 0 {
		return "", fmt.Errorf("malformed Build ID")
	}
	return string(data[idx+len(goNoteRawStart) : idx+end]), nil
}

// findGNUBuildID walks a sequence of ELF notes and returns the descriptor of
// the first NT_GNU_BUILD_ID note owned by "GNU".
func findGNUBuildID(data []byte, byteOrder binary.ByteOrder) (Identifier, bool) {
	align4 := func(n uint64) uint64 { return (n + 3) &^ 3 }
	for len(data) >= 12 {
		nameLen := uint64(byteOrder.Uint32(data[0:]))
		descLen := uint64(byteOrder.Uint32(data[4:]))
		tag := byteOrder.Uint32(data[8:])
		data = data[12:]

		// Sizes are 32 bit, so the rounded sum cannot wrap a uint64.
		nameEnd := align4(nameLen)
		descEnd := nameEnd + align4(descLen)
		if descEnd > uint64(len(data)) {
			return Identifier{}, false
		}
		name := data[:nameLen]
		desc := data[nameEnd : nameEnd+descLen]
		if tag == ntGNUBuildID && bytes.Equal(name, gnuNoteNameELF) && len(desc) > 0 {
			return NewIdentifier(KindGNUBuildID, desc), true
		}
		data = data[descEnd:]
	}
	return Identifier{}, false
}

// parseCodeView extracts GUID and age from a CodeView RSDS record:
// "RSDS", 16 byte GUID, 4 byte age, then the NUL terminated PDB path.
func parseCodeView(data []byte) (Identifier, error) {
	if len(data) < 24 {
		return Identifier{}, fmt.Errorf("CodeView record too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], codeViewMagic) {
		return Identifier{}, fmt.Errorf("unsupported CodeView signature %q", data[:4])
	}
	id := data[4:24]
	if isNullUUID(id[:16]) {
		return Identifier{}, ErrNoIdentifierPresent
	}
	return NewIdentifier(KindCodeView, id), nil
}

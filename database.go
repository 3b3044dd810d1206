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
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Image is an executable or shared library known to a session. The
// identifier is read once when the image is opened and never changes.
type Image struct {
	// Path is the absolute, cleaned path of the image.
	Path string
	// Arch is the architecture slice the session debugs.
	Arch string
	// Identifier is the unique build identifier, zero if the image has none.
	Identifier Identifier
}

// Key returns the database key of the image.
func (i *Image) Key() ImageKey {
	return ImageKey{Path: i.Path, Arch: i.Arch}
}

func (i *Image) String() string {
	return i.Path
}

// ImageKey identifies an image in the database.
type ImageKey struct {
	Path string
	Arch string
}

// AttachOutcome tells whether an attach added or replaced an association.
type AttachOutcome uint8

const (
	// Inserted means the image had no debug information before.
	Inserted AttachOutcome = iota + 1
	// Replaced means a previous source was replaced.
	Replaced
)

func (o AttachOutcome) String() string {
	switch o {
	case Inserted:
		return "Inserted"
	case Replaced:
		return "Replaced"
	default:
		return "Unknown"
	}
}

type slot struct {
	mu     sync.Mutex
	image  *Image
	source atomic.Pointer[DebugSource]
}

// Entry is an image with its attached debug information.
type Entry struct {
	Image  *Image
	Source *DebugSource
}

// Database maps images to their debug information. Attaches to the same
// image are serialized; attaches to different images do not contend.
// Lookups never block on an attach and see either the old or the new source.
type Database struct {
	mu       sync.RWMutex
	slots    map[ImageKey]*slot
	notifier *Notifier
	seq      *Sequence
}

// NewDatabase returns an empty database publishing to notifier.
func NewDatabase(notifier *Notifier, seq *Sequence) *Database {
	if seq == nil {
		seq = NewSequence()
	}
	return &Database{
		slots:    make(map[ImageKey]*slot),
		notifier: notifier,
		seq:      seq,
	}
}

// Notifier returns the notifier owned by the database.
func (d *Database) Notifier() *Notifier {
	return d.notifier
}

func (d *Database) slot(img *Image) *slot {
	key := img.Key()
	d.mu.RLock()
	s, ok := d.slots[key]
	d.mu.RUnlock()
	if ok {
		return s
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok = d.slots[key]; ok {
		return s
	}
	s = &slot{image: img}
	d.slots[key] = s
	return s
}

// Attach associates src with img. The match that produced src is the only
// gate; Attach does not verify anything itself. The change event is
// delivered to every observer before Attach returns, after the slot has been
// released so an observer may attach again.
func (d *Database) Attach(img *Image, src *DebugSource) (AttachOutcome, *DebugSource) {
	s := d.slot(img)

	s.mu.Lock()
	prev := s.source.Swap(src)
	seq := d.seq.Next()
	s.mu.Unlock()

	outcome := Inserted
	if prev != nil {
		outcome = Replaced
	}

	if d.notifier != nil {
		d.notifier.Publish(Event{
			Kind:     SymbolChange,
			Image:    img,
			Source:   src,
			Previous: prev,
			Seq:      seq,
			Time:     time.Now(),
		})
	}
	return outcome, prev
}

// Lookup returns the debug information attached to img.
func (d *Database) Lookup(img *Image) (*DebugSource, bool) {
	d.mu.RLock()
	s, ok := d.slots[img.Key()]
	d.mu.RUnlock()
	if !ok {
		return nil, false
	}
	src := s.source.Load()
	return src, src != nil
}

// Entries returns every image with debug information, sorted by path.
func (d *Database) Entries() []Entry {
	d.mu.RLock()
	entries := make([]Entry, 0, len(d.slots))
	for _, s := range d.slots {
		if src := s.source.Load(); src != nil {
			entries = append(entries, Entry{Image: s.image, Source: src})
		}
	}
	d.mu.RUnlock()

	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Image.Path, b.Image.Path); c != 0 {
			return c
		}
		return cmp.Compare(a.Image.Arch, b.Image.Arch)
	})
	return entries
}

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

import "sync/atomic"

// Sequence numbers symbol change events. Numbers start at 1 and grow by one
// per published attach, shared by every image of a database. A session
// backed by a journal resumes the numbering where the journal stopped, so
// numbers stay unique across runs.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a sequence whose first number is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// ResumeSequence returns a sequence whose first number is last+1. A negative
// last is treated as an empty journal.
func ResumeSequence(last int64) *Sequence {
	s := &Sequence{}
	s.last.Store(max(last, 0))
	return s
}

// Next hands out the following number.
func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}

// Last returns the most recent number handed out, or the resume point if
// none was.
func (s *Sequence) Last() int64 {
	return s.last.Load()
}

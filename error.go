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
	"fmt"
	"strings"
)

var (
	// ErrNotEnoughBytesRead is returned if read call returned less bytes than what is needed.
	ErrNotEnoughBytesRead = errors.New("not enough bytes read")
	// ErrNotABinary is returned if the file is not a supported binary container.
	ErrNotABinary = errors.New("not a binary")
	// ErrNoIdentifierPresent is returned if the container has no unique build identifier.
	ErrNoIdentifierPresent = errors.New("no identifier present")
	// ErrSectionDoesNotExist is returned when accessing a section that does not exist.
	ErrSectionDoesNotExist = errors.New("section does not exist")
	// ErrArchNotFound is returned when a requested architecture slice is not in the file.
	ErrArchNotFound = errors.New("architecture not found")
	// ErrInvalidPath is returned for paths that can not name a symbol file.
	ErrInvalidPath = errors.New("invalid module path")
	// ErrIdentifierMismatch is returned when no candidate carries the image identifier.
	ErrIdentifierMismatch = errors.New("identifier mismatch")
	// ErrNoCandidateFound is returned when there was nothing to compare the image against.
	ErrNoCandidateFound = errors.New("no candidate found")
	// ErrInvalidIdentifier is returned when an identifier string can not be parsed.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// ErrorKind classifies a failed attach attempt.
type ErrorKind uint8

const (
	// KindInvalidPath means the candidate path is malformed or missing.
	KindInvalidPath ErrorKind = iota + 1
	// KindNoIdentifierPresent means the image has no identifier to verify against.
	KindNoIdentifierPresent
	// KindIdentifierMismatch means every candidate had a different identifier.
	KindIdentifierMismatch
	// KindNoCandidateFound means no usable candidate was found.
	KindNoCandidateFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidPath:
		return "InvalidPath"
	case KindNoIdentifierPresent:
		return "NoIdentifierPresent"
	case KindIdentifierMismatch:
		return "IdentifierMismatch"
	case KindNoCandidateFound:
		return "NoCandidateFound"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Message templates rendered for the user. They are stable and tests may
// assert on them.
const (
	msgInvalidPath      = "invalid module path '%s': %s"
	msgDoesNotMatch     = "symbol file '%s' does not match '%s'"
	msgNoCandidate      = "symbol file '%s' does not match '%s': no debug information files found"
	msgNoIdentifier     = "'%s' has no UUID, unable to verify symbol file '%s'"
	msgHasBeenAddedTo   = "symbol file '%s' has been added to '%s'"
	msgMismatchExpected = "expected UUID %s"
	msgMismatchFound    = "found %s in '%s'"
)

// AttachError is returned by a rejected attach attempt. It carries the
// structured match result so callers can report both identifiers.
type AttachError struct {
	// Kind identifies the failure category.
	Kind ErrorKind
	// Path is the candidate path given by the user.
	Path string
	// Image is the path of the image the symbol file was meant for.
	Image string
	// Reason is an extra explanation, used for invalid paths.
	Reason string
	// Result is the match result, nil for path errors.
	Result *MatchResult
}

// Error renders the message template for the error kind.
func (e *AttachError) Error() string {
	switch e.Kind {
	case KindInvalidPath:
		return fmt.Sprintf(msgInvalidPath, e.Path, e.Reason)
	case KindNoIdentifierPresent:
		return fmt.Sprintf(msgNoIdentifier, e.Image, e.Path)
	case KindNoCandidateFound:
		msg := fmt.Sprintf(msgNoCandidate, e.Path, e.Image)
		if e.Result != nil && len(e.Result.Failures) > 0 {
			var reasons []string
			for _, f := range e.Result.Failures {
				reasons = append(reasons, f.Error())
			}
			msg += " (" + strings.Join(reasons, "; ") + ")"
		}
		return msg
	case KindIdentifierMismatch:
		msg := fmt.Sprintf(msgDoesNotMatch, e.Path, e.Image)
		if e.Result == nil {
			return msg
		}
		details := []string{fmt.Sprintf(msgMismatchExpected, e.Result.Expected)}
		for _, c := range e.Result.Found {
			details = append(details, fmt.Sprintf(msgMismatchFound, c.Identifier, c.Path))
		}
		return msg + ": " + strings.Join(details, ", ")
	default:
		return fmt.Sprintf("attach of '%s' to '%s' failed", e.Path, e.Image)
	}
}

// Is makes the error match the sentinel of its kind.
func (e *AttachError) Is(target error) bool {
	switch e.Kind {
	case KindInvalidPath:
		return target == ErrInvalidPath
	case KindNoIdentifierPresent:
		return target == ErrNoIdentifierPresent
	case KindIdentifierMismatch:
		return target == ErrIdentifierMismatch
	case KindNoCandidateFound:
		return target == ErrNoCandidateFound
	}
	return false
}

// CandidateError records why a single candidate could not be read. It does
// not abort a match.
type CandidateError struct {
	Path string
	Err  error
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Err)
}

func (e *CandidateError) Unwrap() error {
	return e.Err
}

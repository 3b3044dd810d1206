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
	"github.com/rs/zerolog"
)

// MatchStatus is the tag of a MatchResult.
type MatchStatus uint8

const (
	// Matched means a candidate carries the image identifier.
	Matched MatchStatus = iota + 1
	// NoCandidateFound means there was no readable candidate.
	NoCandidateFound
	// IdentifierMismatch means every readable candidate had another identifier.
	IdentifierMismatch
	// InvalidPath means the path was rejected by the resolver.
	InvalidPath
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "Matched"
	case NoCandidateFound:
		return "NoCandidateFound"
	case IdentifierMismatch:
		return "IdentifierMismatch"
	case InvalidPath:
		return "InvalidPath"
	default:
		return "Unknown"
	}
}

// FoundIdentifier is an identifier read from a candidate that did not match.
type FoundIdentifier struct {
	Path       string
	Arch       string
	Identifier Identifier
}

// MatchResult is the outcome of matching an image against a resolution.
type MatchResult struct {
	Status MatchStatus
	// Candidate is the winning candidate when Status is Matched.
	Candidate *Candidate
	// Match is the matching slice of Candidate.
	Match ArchIdentifier
	// Expected is the image identifier.
	Expected Identifier
	// Found lists the identifiers of the candidates that did not match, in
	// scan order.
	Found []FoundIdentifier
	// Failures lists candidates whose identifier could not be read.
	Failures []*CandidateError
	// Reason is copied from the resolution for InvalidPath.
	Reason string
}

// Matcher compares image identifiers with candidate identifiers.
type Matcher struct {
	extractor *Extractor
	logger    zerolog.Logger
}

// NewMatcher returns a matcher using the extractor to read candidates.
func NewMatcher(extractor *Extractor, logger zerolog.Logger) *Matcher {
	return &Matcher{
		extractor: extractor,
		logger:    logger.With().Str("component", "matcher").Logger(),
	}
}

// Match scans the candidates of res in order and returns on the first one
// with a slice identifier byte-identical to the image identifier. Candidates
// that can not be read are recorded and skipped. An image without an
// identifier can never match; ErrNoIdentifierPresent is returned before any
// candidate is read.
func (m *Matcher) Match(img *Image, res *Resolution) (*MatchResult, error) {
	if img.Identifier.IsZero() {
		return nil, ErrNoIdentifierPresent
	}
	result := &MatchResult{Expected: img.Identifier}

	if res.Kind == Invalid {
		result.Status = InvalidPath
		result.Reason = res.Reason
		return result, nil
	}

	for _, c := range res.Candidates {
		ids, err := m.extractor.Identifiers(c.Path)
		if err != nil {
			m.logger.Debug().Err(err).Str("candidate", c.Path).Msg("Skipping unreadable candidate")
			result.Failures = append(result.Failures, &CandidateError{Path: c.Path, Err: err})
			continue
		}
		if hit, ok := containsIdentifier(ids, img.Identifier); ok {
			m.logger.Debug().
				Str("candidate", c.Path).
				Stringer("uuid", hit.Identifier).
				Msg("Candidate matched")
			result.Status = Matched
			result.Candidate = c
			result.Match = hit
			return result, nil
		}
		for _, id := range ids {
			result.Found = append(result.Found, FoundIdentifier{Path: c.Path, Arch: id.Arch, Identifier: id.Identifier})
		}
	}

	if len(result.Found) == 0 {
		result.Status = NoCandidateFound
	} else {
		result.Status = IdentifierMismatch
	}
	return result, nil
}

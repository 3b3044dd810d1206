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
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// State is a step of an attach attempt.
type State uint8

const (
	StateIdle State = iota
	StateResolving
	StateExtracting
	StateMatching
	StateAttached
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateResolving:
		return "Resolving"
	case StateExtracting:
		return "Extracting"
	case StateMatching:
		return "Matching"
	case StateAttached:
		return "Attached"
	case StateRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithFS sets the filesystem. The default is the host filesystem.
func WithFS(fs FS) Option {
	return func(s *Session) {
		s.fs = fs
	}
}

// WithSearchPaths sets the directories searched by LocateSymbolFile.
func WithSearchPaths(paths ...string) Option {
	return func(s *Session) {
		s.searchPaths = paths
	}
}

// WithSequence sets the sequence numbering change events.
func WithSequence(seq *Sequence) Option {
	return func(s *Session) {
		s.seq = seq
	}
}

// Session is one debugger session: the images it targets, their symbol
// database and the observers of that database.
type Session struct {
	fs          FS
	logger      zerolog.Logger
	searchPaths []string
	seq         *Sequence

	extractor *Extractor
	resolver  *Resolver
	matcher   *Matcher
	locator   *Locator
	db        *Database

	mu     sync.Mutex
	images map[ImageKey]*Image
}

// NewSession creates a session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		logger: zerolog.Nop(),
		images: make(map[ImageKey]*Image),
	}
	for _, o := range opts {
		o(s)
	}
	if s.fs == nil {
		s.fs = DefaultFS()
	}
	s.logger = s.logger.With().Str("component", "symfile").Logger()
	s.extractor = NewExtractor(s.fs)
	s.resolver = NewResolver(s.fs)
	s.matcher = NewMatcher(s.extractor, s.logger)
	s.locator = NewLocator(s.fs, s.searchPaths)
	s.db = NewDatabase(NewNotifier(s.logger), s.seq)
	return s
}

// Database returns the symbol database of the session.
func (s *Session) Database() *Database {
	return s.db
}

// Subscribe registers an observer for symbol changes.
func (s *Session) Subscribe(o Observer) (unsubscribe func()) {
	return s.db.Notifier().Subscribe(o)
}

// Extractor returns the identifier extractor of the session.
func (s *Session) Extractor() *Extractor {
	return s.extractor
}

// Resolver returns the bundle resolver of the session.
func (s *Session) Resolver() *Resolver {
	return s.resolver
}

// OpenImage targets the binary at p. The identifier is read once; opening
// the same path and arch again returns the same image. An empty arch selects
// the first slice and shares the image opened under that slice's arch. A
// binary without an identifier can be opened but symbol files can never be
// attached to it.
func (s *Session) OpenImage(p, arch string) (*Image, error) {
	p, err := canonicalPath(p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	requested := ImageKey{Path: p, Arch: arch}
	if img, ok := s.images[requested]; ok {
		return img, nil
	}

	id, err := s.extractor.Identifier(p, arch)
	if err != nil && !errors.Is(err, ErrNoIdentifierPresent) {
		return nil, fmt.Errorf("error when opening image %s: %w", p, err)
	}
	if errors.Is(err, ErrNoIdentifierPresent) {
		s.logger.Warn().Str("image", p).Msg("Image has no UUID, symbol files can not be verified")
		id = ArchIdentifier{Arch: arch}
	}

	img := &Image{Path: p, Arch: id.Arch, Identifier: id.Identifier}
	if cached, ok := s.images[img.Key()]; ok {
		img = cached
	} else {
		s.images[img.Key()] = img
	}
	s.images[requested] = img
	return img, nil
}

// Request asks for a symbol file to be attached to an image.
type Request struct {
	Image         *Image
	CandidatePath string
}

// Response describes a successful attach.
type Response struct {
	Image *Image
	// SourcePath is the file the debug information was read from. For
	// bundles it is the file inside the bundle.
	SourcePath string
	// Identifier is the identifier confirmed to be shared.
	Identifier Identifier
	Outcome    AttachOutcome
	Source     *DebugSource
}

func (r *Response) String() string {
	return fmt.Sprintf(msgHasBeenAddedTo, r.SourcePath, r.Image.Path)
}

// AddSymbolFile resolves the candidate path, matches it against the image
// and attaches the first matching symbol file. Rejected attempts return an
// *AttachError and leave the database and observers untouched.
func (s *Session) AddSymbolFile(req Request) (*Response, error) {
	if req.Image == nil {
		return nil, errors.New("no image given")
	}
	img := req.Image
	p := req.CandidatePath
	if cp, err := canonicalPath(p); err == nil {
		p = cp
	}

	log := s.logger.With().Str("image", img.Path).Str("candidate", p).Logger()
	state := StateIdle
	transition := func(to State) {
		log.Debug().Stringer("from", state).Stringer("to", to).Msg("Attach state change")
		state = to
	}
	reject := func(err *AttachError) (*Response, error) {
		transition(StateRejected)
		log.Info().Stringer("kind", err.Kind).Msg(err.Error())
		return nil, err
	}

	transition(StateResolving)
	if p == "" {
		return reject(&AttachError{Kind: KindInvalidPath, Path: p, Image: img.Path, Reason: "empty path"})
	}
	res := s.resolver.Resolve(p)
	if res.Kind == Invalid {
		return reject(&AttachError{Kind: KindInvalidPath, Path: p, Image: img.Path, Reason: res.Reason})
	}

	transition(StateExtracting)
	if img.Identifier.IsZero() {
		return reject(&AttachError{Kind: KindNoIdentifierPresent, Path: p, Image: img.Path})
	}

	transition(StateMatching)
	result, err := s.matcher.Match(img, res)
	if err != nil {
		return reject(&AttachError{Kind: KindNoIdentifierPresent, Path: p, Image: img.Path})
	}
	switch result.Status {
	case Matched:
	case IdentifierMismatch:
		return reject(&AttachError{Kind: KindIdentifierMismatch, Path: p, Image: img.Path, Result: result})
	case InvalidPath:
		return reject(&AttachError{Kind: KindInvalidPath, Path: p, Image: img.Path, Reason: result.Reason, Result: result})
	default:
		return reject(&AttachError{Kind: KindNoCandidateFound, Path: p, Image: img.Path, Result: result})
	}

	src, err := loadDebugSource(s.fs, result.Candidate, result.Match, log)
	if err != nil {
		transition(StateRejected)
		return nil, fmt.Errorf("error when loading symbol file %s: %w", result.Candidate.Path, err)
	}

	outcome, _ := s.db.Attach(img, src)
	transition(StateAttached)
	resp := &Response{
		Image:      img,
		SourcePath: src.Path,
		Identifier: src.Identifier,
		Outcome:    outcome,
		Source:     src,
	}
	log.Info().Stringer("outcome", outcome).Stringer("uuid", src.Identifier).Msg(resp.String())
	return resp, nil
}

// LocateSymbolFile looks for symbol files next to the image and in the
// search paths, and attaches the first one that matches. If none matches the
// error of the last attempt is returned.
func (s *Session) LocateSymbolFile(img *Image) (*Response, error) {
	candidates := s.locator.Candidates(img)
	if len(candidates) == 0 {
		return nil, &AttachError{
			Kind:  KindNoCandidateFound,
			Path:  img.Path + BundleExt,
			Image: img.Path,
		}
	}
	var lastErr error
	for _, c := range candidates {
		resp, err := s.AddSymbolFile(Request{Image: img, CandidatePath: c})
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// canonicalPath returns an absolute, cleaned, slash separated path.
func canonicalPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if !path.IsAbs(filepath.ToSlash(p)) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		p = abs
	}
	return path.Clean(filepath.ToSlash(p)), nil
}

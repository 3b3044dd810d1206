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
	"os"
	"path"
	"strings"
)

// BundleExt is the extension of a debug symbol bundle directory.
const BundleExt = ".dSYM"

// bundleLayout is the fixed path from a bundle root to its DWARF files.
var bundleLayout = []string{"Contents", "Resources", "DWARF"}

// BundleConvention describes the expected layout in diagnostics.
var BundleConvention = "<name>" + BundleExt + "/" + strings.Join(bundleLayout, "/") + "/<name>"

// PathKind classifies a path given as a symbol file.
type PathKind uint8

const (
	// Invalid paths are rejected before any file is read.
	Invalid PathKind = iota
	// FlatFile is a single symbol file.
	FlatFile
	// BundleRoot is a .dSYM directory.
	BundleRoot
	// BundleInternalPath is a file at the conventional place inside a bundle.
	BundleInternalPath
)

func (k PathKind) String() string {
	switch k {
	case FlatFile:
		return "FlatFile"
	case BundleRoot:
		return "BundleRoot"
	case BundleInternalPath:
		return "BundleInternalPath"
	default:
		return "Invalid"
	}
}

// Resolution is the outcome of resolving a path.
type Resolution struct {
	// Path is the path that was resolved.
	Path string
	// Kind is the classification of Path.
	Kind PathKind
	// Candidates are the files to try, in enumeration order.
	Candidates []*Candidate
	// Reason explains an Invalid classification.
	Reason string
}

// Candidate is a file claiming to hold debug information for some image.
// It only lives for one match attempt.
type Candidate struct {
	Path   string
	Format Format
}

// Resolver classifies paths and enumerates the symbol files in bundles.
type Resolver struct {
	fs FS
}

// NewResolver returns a resolver reading from fs.
func NewResolver(fs FS) *Resolver {
	return &Resolver{fs: fs}
}

// Resolve classifies p. Paths are treated as slash separated and should be
// absolute for the host filesystem.
func (r *Resolver) Resolve(p string) *Resolution {
	p = path.Clean(p)
	res := &Resolution{Path: p}

	// The bundle layout is checked before the file system so a misplaced
	// path names the convention even when nothing exists there.
	root, rest, inBundle := splitBundlePath(p)
	if inBundle && rest != "" && !followsBundleLayout(rest) {
		return invalidInternal(res, root)
	}

	fi, err := r.fs.Stat(p)
	if err != nil {
		res.Kind = Invalid
		if errors.Is(err, os.ErrNotExist) {
			res.Reason = "no such file"
		} else {
			res.Reason = err.Error()
		}
		return res
	}

	switch {
	case inBundle && rest == "" && fi.IsDir():
		return r.resolveBundleRoot(res)
	case inBundle && rest != "":
		if fi.IsDir() {
			return invalidInternal(res, root)
		}
		res.Kind = BundleInternalPath
		res.Candidates = []*Candidate{{Path: p, Format: FormatBundle}}
		return res
	case fi.IsDir():
		res.Kind = Invalid
		res.Reason = "is a directory, expected a symbol file or " + BundleConvention
		return res
	default:
		// Includes flat files that happen to be named *.dSYM.
		res.Kind = FlatFile
		res.Candidates = []*Candidate{{Path: p, Format: FormatFlat}}
		return res
	}
}

func (r *Resolver) resolveBundleRoot(res *Resolution) *Resolution {
	res.Kind = BundleRoot
	dir := r.fs.Join(append([]string{res.Path}, bundleLayout...)...)
	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		// A bundle without a DWARF directory has no candidates.
		return res
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		res.Candidates = append(res.Candidates, &Candidate{
			Path:   r.fs.Join(dir, e.Name()),
			Format: FormatBundle,
		})
	}
	return res
}

// followsBundleLayout reports whether rest, the part of a path below a
// bundle root, names a file directly inside Contents/Resources/DWARF.
func followsBundleLayout(rest string) bool {
	parts := strings.Split(rest, "/")
	if len(parts) != len(bundleLayout)+1 {
		return false
	}
	for i, want := range bundleLayout {
		if parts[i] != want {
			return false
		}
	}
	return true
}

func invalidInternal(res *Resolution, root string) *Resolution {
	res.Kind = Invalid
	res.Reason = fmt.Sprintf("path inside bundle '%s' does not follow %s", root, BundleConvention)
	return res
}

// splitBundlePath finds the innermost path element with the bundle
// extension and splits the path there. rest is the part below the bundle
// root, without a leading slash.
func splitBundlePath(p string) (root, rest string, ok bool) {
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if isBundleName(parts[i]) {
			return strings.Join(parts[:i+1], "/"), strings.Join(parts[i+1:], "/"), true
		}
	}
	return "", "", false
}

func isBundleName(name string) bool {
	return len(name) > len(BundleExt) && strings.EqualFold(path.Ext(name), BundleExt)
}

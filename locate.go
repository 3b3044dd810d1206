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
	"encoding/hex"
	"path"
)

// Locator finds symbol files for an image when no path is given.
type Locator struct {
	fs          FS
	searchPaths []string
}

// NewLocator returns a locator looking next to the image and in searchPaths.
func NewLocator(fs FS, searchPaths []string) *Locator {
	return &Locator{fs: fs, searchPaths: searchPaths}
}

// Candidates returns the existing paths that may hold symbols for img, most
// specific first:
//
//	<image dir>/<image>.dSYM
//	<search path>/<image>.dSYM
//	<search path>/<image>.debug
//	<search path>/.build-id/<xx>/<rest>.debug (GNU build IDs only)
func (l *Locator) Candidates(img *Image) []string {
	base := path.Base(img.Path)
	paths := []string{path.Join(path.Dir(img.Path), base+BundleExt)}
	for _, dir := range l.searchPaths {
		paths = append(paths,
			path.Join(dir, base+BundleExt),
			path.Join(dir, base+".debug"),
		)
		if p, ok := buildIDPath(dir, img.Identifier); ok {
			paths = append(paths, p)
		}
	}

	seen := make(map[string]bool, len(paths))
	var ret []string
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		if _, err := l.fs.Stat(p); err == nil {
			ret = append(ret, p)
		}
	}
	return ret
}

// buildIDPath returns the debuginfod style path of a GNU build ID.
func buildIDPath(dir string, id Identifier) (string, bool) {
	if id.Kind() != KindGNUBuildID || id.Len() < 2 {
		return "", false
	}
	h := hex.EncodeToString(id.Bytes())
	return path.Join(dir, ".build-id", h[:2], h[2:]+".debug"), true
}

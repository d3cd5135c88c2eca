// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxPathLength bounds raw path input accepted by the sandbox.
const MaxPathLength = 4096

// ValidatePathString validates raw path input before resolution.
func ValidatePathString(path string, maxLen int) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if strings.IndexByte(path, 0) != -1 {
		return fmt.Errorf("path contains null byte")
	}
	if !utf8.ValidString(path) {
		return fmt.Errorf("path is not valid UTF-8")
	}
	if maxLen > 0 {
		if len(path) > maxLen {
			return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
		}
		if len(filepath.Clean(path)) > maxLen {
			return fmt.Errorf("path exceeds maximum length of %d characters", maxLen)
		}
	}
	return nil
}

// maxSymlinkHops bounds symlink expansion so loops terminate.
const maxSymlinkHops = 255

// Resolve returns the absolute, symlink-resolved form of path. Components are
// walked left to right and each symlink is expanded before a following ".."
// applies, as the kernel does. The path does not need to exist: once a
// component is missing the rest is joined lexically. Resolution failures
// degrade to the lexical absolute path.
func Resolve(path string) string {
	abs := path
	if !filepath.IsAbs(abs) {
		wd, err := os.Getwd()
		if err != nil {
			return filepath.Clean(path)
		}
		abs = wd + string(filepath.Separator) + path
	}
	lexical := filepath.Clean(abs)

	vol := filepath.VolumeName(abs)
	root := vol + string(filepath.Separator)
	resolved := root
	pending := splitComponents(abs[len(vol):])
	hops := 0
	for i := 0; i < len(pending); i++ {
		name := pending[i]
		if name == ".." {
			resolved = filepath.Dir(resolved)
			continue
		}
		next := filepath.Join(resolved, name)
		info, err := os.Lstat(next)
		if err != nil {
			return filepath.Join(append([]string{resolved}, pending[i:]...)...)
		}
		if info.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		hops++
		if hops > maxSymlinkHops {
			return lexical
		}
		target, err := os.Readlink(next)
		if err != nil {
			return lexical
		}
		rest := pending[i+1:]
		if filepath.IsAbs(target) {
			tvol := filepath.VolumeName(target)
			resolved = tvol + string(filepath.Separator)
			target = target[len(tvol):]
		}
		pending = append(splitComponents(target), rest...)
		i = -1
	}
	return resolved
}

// splitComponents splits p on separators, dropping empty and "." parts.
func splitComponents(p string) []string {
	parts := strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	out := parts[:0]
	for _, part := range parts {
		if part != "." {
			out = append(out, part)
		}
	}
	return out
}

// HasPathPrefix returns true when path is within base.
func HasPathPrefix(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && rel != "..")
}

// hasSegmentPrefix reports whether path equals prefix or continues it at a
// separator boundary. Both '/' and '\' count as separators so Windows-style
// prefixes behave the same on every host.
func hasSegmentPrefix(path, prefix string) bool {
	trimmed := strings.TrimRight(prefix, `/\`)
	if trimmed == "" {
		// prefix is a root such as "/"
		return strings.HasPrefix(path, prefix)
	}
	if !strings.HasPrefix(path, trimmed) {
		return false
	}
	if len(path) == len(trimmed) {
		return true
	}
	next := path[len(trimmed)]
	return next == '/' || next == '\\'
}

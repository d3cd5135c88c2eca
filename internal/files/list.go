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

package files

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	apperrors "multimodel/internal/errors"
)

// EntryKind classifies a directory entry.
type EntryKind string

const (
	KindFile      EntryKind = "file"
	KindDirectory EntryKind = "directory"
)

// Entry is one direct child of a listed directory. Size is zero for directories.
type Entry struct {
	Name string    `json:"name"`
	Kind EntryKind `json:"type"`
	Size int64     `json:"size"`
}

// IsHidden reports whether name is a dot-file.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// List returns the direct children of the directory at raw, directories first,
// then case-insensitively by name. Hidden entries are dropped unless showHidden.
func (s *Service) List(ctx context.Context, raw string, showHidden bool) ([]Entry, error) {
	dir, err := s.validate(ctx, raw)
	if err != nil {
		return nil, err
	}

	info, err := s.fs.Stat(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("Directory '%s' does not exist", raw))
		}
		return nil, classify(err,
			fmt.Sprintf("Permission denied reading directory '%s'", raw),
			fmt.Sprintf("listing directory '%s' failed", raw))
	}
	if !info.IsDir() {
		return nil, apperrors.New(apperrors.CodeNotADirectory, fmt.Sprintf("'%s' is not a directory", raw))
	}

	children, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, classify(err,
			fmt.Sprintf("Permission denied reading directory '%s'", raw),
			fmt.Sprintf("listing directory '%s' failed", raw))
	}

	entries := make([]Entry, 0, len(children))
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := child.Name()
		if !showHidden && IsHidden(name) {
			continue
		}
		if len(entries) >= s.limits.MaxDirectoryEntries {
			return nil, apperrors.New(apperrors.CodeUnknown,
				fmt.Sprintf("Directory '%s' has more than %d entries", raw, s.limits.MaxDirectoryEntries))
		}
		entries = append(entries, s.describe(dir, child))
	}

	SortEntries(entries)
	return entries, nil
}

// describe classifies a child, following symlinks. A dangling link is
// reported as a zero-size file.
func (s *Service) describe(dir string, child os.FileInfo) Entry {
	info := child
	if child.Mode()&os.ModeSymlink != 0 {
		target, err := s.fs.Stat(filepath.Join(dir, child.Name()))
		if err != nil {
			return Entry{Name: child.Name(), Kind: KindFile}
		}
		info = target
	}
	if info.IsDir() {
		return Entry{Name: child.Name(), Kind: KindDirectory}
	}
	size := int64(0)
	if info.Mode().IsRegular() {
		size = info.Size()
	}
	return Entry{Name: child.Name(), Kind: KindFile, Size: size}
}

// SortEntries orders entries directories first, then by lower-cased name,
// falling back to the raw name so the order is total.
func SortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if (a.Kind == KindDirectory) != (b.Kind == KindDirectory) {
			return a.Kind == KindDirectory
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}

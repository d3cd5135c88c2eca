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

	apperrors "multimodel/internal/errors"
)

const (
	fileMode os.FileMode = 0o644
	dirMode  os.FileMode = 0o755
)

// Write replaces the contents of the file at raw, creating it if needed.
// With createDirs the missing parent directories are created first.
func (s *Service) Write(ctx context.Context, raw, content string, createDirs bool) error {
	path, err := s.validate(ctx, raw)
	if err != nil {
		return err
	}

	permissionMsg := fmt.Sprintf("Permission denied writing to file '%s'", raw)
	fallbackMsg := fmt.Sprintf("writing to file '%s' failed", raw)

	if info, err := s.fs.Stat(path); err == nil && info.IsDir() {
		return apperrors.New(apperrors.CodeNotAFile, fmt.Sprintf("'%s' is not a file", raw))
	}

	if createDirs {
		if err := s.fs.MkdirAll(filepath.Dir(path), dirMode); err != nil {
			return classify(err, permissionMsg, fallbackMsg)
		}
	}

	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileMode)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return apperrors.New(apperrors.CodeNotFound,
				fmt.Sprintf("Parent directory of '%s' does not exist", raw))
		}
		return classify(err, permissionMsg, fallbackMsg)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return classify(err, permissionMsg, fallbackMsg)
	}
	if err := f.Close(); err != nil {
		return classify(err, permissionMsg, fallbackMsg)
	}
	return nil
}

// MkdirResult reports the outcome of CreateDirectory.
type MkdirResult struct {
	AlreadyExists bool
}

// CreateDirectory creates the directory at raw. An existing directory is not an
// error; an existing non-directory is. With parents, missing ancestors are created.
func (s *Service) CreateDirectory(ctx context.Context, raw string, parents bool) (MkdirResult, error) {
	path, err := s.validate(ctx, raw)
	if err != nil {
		return MkdirResult{}, err
	}

	permissionMsg := fmt.Sprintf("Permission denied creating directory '%s'", raw)
	fallbackMsg := fmt.Sprintf("creating directory '%s' failed", raw)

	info, err := s.fs.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return MkdirResult{AlreadyExists: true}, nil
	case err == nil:
		return MkdirResult{}, apperrors.New(apperrors.CodeNotADirectory,
			fmt.Sprintf("'%s' exists but is not a directory", raw))
	case !stderrors.Is(err, fs.ErrNotExist):
		return MkdirResult{}, classify(err, permissionMsg, fallbackMsg)
	}

	if parents {
		err = s.fs.MkdirAll(path, dirMode)
	} else {
		err = s.fs.Mkdir(path, dirMode)
	}
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return MkdirResult{}, apperrors.New(apperrors.CodeNotFound,
				fmt.Sprintf("Parent directory of '%s' does not exist", raw))
		}
		return MkdirResult{}, classify(err, permissionMsg, fallbackMsg)
	}
	return MkdirResult{}, nil
}

// Delete removes exactly one regular file.
func (s *Service) Delete(ctx context.Context, raw string) error {
	path, err := s.validate(ctx, raw)
	if err != nil {
		return err
	}

	permissionMsg := fmt.Sprintf("Permission denied deleting file '%s'", raw)
	fallbackMsg := fmt.Sprintf("deleting file '%s' failed", raw)

	info, err := s.fs.Stat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("File '%s' does not exist", raw))
		}
		return classify(err, permissionMsg, fallbackMsg)
	}
	if !info.Mode().IsRegular() {
		return apperrors.New(apperrors.CodeNotAFile, fmt.Sprintf("'%s' is not a file", raw))
	}
	if err := s.fs.Remove(path); err != nil {
		return classify(err, permissionMsg, fallbackMsg)
	}
	return nil
}

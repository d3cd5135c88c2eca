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

// Package files implements the sandboxed file operations behind the file tools:
// directory listing, read, write, mkdir, delete and stat.
//
// Every operation validates its path through a paths.Sandbox before touching
// the file system, and all I/O goes through an injected afero.Fs.
package files

import (
	"context"
	stderrors "errors"
	"io/fs"

	"github.com/spf13/afero"

	apperrors "multimodel/internal/errors"
	"multimodel/internal/paths"
)

// Service runs file operations against fs, confined by sandbox.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	fs       afero.Fs
	sandbox  *paths.Sandbox
	limits   Limits
	osBacked bool
}

// NewService creates a Service. A nil fs selects the OS file system and a nil
// sandbox selects paths.DefaultSandbox.
func NewService(fsys afero.Fs, sandbox *paths.Sandbox, limits Limits) *Service {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if sandbox == nil {
		sandbox = paths.DefaultSandbox()
	}
	_, osBacked := fsys.(*afero.OsFs)
	return &Service{
		fs:       fsys,
		sandbox:  sandbox,
		limits:   normalizeLimits(limits),
		osBacked: osBacked,
	}
}

// Sandbox returns the validator guarding this service.
func (s *Service) Sandbox() *paths.Sandbox {
	return s.sandbox
}

// Limits returns the effective limits.
func (s *Service) Limits() Limits {
	return s.limits
}

func (s *Service) validate(ctx context.Context, raw string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.sandbox.Validate(raw)
}

// classify maps an OS-level failure onto a coded error. Errors that already
// carry a code pass through untouched.
func classify(err error, permissionMsg, fallbackMsg string) error {
	if err == nil {
		return nil
	}
	var coded *apperrors.Error
	if stderrors.As(err, &coded) {
		return err
	}
	switch {
	case stderrors.Is(err, fs.ErrPermission):
		return apperrors.Wrap(apperrors.CodePermission, permissionMsg, err)
	case stderrors.Is(err, fs.ErrNotExist):
		return apperrors.Wrap(apperrors.CodeNotFound, fallbackMsg, err)
	default:
		return apperrors.Wrap(apperrors.CodeUnknown, fallbackMsg, err)
	}
}

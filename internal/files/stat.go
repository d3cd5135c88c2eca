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
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// FileInfo describes a path. Timestamps are Unix seconds with a fractional part.
// A missing path has Exists false and every other field zero except the paths.
type FileInfo struct {
	Path         string  `json:"path"`
	AbsolutePath string  `json:"absolute_path"`
	Exists       bool    `json:"exists"`
	IsFile       bool    `json:"is_file"`
	IsDirectory  bool    `json:"is_directory"`
	Size         int64   `json:"size"`
	Modified     float64 `json:"modified"`
	Created      float64 `json:"created"`
	Mode         string  `json:"mode,omitempty"`
	MimeType     string  `json:"mime_type,omitempty"`
}

// Stat describes the path at raw. Absence is reported through Exists.
func (s *Service) Stat(ctx context.Context, raw string) (FileInfo, error) {
	path, err := s.validate(ctx, raw)
	if err != nil {
		return FileInfo{}, err
	}

	result := FileInfo{Path: path, AbsolutePath: path}

	info, err := s.fs.Stat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) || stderrors.Is(err, syscall.ENOTDIR) {
			return result, nil
		}
		return FileInfo{}, classify(err,
			fmt.Sprintf("Permission denied accessing '%s'", raw),
			fmt.Sprintf("getting info for '%s' failed", raw))
	}

	result.Exists = true
	result.IsFile = info.Mode().IsRegular()
	result.IsDirectory = info.IsDir()
	result.Size = info.Size()
	result.Mode = info.Mode().String()
	result.Modified = unixSeconds(info.ModTime())
	result.Created = unixSeconds(s.createdAt(path, info))
	if result.IsFile {
		result.MimeType = s.sniffMime(path)
	}
	return result, nil
}

func (s *Service) createdAt(path string, info os.FileInfo) time.Time {
	if s.osBacked {
		if t, ok := birthTime(path, info); ok {
			return t
		}
	}
	return info.ModTime()
}

func (s *Service) sniffMime(path string) string {
	f, err := s.fs.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	mtype, err := mimetype.DetectReader(f)
	if err != nil || mtype == nil {
		return ""
	}
	return mtype.String()
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

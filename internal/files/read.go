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
	"io"
	"io/fs"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"

	apperrors "multimodel/internal/errors"
)

// Read returns the UTF-8 contents of the regular file at raw.
func (s *Service) Read(ctx context.Context, raw string) (string, error) {
	path, err := s.validate(ctx, raw)
	if err != nil {
		return "", err
	}

	permissionMsg := fmt.Sprintf("Permission denied reading file '%s'", raw)
	fallbackMsg := fmt.Sprintf("reading file '%s' failed", raw)

	info, err := s.fs.Stat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("File '%s' does not exist", raw))
		}
		return "", classify(err, permissionMsg, fallbackMsg)
	}
	if !info.Mode().IsRegular() {
		return "", apperrors.New(apperrors.CodeNotAFile, fmt.Sprintf("'%s' is not a file", raw))
	}
	if info.Size() > s.limits.MaxFileSizeBytes {
		return "", tooLarge(raw, s.limits.MaxFileSizeBytes)
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return "", classify(err, permissionMsg, fallbackMsg)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.limits.MaxFileSizeBytes+1))
	if err != nil {
		return "", classify(err, permissionMsg, fallbackMsg)
	}
	if int64(len(data)) > s.limits.MaxFileSizeBytes {
		return "", tooLarge(raw, s.limits.MaxFileSizeBytes)
	}

	if !utf8.Valid(data) {
		return "", apperrors.Wrap(apperrors.CodeDecode,
			fmt.Sprintf("Cannot read binary file '%s' as text", raw),
			fmt.Errorf("detected charset %s", DetectCharset(data)))
	}
	return string(data), nil
}

// DetectCharset names the most likely character set of data, or "unknown".
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil || result.Charset == "" {
		return "unknown"
	}
	return strings.ToLower(result.Charset)
}

func tooLarge(raw string, limit int64) error {
	return apperrors.New(apperrors.CodeUnknown,
		fmt.Sprintf("File '%s' exceeds the maximum readable size of %d bytes", raw, limit))
}

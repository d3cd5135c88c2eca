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

// Package logging builds the zerolog loggers used by the binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects where and how to log.
type Options struct {
	// Level is a zerolog level name; empty means info.
	Level string
	// Debug forces the debug level.
	Debug bool
	// File, when set, receives the log in append mode.
	File string
	// Console renders human-readable lines instead of JSON.
	Console bool
	// Output is used when File is empty. Nil discards logs.
	Output io.Writer
}

// ParseLevel converts a level name into a zerolog level, defaulting to info.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}

// New builds a logger. The returned closer releases the log file, if any.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	var (
		output io.Writer = io.Discard
		closer io.Closer = nopCloser{}
	)
	switch {
	case opts.File != "":
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("failed to open log file: %w", err)
		}
		output, closer = file, file
	case opts.Output != nil:
		output = opts.Output
	}

	if opts.Console {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339, NoColor: opts.File != ""}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger(), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

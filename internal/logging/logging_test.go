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

package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	if err != nil || level != zerolog.InfoLevel {
		t.Fatalf("expected info default, got %v (%v)", level, err)
	}
	level, err = ParseLevel(" WARN ")
	if err != nil || level != zerolog.WarnLevel {
		t.Fatalf("expected warn, got %v (%v)", level, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWritesJSONToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer.Close()

	logger.Debug().Msg("hidden")
	logger.Info().Str("tool", "read_file").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered, got %q", out)
	}
	if !strings.Contains(out, `"tool":"read_file"`) || !strings.Contains(out, "visible") {
		t.Fatalf("expected JSON info line, got %q", out)
	}
}

func TestNewDebugOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := New(Options{Level: "error", Debug: true, Output: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug().Msg("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatalf("expected debug output, got %q", buf.String())
	}
}

func TestNewLogsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	logger, closer, err := New(Options{File: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info().Msg("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("expected log line in file, got %q", data)
	}
}

func TestNewDiscardsByDefault(t *testing.T) {
	logger, _, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info().Msg("nowhere")
}

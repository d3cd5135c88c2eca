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
	"strings"

	apperrors "multimodel/internal/errors"
)

// MatchMode selects how forbidden prefixes are compared against resolved paths.
type MatchMode string

const (
	// MatchLiteral is a raw string-prefix test: "/etc2" is blocked by "/etc".
	MatchLiteral MatchMode = "literal"
	// MatchSegment only matches at path-separator boundaries.
	MatchSegment MatchMode = "segment"
)

// DefaultForbiddenPrefixes lists the system directories tools may never touch.
var DefaultForbiddenPrefixes = []string{
	"/etc", "/usr", "/bin", "/sbin", "/sys", "/proc", "/dev",
	`C:\Windows`, `C:\Program Files`, `C:\Program Files (x86)`,
}

// ParseMatchMode converts a configuration value into a MatchMode.
// The empty string selects MatchLiteral.
func ParseMatchMode(value string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(value))) {
	case "", MatchLiteral:
		return MatchLiteral, nil
	case MatchSegment:
		return MatchSegment, nil
	default:
		return "", fmt.Errorf("unknown path match mode %q (expected literal or segment)", value)
	}
}

// Sandbox resolves untrusted paths and rejects those under a forbidden prefix.
// It is immutable after construction and safe for concurrent use.
type Sandbox struct {
	forbidden []string
	mode      MatchMode
}

// NewSandbox builds a sandbox. A nil prefix list selects
// DefaultForbiddenPrefixes; an empty non-nil list forbids nothing.
func NewSandbox(forbidden []string, mode MatchMode) *Sandbox {
	if forbidden == nil {
		forbidden = DefaultForbiddenPrefixes
	}
	if mode == "" {
		mode = MatchLiteral
	}
	cleaned := make([]string, 0, len(forbidden))
	for _, prefix := range forbidden {
		if strings.TrimSpace(prefix) == "" {
			continue
		}
		cleaned = append(cleaned, prefix)
	}
	return &Sandbox{forbidden: cleaned, mode: mode}
}

// DefaultSandbox returns a sandbox with the default prefixes and literal matching.
func DefaultSandbox() *Sandbox {
	return NewSandbox(nil, MatchLiteral)
}

// Forbidden returns a copy of the configured prefixes.
func (s *Sandbox) Forbidden() []string {
	return append([]string{}, s.forbidden...)
}

// Mode returns the prefix match mode.
func (s *Sandbox) Mode() MatchMode {
	return s.mode
}

// Validate resolves raw and returns the canonical path, or an access_denied
// error naming the forbidden prefix it falls under.
func (s *Sandbox) Validate(raw string) (string, error) {
	if err := ValidatePathString(raw, MaxPathLength); err != nil {
		return "", apperrors.Wrap(apperrors.CodeAccessDenied, "invalid path", err)
	}

	resolved := Resolve(raw)
	if prefix, ok := s.match(resolved); ok {
		return "", apperrors.New(apperrors.CodeAccessDenied,
			fmt.Sprintf("Access to system path '%s' is not allowed", prefix))
	}
	return resolved, nil
}

func (s *Sandbox) match(resolved string) (string, bool) {
	for _, prefix := range s.forbidden {
		var hit bool
		switch s.mode {
		case MatchSegment:
			hit = hasSegmentPrefix(resolved, prefix)
		default:
			hit = strings.HasPrefix(resolved, prefix)
		}
		if hit {
			return prefix, true
		}
	}
	return "", false
}

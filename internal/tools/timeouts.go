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

package tools

import "time"

// TimeoutConfig bounds how long a single call may run. PerTool wins over
// Default; a zero result leaves the call unbounded.
type TimeoutConfig struct {
	Default time.Duration
	PerTool map[string]time.Duration
}

// DefaultTimeoutConfig gives the weather tools the upstream API budget.
// File tools only touch the sandbox and get a short one.
func DefaultTimeoutConfig() TimeoutConfig {
	perTool := map[string]time.Duration{
		"get_alerts":   30 * time.Second,
		"get_forecast": 45 * time.Second,
	}
	for _, name := range []string{"read_file", "write_file", "list_directory", "create_directory", "delete_file", "get_file_info"} {
		perTool[name] = 20 * time.Second
	}
	return TimeoutConfig{Default: time.Minute, PerTool: perTool}
}

// budget returns the timeout for one call of name.
func (t TimeoutConfig) budget(name string) time.Duration {
	if d, ok := t.PerTool[name]; ok {
		return d
	}
	return t.Default
}

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

import "context"

// HostAPIVersion is the tool API revision this registry accepts. Remote
// proxies and builtin tools both declare it.
const HostAPIVersion = "v1"

// ExecutorFunc runs a tool with decoded JSON arguments.
type ExecutorFunc func(ctx context.Context, args map[string]interface{}) (string, error)

// Tool is anything the registry can publish to the model, the MCP server
// and the HTTP shim.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
	Validate(args map[string]interface{}) error
	Version() string
	CompatibleWith(hostVersion string) bool
}

// ToolPlugin groups tools registered together, such as every tool proxied
// from one remote MCP server.
type ToolPlugin interface {
	Name() string
	Version() string
	Tools() []Tool
}

// verbatimTool marks tools whose successful output is file data and must
// bypass the output filters.
type verbatimTool interface {
	Verbatim() bool
}

// ToolDefinition is the struct-backed Tool used by the builtin file and
// weather tools and by MCP proxies.
type ToolDefinition struct {
	NameValue          string
	DescriptionValue   string
	ParametersValue    map[string]interface{}
	ExecuteFunc        ExecutorFunc
	ValidateFunc       func(args map[string]interface{}) error
	VersionValue       string
	CompatibleWithFunc func(hostVersion string) bool
	// RawOutput skips ANSI/control stripping and truncation on success.
	RawOutput bool
}

func (t *ToolDefinition) Name() string                       { return t.NameValue }
func (t *ToolDefinition) Description() string                { return t.DescriptionValue }
func (t *ToolDefinition) Parameters() map[string]interface{} { return t.ParametersValue }
func (t *ToolDefinition) Version() string                    { return t.VersionValue }
func (t *ToolDefinition) Verbatim() bool                     { return t.RawOutput }

// Execute runs ExecuteFunc; a definition without one yields an empty result.
func (t *ToolDefinition) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	if t.ExecuteFunc == nil {
		return "", nil
	}
	return t.ExecuteFunc(ctx, args)
}

func (t *ToolDefinition) Validate(args map[string]interface{}) error {
	if t.ValidateFunc == nil {
		return nil
	}
	return t.ValidateFunc(args)
}

// CompatibleWith defaults to an exact match on HostAPIVersion.
func (t *ToolDefinition) CompatibleWith(hostVersion string) bool {
	if t.CompatibleWithFunc != nil {
		return t.CompatibleWithFunc(hostVersion)
	}
	return hostVersion == HostAPIVersion
}

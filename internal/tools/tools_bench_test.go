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

import (
	"context"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"multimodel/internal/files"
)

func benchRegistry(b *testing.B) *Registry {
	b.Helper()
	registry := NewRegistry(DefaultOptions())
	if err := RegisterFileTools(registry, files.NewService(nil, nil, files.DefaultLimits())); err != nil {
		b.Fatalf("register failed: %v", err)
	}
	return registry
}

// BenchmarkToolRegistration measures tool registration performance
func BenchmarkToolRegistration(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = benchRegistry(b)
	}
}

// BenchmarkGetPermission measures permission check performance
func BenchmarkGetPermission(b *testing.B) {
	registry := benchRegistry(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = registry.GetPermission("list_directory")
	}
}

// BenchmarkExecuteOpenAIToolCall measures tool execution overhead
func BenchmarkExecuteOpenAIToolCall(b *testing.B) {
	registry := benchRegistry(b)
	dir := b.TempDir()

	toolCall := openai.ToolCall{
		ID:   "test-call",
		Type: openai.ToolTypeFunction,
		Function: openai.FunctionCall{
			Name:      "list_directory",
			Arguments: `{"dir_path": "` + dir + `"}`,
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = registry.ExecuteOpenAIToolCall(context.Background(), toolCall)
	}
}

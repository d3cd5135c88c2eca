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

package main

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"multimodel/internal/chat"
	"multimodel/internal/config"
	"multimodel/internal/tools"
)

type stubClient struct {
	mu       sync.Mutex
	replies  []string
	requests int
}

func (c *stubClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	reply := "ok"
	if c.requests < len(c.replies) {
		reply = c.replies[c.requests]
	}
	c.requests++
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
		}},
	}, nil
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestSession(t *testing.T, cfg *config.Config, replies ...string) *chat.Session {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	opts := cfg.RegistryOptions()
	opts.Policy = tools.Policy{Deny: []string{"delete_file"}, RequireConfirmation: []string{"write_file"}}
	registry := tools.NewRegistry(opts)
	for _, name := range []string{"read_file", "write_file", "delete_file"} {
		if err := registry.RegisterTool(&tools.ToolDefinition{NameValue: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	session, err := chat.NewSessionWithClient(cfg, &stubClient{replies: replies}, registry)
	if err != nil {
		t.Fatalf("NewSessionWithClient failed: %v", err)
	}
	return session
}

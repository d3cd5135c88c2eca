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

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"multimodel/internal/config"
	"multimodel/internal/tools"
	systemprompt "multimodel/system_prompt"
)

// ErrMaxSteps is returned when the model keeps calling tools past the
// configured step budget.
var ErrMaxSteps = errors.New("maximum number of tool steps reached")

// ToolCallHook observes every executed tool call.
type ToolCallHook func(call openai.ToolCall, result *tools.ToolResult)

// Session represents a chat session with context.
//
// Message operations are protected by mu. Whole turns are serialised by
// turnMu, so concurrent Reply calls see a consistent conversation.
type Session struct {
	Client       ChatClient
	Config       *config.Config
	Messages     []openai.ChatCompletionMessage
	ToolRegistry *tools.Registry
	OnToolCall   ToolCallHook

	logger            zerolog.Logger
	turnMu            sync.Mutex
	mu                sync.Mutex
	lastSavedMsgCount int
}

// NewSession creates a chat session backed by an OpenAI-compatible endpoint.
func NewSession(cfg *config.Config, registry *tools.Registry, logger *zerolog.Logger) (*Session, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIURL != "" {
		clientConfig.BaseURL = cfg.APIURL
	}
	sess, err := NewSessionWithClient(cfg, openai.NewClientWithConfig(clientConfig), registry)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		sess.logger = logger.With().Str("component", "chat").Logger()
	}
	return sess, nil
}

// NewSessionWithClient creates a chat session with a provided client.
func NewSessionWithClient(cfg *config.Config, client ChatClient, registry *tools.Registry) (*Session, error) {
	prompt, err := systemprompt.Load()
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = tools.NewRegistry(cfg.RegistryOptions())
	}
	return &Session{
		Client:       client,
		Config:       cfg,
		Messages:     []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: prompt}},
		ToolRegistry: registry,
		logger:       zerolog.Nop(),
	}, nil
}

// AddMessage adds a message to the conversation history
func (s *Session) AddMessage(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, openai.ChatCompletionMessage{
		Role:    role,
		Content: content,
	})
}

// AddAssistantMessage adds an assistant message with optional tool calls.
func (s *Session) AddAssistantMessage(content string, toolCalls []openai.ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	})
}

// AddToolResultMessage appends a tool result message. The model sees the
// same user-facing text a direct caller would.
func (s *Session) AddToolResultMessage(call openai.ToolCall, result *tools.ToolResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content := result.Result
	if content == "" && result.Error != nil {
		content = tools.ErrorMessage(result.Error)
	}

	name := call.Function.Name
	if name == "" {
		name = "unknown_tool"
	}
	s.Messages = append(s.Messages, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    content,
		Name:       name,
		ToolCallID: call.ID,
	})
}

// MessagesSnapshot returns a copy of the current messages.
func (s *Session) MessagesSnapshot() []openai.ChatCompletionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]openai.ChatCompletionMessage, len(s.Messages))
	copy(msgs, s.Messages)
	return msgs
}

func (s *Session) maxSteps() int {
	if s.Config != nil && s.Config.MaxSteps > 0 {
		return s.Config.MaxSteps
	}
	return 15
}

func (s *Session) completionRequest() openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    s.Config.Model,
		Messages: s.MessagesSnapshot(),
		Tools:    s.ToolRegistry.OpenAITools(),
	}
	if s.Config.Temperature != nil {
		req.Temperature = *s.Config.Temperature
	}
	if s.Config.MaxTokens != nil {
		req.MaxTokens = *s.Config.MaxTokens
	}
	return req
}

// GetResponseWithContext sends prompt and runs tool calls until the model
// answers with text or the step budget runs out. One step is one model
// request.
func (s *Session) GetResponseWithContext(ctx context.Context, prompt string) (string, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.AddMessage(openai.ChatMessageRoleUser, prompt)

	for step := 1; step <= s.maxSteps(); step++ {
		resp, err := s.Client.CreateChatCompletion(ctx, s.completionRequest())
		if err != nil {
			return "", &APIError{Operation: "create_completion", Err: err}
		}
		if len(resp.Choices) == 0 {
			return "", &APIError{Operation: "create_completion", Err: errors.New("response has no choices")}
		}

		response := resp.Choices[0].Message
		s.AddAssistantMessage(response.Content, response.ToolCalls)

		if len(response.ToolCalls) == 0 {
			return response.Content, nil
		}

		for _, toolCall := range response.ToolCalls {
			result := s.ToolRegistry.ExecuteOpenAIToolCall(ctx, toolCall)
			s.AddToolResultMessage(toolCall, result)
			if s.OnToolCall != nil {
				s.OnToolCall(toolCall, result)
			}
		}
		s.logger.Debug().Int("step", step).Int("tool_calls", len(response.ToolCalls)).Msg("tool step finished")
	}
	return "", fmt.Errorf("%w (%d)", ErrMaxSteps, s.maxSteps())
}

// GetResponse gets a response using a background context.
func (s *Session) GetResponse(prompt string) (string, error) {
	return s.GetResponseWithContext(context.Background(), prompt)
}

// Reply answers one chat message, keeping the conversation.
func (s *Session) Reply(ctx context.Context, message string) (string, error) {
	return s.GetResponseWithContext(ctx, message)
}

// ClearHistory clears the conversation history. It waits for a running turn
// so a turn never continues on a wiped history.
func (s *Session) ClearHistory() {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	systemMsg := s.Messages[0]
	s.Messages = []openai.ChatCompletionMessage{systemMsg}
	s.lastSavedMsgCount = 0
}

// GetHistory returns the conversation history excluding system message
func (s *Session) GetHistory() []openai.ChatCompletionMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Messages) <= 1 {
		return []openai.ChatCompletionMessage{}
	}
	history := make([]openai.ChatCompletionMessage, len(s.Messages)-1)
	copy(history, s.Messages[1:])
	return history
}

// SaveConversationHistory appends messages not yet saved to the JSONL
// history file.
func (s *Session) SaveConversationHistory(filepath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.Messages[1:]
	if len(history) <= s.lastSavedMsgCount {
		return nil
	}

	file, err := os.OpenFile(filepath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &HistoryError{Operation: "open", Filepath: filepath, Err: err}
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for i := s.lastSavedMsgCount; i < len(history); i++ {
		if err := encoder.Encode(history[i]); err != nil {
			return &HistoryError{Operation: "encode", Filepath: filepath, Err: err}
		}
	}

	s.lastSavedMsgCount = len(history)
	return nil
}

// LoadConversationHistory loads at most maxLines trailing messages from a
// JSONL history file. A missing file is not an error.
func (s *Session) LoadConversationHistory(filepath string, maxLines int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &HistoryError{Operation: "open", Filepath: filepath, Err: err}
	}
	defer file.Close()

	var messages []openai.ChatCompletionMessage
	decoder := json.NewDecoder(file)
	for {
		var msg openai.ChatCompletionMessage
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return &HistoryError{Operation: "decode", Filepath: filepath, Err: err}
		}
		messages = append(messages, msg)
	}

	if maxLines > 0 && len(messages) > maxLines {
		messages = messages[len(messages)-maxLines:]
	}
	messages = dropOrphanToolMessages(messages)

	s.Messages = append(s.Messages, messages...)
	s.lastSavedMsgCount = len(s.Messages) - 1
	return nil
}

// dropOrphanToolMessages removes leading tool results whose assistant call
// was cut off by the line limit; the API rejects them.
func dropOrphanToolMessages(messages []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	for len(messages) > 0 && messages[0].Role == openai.ChatMessageRoleTool {
		messages = messages[1:]
	}
	return messages
}

// PrintHistory writes the conversation history to w.
func (s *Session) PrintHistory(w io.Writer) {
	fmt.Fprintln(w, "--- Conversation History ---")
	for _, msg := range s.MessagesSnapshot() {
		role := "Unknown"
		switch msg.Role {
		case openai.ChatMessageRoleSystem:
			role = "System"
		case openai.ChatMessageRoleUser:
			role = "User"
		case openai.ChatMessageRoleAssistant:
			role = "Assistant"
		case openai.ChatMessageRoleTool:
			role = "Tool"
		}
		fmt.Fprintf(w, "%s: %s\n", role, msg.Content)
	}
	fmt.Fprintln(w, "--- End History ---")
}

// Close is a no-op kept for symmetry with callers that defer it.
func (s *Session) Close() error {
	return nil
}

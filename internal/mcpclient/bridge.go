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

// Package mcpclient proxies tools from external MCP servers into the local registry.
package mcpclient

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"os/exec"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"multimodel/internal/tools"
)

const (
	clientName    = "multimodel"
	clientVersion = "1.0.0"

	defaultTimeout = 60 * time.Second
	nameSeparator  = "__"
)

// ErrRemoteTool marks a result the remote server flagged as an error.
var ErrRemoteTool = errors.New("remote tool error")

// ServerConfig describes one external MCP server. Exactly one of Command or
// Endpoint must be set.
type ServerConfig struct {
	Name           string   `json:"name"`
	Command        string   `json:"command,omitempty"`
	Args           []string `json:"args,omitempty"`
	Endpoint       string   `json:"endpoint,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

// Validate reports configuration mistakes.
func (c ServerConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("mcp server name is required")
	}
	hasCommand := strings.TrimSpace(c.Command) != ""
	hasEndpoint := strings.TrimSpace(c.Endpoint) != ""
	switch {
	case hasCommand && hasEndpoint:
		return fmt.Errorf("mcp server %q: set either command or endpoint, not both", c.Name)
	case !hasCommand && !hasEndpoint:
		return fmt.Errorf("mcp server %q has no target", c.Name)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("mcp server %q: timeout_seconds must be >= 0", c.Name)
	}
	return nil
}

func (c ServerConfig) timeout() time.Duration {
	if c.TimeoutSeconds > 0 {
		return time.Duration(c.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

// transport builds the client transport. The child process lives as long as
// the session, not the start-up context.
func (c ServerConfig) transport() mcp.Transport {
	if c.Command != "" {
		return &mcp.CommandTransport{Command: exec.Command(c.Command, c.Args...)}
	}
	return &mcp.StreamableClientTransport{
		Endpoint:   c.Endpoint,
		HTTPClient: &http.Client{Timeout: c.timeout()},
		MaxRetries: 3,
	}
}

// Bridge holds an open session to one server and exposes its tools as a
// tools.ToolPlugin.
type Bridge struct {
	name    string
	timeout time.Duration
	logger  zerolog.Logger

	mu      sync.Mutex
	session *mcp.ClientSession
	tools   []tools.Tool
}

// Connect opens a session using the configured command or endpoint and
// lists the remote tools.
func Connect(ctx context.Context, cfg ServerConfig, logger *zerolog.Logger) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return ConnectTransport(ctx, cfg.Name, cfg.transport(), cfg.timeout(), logger)
}

// ConnectTransport is Connect over an already built transport.
func ConnectTransport(ctx context.Context, name string, transport mcp.Transport, timeout time.Duration, logger *zerolog.Logger) (*Bridge, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	b := &Bridge{name: name, timeout: timeout, logger: zerolog.Nop()}
	if logger != nil {
		b.logger = logger.With().Str("mcp_server", name).Logger()
	}

	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect MCP server %q: %w", name, err)
	}
	b.session = session

	if err := b.discover(ctx); err != nil {
		_ = session.Close()
		return nil, err
	}
	b.logger.Info().Int("tools", len(b.tools)).Msg("connected MCP server")
	return b, nil
}

func (b *Bridge) discover(ctx context.Context) error {
	seen := make(map[string]struct{})
	var defs []tools.Tool
	for tool, err := range b.session.Tools(ctx, nil) {
		if err != nil {
			return fmt.Errorf("failed to list MCP tools from %s: %w", b.name, err)
		}
		if tool == nil || strings.TrimSpace(tool.Name) == "" {
			continue
		}
		if _, ok := seen[tool.Name]; ok {
			continue
		}
		seen[tool.Name] = struct{}{}

		description := strings.TrimSpace(tool.Description)
		if description == "" && tool.Annotations != nil {
			description = strings.TrimSpace(tool.Annotations.Title)
		}
		defs = append(defs, &tools.ToolDefinition{
			NameValue:        ProxyName(b.name, tool.Name),
			DescriptionValue: fmt.Sprintf("[%s] %s", b.name, description),
			ParametersValue:  schemaToMap(tool.InputSchema),
			ExecuteFunc:      b.call(tool.Name),
			VersionValue:     clientVersion,
		})
	}
	slices.SortFunc(defs, func(a, b tools.Tool) int {
		return cmp.Compare(a.Name(), b.Name())
	})
	b.tools = defs
	return nil
}

// Name returns the configured server name.
func (b *Bridge) Name() string { return b.name }

// Version returns the bridge version.
func (b *Bridge) Version() string { return clientVersion }

// Tools returns the proxied tools.
func (b *Bridge) Tools() []tools.Tool { return b.tools }

// Close ends the session.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	err := b.session.Close()
	b.session = nil
	return err
}

func (b *Bridge) call(remoteName string) tools.ExecutorFunc {
	return func(ctx context.Context, args map[string]interface{}) (string, error) {
		b.mu.Lock()
		session := b.session
		b.mu.Unlock()
		if session == nil {
			return "", fmt.Errorf("MCP server %q is disconnected", b.name)
		}

		callCtx := ctx
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.timeout)
			defer cancel()
		}

		result, err := session.CallTool(callCtx, &mcp.CallToolParams{Name: remoteName, Arguments: args})
		if err != nil {
			return "", fmt.Errorf("MCP call failed for %s on %s: %w", remoteName, b.name, err)
		}
		text := resultText(result)
		if result.IsError {
			return text, fmt.Errorf("%w: %s", ErrRemoteTool, text)
		}
		return text, nil
	}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

const maxProxyNameLen = 64

// ProxyName builds the registry name of a remote tool. Names over the
// limit keep a prefix and end in a hash of the full name, so tools that
// share a long prefix stay distinct.
func ProxyName(server, tool string) string {
	name := unsafeName.ReplaceAllString(server, "_") + nameSeparator + unsafeName.ReplaceAllString(tool, "_")
	if len(name) <= maxProxyNameLen {
		return name
	}
	h := fnv.New32a()
	h.Write([]byte(server + "\x00" + tool))
	suffix := fmt.Sprintf("_%08x", h.Sum32())
	return name[:maxProxyNameLen-len(suffix)] + suffix
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	parts := make([]string, 0, len(result.Content))
	for _, c := range result.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s, %d bytes]", v.MIMEType, len(v.Data)))
		case *mcp.AudioContent:
			parts = append(parts, fmt.Sprintf("[audio %s, %d bytes]", v.MIMEType, len(v.Data)))
		default:
			if encoded, err := json.Marshal(c); err == nil {
				parts = append(parts, string(encoded))
			}
		}
	}
	return strings.Join(parts, "\n")
}

func schemaToMap(schema any) map[string]interface{} {
	switch v := schema.(type) {
	case nil:
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	case map[string]any:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		var out map[string]interface{}
		if err := json.Unmarshal(encoded, &out); err != nil {
			return nil
		}
		return out
	}
}

// ConnectAll connects every configured server. Servers that fail are logged
// and skipped; the caller owns the returned bridges.
func ConnectAll(ctx context.Context, configs []ServerConfig, logger *zerolog.Logger) []*Bridge {
	bridges := make([]*Bridge, 0, len(configs))
	for _, cfg := range configs {
		bridge, err := Connect(ctx, cfg, logger)
		if err != nil {
			if logger != nil {
				logger.Warn().Err(err).Str("mcp_server", cfg.Name).Msg("skipping MCP server")
			}
			continue
		}
		bridges = append(bridges, bridge)
	}
	return bridges
}

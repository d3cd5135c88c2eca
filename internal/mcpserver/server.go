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

// Package mcpserver publishes the tool registry over the Model Context Protocol.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"multimodel/internal/tools"
)

const (
	// ServerName is the implementation name announced to clients.
	ServerName = "file-system"
	// ServerVersion is the implementation version announced to clients.
	ServerVersion = "1.0.0"

	instructions = "File system and weather tools. Paths are checked against a list of forbidden system locations before any access."

	shutdownTimeout = 5 * time.Second
)

// Transport names accepted by Run.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
	TransportHTTP  = "http"
)

// DefaultAddr is where the network transports listen when no address is given.
const DefaultAddr = "localhost:8002"

// ParseTransport normalises a transport name; empty selects SSE.
func ParseTransport(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TransportSSE:
		return TransportSSE, nil
	case TransportStdio:
		return TransportStdio, nil
	case TransportHTTP, "streamable-http", "streamable":
		return TransportHTTP, nil
	default:
		return "", fmt.Errorf("unknown MCP transport %q (want stdio, sse or http)", name)
	}
}

// Server exposes registry tools as MCP tools.
type Server struct {
	registry *tools.Registry
	mcp      *mcp.Server
	logger   zerolog.Logger
}

// New builds an MCP server with every allowed registry tool attached.
func New(registry *tools.Registry, logger *zerolog.Logger) *Server {
	s := &Server{
		registry: registry,
		mcp: mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: ServerVersion},
			&mcp.ServerOptions{Instructions: instructions}),
		logger: zerolog.Nop(),
	}
	if logger != nil {
		s.logger = *logger
	}
	for _, tool := range registry.Tools() {
		if !registry.GetPermission(tool.Name()).Allowed {
			s.logger.Debug().Str("tool", tool.Name()).Msg("tool hidden by policy")
			continue
		}
		s.mcp.AddTool(&mcp.Tool{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Parameters(),
		}, s.handler(tool.Name()))
	}
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

func (s *Server) handler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw []byte
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		res := s.registry.ExecuteJSON(ctx, name, raw)
		if res.Error != nil {
			s.logger.Info().Str("tool", name).Err(res.Error).Msg("tool call failed")
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.Result}},
			IsError: res.Error != nil,
		}, nil
	}
}

// Run serves the chosen transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport, addr string) error {
	transport, err := ParseTransport(transport)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = DefaultAddr
	}
	switch transport {
	case TransportStdio:
		s.logger.Info().Str("transport", transport).Msg("serving MCP")
		return s.mcp.Run(ctx, &mcp.StdioTransport{})
	default:
		return s.serveHTTP(ctx, transport, addr)
	}
}

// Handler returns the HTTP handler for a network transport.
func (s *Server) Handler(transport string) (http.Handler, error) {
	transport, err := ParseTransport(transport)
	if err != nil {
		return nil, err
	}
	getServer := func(*http.Request) *mcp.Server { return s.mcp }
	mux := http.NewServeMux()
	switch transport {
	case TransportSSE:
		mux.Handle("/sse", mcp.NewSSEHandler(getServer, nil))
	case TransportHTTP:
		mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(getServer, nil))
	default:
		return nil, fmt.Errorf("transport %q is not served over HTTP", transport)
	}
	return mux, nil
}

func (s *Server) serveHTTP(ctx context.Context, transport, addr string) error {
	handler, err := s.Handler(transport)
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info().Str("transport", transport).Str("addr", listener.Addr().String()).Msg("serving MCP")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("MCP shutdown failed")
		return err
	}
	return nil
}

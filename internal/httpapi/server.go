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

// Package httpapi is the JSON HTTP shim the browser frontend talks to.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"multimodel/internal/files"
	"multimodel/internal/tools"
)

// DefaultAddr is the shim's listen address.
const DefaultAddr = "127.0.0.1:8003"

const shutdownTimeout = 5 * time.Second

// Agent answers chat messages, keeping its own conversation memory.
type Agent interface {
	Reply(ctx context.Context, message string) (string, error)
	ClearHistory()
}

// Options configures the shim.
type Options struct {
	Addr      string
	RateLimit RateLimitConfig
	Logger    *zerolog.Logger
}

// Server routes HTTP requests to the file service, the tool registry and
// the chat agent.
type Server struct {
	files    *files.Service
	registry *tools.Registry
	agent    Agent
	opts     Options
	logger   zerolog.Logger
	router   *gin.Engine
}

// New builds the shim. agent may be nil, in which case /chat answers 500.
func New(fileService *files.Service, registry *tools.Registry, agent Agent, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	s := &Server{
		files:    fileService,
		registry: registry,
		agent:    agent,
		opts:     opts,
		logger:   zerolog.Nop(),
	}
	if opts.Logger != nil {
		s.logger = opts.Logger.With().Str("component", "http").Logger()
	}
	s.router = s.routes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger(s.logger))
	router.Use(CORS())
	router.Use(RateLimit(s.opts.RateLimit))

	router.GET("/health", s.health)

	fs := router.Group("/fs")
	fs.POST("/list", s.listDirectory)
	fs.POST("/read", s.readFile)
	fs.POST("/write", s.writeFile)
	fs.POST("/mkdir", s.createDirectory)
	fs.POST("/delete", s.deleteFile)
	fs.POST("/stat", s.stat)

	weather := router.Group("/weather")
	weather.POST("/alerts", s.alerts)
	weather.POST("/forecast", s.forecast)

	router.POST("/chat", s.chat)
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("HTTP shim listening")

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
	return srv.Shutdown(shutdownCtx)
}

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

// Package app assembles the file service, the weather client and the tool
// registry shared by the command line programs.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"multimodel/internal/config"
	"multimodel/internal/files"
	"multimodel/internal/mcpclient"
	"multimodel/internal/tools"
	"multimodel/internal/weather"
)

// Options controls how a Runtime is built.
type Options struct {
	// Fs backs the file tools. Nil selects the OS file system.
	Fs afero.Fs
	// Remote connects the mcp_servers listed in the config and registers
	// their tools as proxies.
	Remote bool
	Logger *zerolog.Logger
}

// Runtime holds the services behind the tool registry.
type Runtime struct {
	Config   *config.Config
	Files    *files.Service
	Weather  *weather.Client
	Registry *tools.Registry
	Bridges  []*mcpclient.Bridge

	logger zerolog.Logger
}

// New builds a runtime from cfg. Remote servers that fail to connect are
// skipped; a proxy whose name clashes with a local tool is an error.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	sandbox, err := cfg.Sandbox()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{
		Config:  cfg,
		Files:   files.NewService(opts.Fs, sandbox, cfg.FileLimits()),
		Weather: weather.NewClient(cfg.WeatherConfig(), &logger),
		logger:  logger,
	}

	regOpts := cfg.RegistryOptions()
	regOpts.Logger = &logger
	rt.Registry = tools.NewRegistry(regOpts)
	if err := tools.RegisterFileTools(rt.Registry, rt.Files); err != nil {
		return nil, err
	}
	if err := tools.RegisterWeatherTools(rt.Registry, rt.Weather); err != nil {
		return nil, err
	}

	if opts.Remote && len(cfg.MCPServers) > 0 {
		rt.Bridges = mcpclient.ConnectAll(ctx, cfg.MCPServers, &logger)
		for _, bridge := range rt.Bridges {
			if err := rt.Registry.RegisterPlugin(bridge); err != nil {
				_ = rt.Close()
				return nil, fmt.Errorf("register MCP server %s: %w", bridge.Name(), err)
			}
		}
	}

	for _, w := range cfg.Validate(rt.Registry) {
		logger.Warn().Str("field", w.Field).Msg(w.Message)
	}
	logger.Debug().
		Strs("tools", rt.Registry.GetToolNames()).
		Strs("forbidden_paths", sandbox.Forbidden()).
		Msg("runtime ready")
	return rt, nil
}

// Close disconnects every remote MCP server.
func (r *Runtime) Close() error {
	var firstErr error
	for _, bridge := range r.Bridges {
		if err := bridge.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.Bridges = nil
	return firstErr
}

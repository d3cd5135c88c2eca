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

// Command fsmcp serves the file-system and weather tools over MCP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"multimodel/internal/app"
	"multimodel/internal/config"
	"multimodel/internal/logging"
	"multimodel/internal/mcpserver"
)

var (
	transportFlag = flag.String("transport", "", "MCP transport: stdio, sse or http (default from MCP_TRANSPORT)")
	addrFlag      = flag.String("addr", "", "Listen address for sse/http (default from MCP_HOST and MCP_PORT)")
	debugMode     = flag.Bool("d", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	srvCfg, err := config.LoadServerConfig()
	if err != nil {
		return err
	}
	// stdout carries the stdio transport, so logs always go to stderr.
	logger, closer, err := logging.New(logging.Options{
		Level:   srvCfg.LogLevel,
		Debug:   *debugMode,
		File:    srvCfg.LogFile,
		Console: *debugMode,
		Output:  os.Stderr,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	transport, addr := resolveListen(srvCfg, *transportFlag, *addrFlag)
	if _, err := mcpserver.ParseTransport(transport); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(srvCfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("load %s: %w", srvCfg.ConfigFile, err)
	}
	rt, err := app.New(ctx, cfg, app.Options{Logger: &logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	logServing(logger, transport, addr, rt)
	return mcpserver.New(rt.Registry, &logger).Run(ctx, transport, addr)
}

// resolveListen lets flags override the environment.
func resolveListen(cfg config.ServerConfig, transport, addr string) (string, string) {
	if transport == "" {
		transport = cfg.MCPTransport
	}
	if addr == "" {
		addr = cfg.MCPAddr()
	}
	return transport, addr
}

func logServing(logger zerolog.Logger, transport, addr string, rt *app.Runtime) {
	logger.Info().
		Str("transport", transport).
		Str("addr", addr).
		Int("tools", len(rt.Registry.GetToolNames())).
		Strs("forbidden_paths", rt.Files.Sandbox().Forbidden()).
		Msg("starting file-system MCP server")
}

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

// Command shim exposes the file-system and weather tools, plus the chat
// agent, as a JSON HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"multimodel/internal/app"
	"multimodel/internal/chat"
	"multimodel/internal/config"
	"multimodel/internal/httpapi"
	"multimodel/internal/logging"
)

var debugMode = flag.Bool("d", false, "Enable debug logging")

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

	cfg, err := config.LoadConfig(srvCfg.ConfigFile)
	if err != nil {
		return fmt.Errorf("load %s: %w", srvCfg.ConfigFile, err)
	}
	rt, err := app.New(ctx, cfg, app.Options{Remote: true, Logger: &logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	agent, err := newAgent(cfg, rt, logger)
	if err != nil {
		return err
	}

	rateLimit := httpapi.DefaultRateLimitConfig()
	rateLimit.RequestsPerSecond = srvCfg.RateLimitRPS
	rateLimit.Burst = srvCfg.RateLimitBurst

	server := httpapi.New(rt.Files, rt.Registry, agent, httpapi.Options{
		Addr:      srvCfg.ShimAddr(),
		RateLimit: rateLimit,
		Logger:    &logger,
	})
	return server.Run(ctx)
}

// newAgent returns nil without an API key; /chat then reports the agent as
// not initialized.
func newAgent(cfg *config.Config, rt *app.Runtime, logger zerolog.Logger) (httpapi.Agent, error) {
	session, err := chat.NewSession(cfg, rt.Registry, &logger)
	if errors.Is(err, config.ErrMissingAPIKey) {
		logger.Warn().Msg("no API key configured; /chat is disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

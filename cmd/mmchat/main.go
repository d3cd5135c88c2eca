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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"multimodel/internal/app"
	"multimodel/internal/chat"
	"multimodel/internal/config"
	"multimodel/internal/logging"
)

var (
	debugMode     = flag.Bool("d", false, "Enable debug mode")
	logFile       = flag.String("log-file", "", "Log file path (logs disabled by default)")
	configFile    = flag.String("config", "config.json", "Path to the JSON config file")
	configSchema  = flag.Bool("config-schema", false, "Print the config JSON schema and exit")
	configExample = flag.Bool("config-example", false, "Print an example config and exit")
)

func main() {
	flag.Parse()

	switch {
	case *configSchema:
		fmt.Println(config.SchemaJSON())
		return
	case *configExample:
		fmt.Println(config.ExampleConfigJSON())
		return
	}

	logger, closer, err := initLogger(*debugMode, *logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.Info().Msg("mmchat starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	code := run(ctx, flag.Args(), logger)
	stop()
	_ = closer.Close()
	os.Exit(code)
}

func run(ctx context.Context, args []string, logger zerolog.Logger) int {
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	// "-" reads a single prompt from stdin.
	if len(args) > 0 && args[0] == "-" {
		if err := runBatchMode(ctx, cfg, logger); err != nil {
			logger.Error().Err(err).Msg("Batch mode failed")
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	if err := runREPL(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Chat failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func initLogger(debug bool, logFilePath string) (zerolog.Logger, io.Closer, error) {
	return logging.New(logging.Options{Debug: debug, File: logFilePath})
}

// newAgent wires the local tools, the configured MCP servers and a chat
// session. The caller closes the runtime.
func newAgent(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*chat.Session, *app.Runtime, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, nil, missingKeyError(err)
	}
	rt, err := app.New(ctx, cfg, app.Options{Remote: true, Logger: &logger})
	if err != nil {
		return nil, nil, err
	}
	session, err := chat.NewSession(cfg, rt.Registry, &logger)
	if err != nil {
		_ = rt.Close()
		return nil, nil, err
	}
	return session, rt, nil
}

func missingKeyError(err error) error {
	if errors.Is(err, config.ErrMissingAPIKey) {
		return fmt.Errorf("%w\nCreate a config.json with api_key or export GOOGLE_API_KEY=your_api_key_here", err)
	}
	return err
}

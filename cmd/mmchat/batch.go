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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"multimodel/internal/chat"
	"multimodel/internal/config"
)

func runBatchMode(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Debug().Msg("Running in batch mode")

	session, rt, err := newAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	return runBatch(ctx, session, cfg, os.Stdin, os.Stdout, logger)
}

// runBatch answers the first line of in, keeping the conversation in the
// configured history file between runs.
func runBatch(ctx context.Context, session *chat.Session, cfg *config.Config, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	if cfg.HistoryFile != "" {
		if err := session.LoadConversationHistory(cfg.HistoryFile, cfg.HistoryMaxMessages); err != nil {
			logger.Warn().Err(err).Msg("Failed to load conversation history")
		} else if n := len(session.GetHistory()); n > 0 {
			logger.Debug().Int("messages", n).Msg("Loaded conversation history")
		}
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		input := scanner.Text()
		logger.Info().Str("user_input", input).Msg("User input received")

		start := time.Now()
		response, err := session.GetResponseWithContext(ctx, input)
		duration := time.Since(start)
		if err != nil {
			logger.Error().Err(err).Dur("duration_ms", duration).Msg("Error getting response")
			return fmt.Errorf("failed to get response: %w", err)
		}

		logger.Info().
			Str("model_response", response).
			Dur("duration_ms", duration).
			Msg("AI response received")
		fmt.Fprintln(out, response)

		if cfg.HistoryFile != "" {
			if err := session.SaveConversationHistory(cfg.HistoryFile); err != nil {
				logger.Warn().Err(err).Msg("Failed to save conversation history")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

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
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"multimodel/internal/chat"
	"multimodel/internal/config"
	"multimodel/internal/tools"
)

func runREPL(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Debug().Msg("Running in interactive mode")

	session, rt, err := newAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.Registry.SetApprover(newToolApprover())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              "You: ",
		HistoryFile:         cfg.CommandHistoryFile,
		AutoComplete:        getCommandCompleter(),
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		FuncFilterInputRune: filterInterruptRune,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	out := rl.Stdout()
	debug := false
	session.OnToolCall = toolCallPrinter(out, &debug)
	printBanner(out, cfg, rt.Registry)

	// Ctrl-C outside of readline cancels the running turn.
	canceler := &turnCanceler{}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	done := make(chan struct{})
	defer func() {
		signal.Stop(sigCh)
		close(done)
	}()
	go func() {
		for {
			select {
			case <-sigCh:
				canceler.interrupt()
			case <-done:
				return
			}
		}
	}()

	for {
		line, err := rl.Readline()
		switch classifyReadlineError(line, err) {
		case readlineContinue:
			continue
		case readlineExit:
			logger.Info().Msg("Session ended")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(sanitizeInputLine(line))
		if line == "" {
			continue
		}
		logger.Info().Str("user_input", line).Msg("User input received")

		if name, ok := parseCommand(line); ok {
			if handleCommand(name, session, out, logger, &debug) {
				fmt.Fprintln(out, "Ending conversation...")
				logger.Info().Msg("Session ended")
				return nil
			}
			continue
		}

		handleConversation(ctx, line, session, canceler, out, logger)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printBanner(out io.Writer, cfg *config.Config, registry *tools.Registry) {
	fmt.Fprintln(out, "===== Multimodel MCP Chat =====")
	fmt.Fprintf(out, "Connected to: %s\n", cfg.APIURL)
	fmt.Fprintf(out, "Model in use: %s\n", cfg.Model)
	fmt.Fprintf(out, "Tools: %s\n", strings.Join(registry.GetToolNames(), ", "))
	fmt.Fprintln(out, "Type 'help' for examples, 'clear' to reset, 'exit' to quit")
	fmt.Fprintln(out)
}

func handleConversation(ctx context.Context, input string, session *chat.Session, canceler *turnCanceler, out io.Writer, logger zerolog.Logger) {
	turnCtx, end := canceler.begin(ctx)
	defer end()

	start := time.Now()
	response, err := session.GetResponseWithContext(turnCtx, input)
	duration := time.Since(start)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(out, "\n[interrupted]")
			logger.Info().Dur("duration_ms", duration).Msg("Turn interrupted")
			return
		}
		logger.Error().Err(err).Dur("duration_ms", duration).Msg("Error getting response")
		fmt.Fprintf(out, "\nError: %v\n", err)
		return
	}

	logger.Info().
		Str("model_response", response).
		Dur("duration_ms", duration).
		Msg("AI response received")
	fmt.Fprintf(out, "\nAssistant: %s\n\n", response)
}

const toolPreviewChars = 400

// toolCallPrinter reports each tool call. With debug on, the result is shown too.
func toolCallPrinter(out io.Writer, debug *bool) chat.ToolCallHook {
	return func(call openai.ToolCall, result *tools.ToolResult) {
		name := toolCallName(call)
		if result.Error != nil {
			fmt.Fprintf(out, "  ✗ %s: %s\n", name, firstLine(result.Result))
			return
		}
		fmt.Fprintf(out, "  ✓ %s\n", name)
		if *debug {
			preview := result.Result
			if len(preview) > toolPreviewChars {
				preview = preview[:toolPreviewChars] + "…"
			}
			fmt.Fprintf(out, "%s\n", preview)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// getCommandCompleter builds a readline completer from available commands
func getCommandCompleter() *readline.PrefixCompleter {
	commands := getAvailableCommands()
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, cmd := range commands {
		items = append(items, readline.PcItem("/"+cmd.Name))
	}
	return readline.NewPrefixCompleter(items...)
}

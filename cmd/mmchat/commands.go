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
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"

	"multimodel/internal/chat"
	"multimodel/internal/tools"
)

// Command represents a chat command. Bare commands also work without the
// leading slash.
type Command struct {
	Name        string
	Description string
	Bare        bool
}

// getAvailableCommands returns the list of all commands
func getAvailableCommands() []Command {
	return []Command{
		{Name: "help", Description: "Show examples and available commands", Bare: true},
		{Name: "clear", Description: "Clear conversation history", Bare: true},
		{Name: "history", Description: "Display conversation history"},
		{Name: "tools", Description: "Show tools and their permissions"},
		{Name: "debug", Description: "Toggle tool result display"},
		{Name: "quit", Description: "Exit the application", Bare: true},
		{Name: "exit", Description: "Exit the application", Bare: true},
	}
}

// parseCommand recognises "/name" for every command and the bare word for
// commands marked Bare. Matching is case-insensitive.
func parseCommand(line string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(line))
	if strings.HasPrefix(normalized, "/") {
		return strings.TrimSpace(strings.TrimPrefix(normalized, "/")), true
	}
	for _, cmd := range getAvailableCommands() {
		if cmd.Bare && cmd.Name == normalized {
			return cmd.Name, true
		}
	}
	return "", false
}

// handleCommand runs a command and returns true when the chat should end.
func handleCommand(name string, session *chat.Session, out io.Writer, logger zerolog.Logger, debugMode *bool) bool {
	logger.Debug().Str("command", name).Msg("Executing command")

	switch name {
	case "help":
		showHelp(out)
	case "clear":
		session.ClearHistory()
		fmt.Fprintln(out, "✓ Conversation history cleared")
	case "history":
		showHistory(session, out)
	case "tools", "permissions":
		showTools(session.ToolRegistry, out)
	case "debug":
		*debugMode = !*debugMode
		if *debugMode {
			fmt.Fprintln(out, "✓ Debug mode enabled")
		} else {
			fmt.Fprintln(out, "✓ Debug mode disabled")
		}
	case "quit", "exit":
		return true
	default:
		fmt.Fprintf(out, "✗ Unknown command: /%s (type /help for available commands)\n", name)
	}
	return false
}

func showHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable operations:")
	fmt.Fprintln(out, "Weather:")
	fmt.Fprintln(out, "  - Get weather alerts for a state: 'What weather alerts are there for California?'")
	fmt.Fprintln(out, "  - Get forecast for coordinates: 'Forecast for 38.58, -121.49'")
	fmt.Fprintln(out, "File System:")
	fmt.Fprintln(out, "  - Read file contents: 'Read the contents of README.md'")
	fmt.Fprintln(out, "  - Write to files: 'Create a file test.txt with content Hello World'")
	fmt.Fprintln(out, "  - List directory contents: 'Show me the files in the current directory'")
	fmt.Fprintln(out, "  - Create directories, delete files, get file information")

	fmt.Fprintln(out, "\nCommands:")
	for _, cmd := range getAvailableCommands() {
		fmt.Fprintf(out, "  /%-10s - %s\n", cmd.Name, cmd.Description)
	}
	fmt.Fprintln(out)
}

func showHistory(session *chat.Session, out io.Writer) {
	messages := session.GetHistory()
	if len(messages) == 0 {
		fmt.Fprintln(out, "No conversation history")
		return
	}
	session.PrintHistory(out)
}

func showTools(registry *tools.Registry, out io.Writer) {
	names := registry.GetToolNames()
	if len(names) == 0 {
		fmt.Fprintln(out, "No tools available")
		return
	}

	w := tabwriter.NewWriter(out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "Tool\tPermission")
	fmt.Fprintln(w, "────\t──────────")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\n", name, permissionLabel(registry.GetPermission(name)))
	}
	w.Flush()
	fmt.Fprintln(out)
}

func permissionLabel(perm tools.Permission) string {
	switch {
	case !perm.Allowed:
		return "denied"
	case perm.RequireConfirmation:
		return "confirm"
	default:
		return "allowed"
	}
}

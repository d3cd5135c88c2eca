// Package systemprompt holds the assistant's built-in instructions.
package systemprompt

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

//go:embed *.txt
var sections embed.FS

var errNoSections = errors.New("system prompt: no sections embedded")

// Load joins the prompt sections in file-name order, one blank line
// between sections. The numeric prefixes on the file names set the order.
func Load() (string, error) {
	names, err := fs.Glob(sections, "*.txt")
	if err != nil {
		return "", fmt.Errorf("system prompt: %w", err)
	}
	if len(names) == 0 {
		return "", errNoSections
	}

	parts := make([]string, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(sections, name)
		if err != nil {
			return "", fmt.Errorf("system prompt section %s: %w", name, err)
		}
		text := string(data)
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

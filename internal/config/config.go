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

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"multimodel/internal/files"
	"multimodel/internal/mcpclient"
	"multimodel/internal/paths"
	"multimodel/internal/tools"
	"multimodel/internal/weather"
)

const (
	defaultModel    = "gpt-4o-mini"
	defaultAPIURL   = "https://api.openai.com/v1"
	geminiModel     = "gemini-2.5-pro"
	geminiAPIURL    = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultMaxSteps = 15
)

// ErrMissingAPIKey is returned by RequireAPIKey when no key is configured.
var ErrMissingAPIKey = errors.New("API key is required (set api_key in config.json or OPENAI_API_KEY/GOOGLE_API_KEY)")

// Config represents the application configuration
type Config struct {
	APIKey             string                   `json:"api_key"`
	APIURL             string                   `json:"api_url,omitempty"`
	Model              string                   `json:"model"`
	Temperature        *float32                 `json:"temperature,omitempty"`
	MaxTokens          *int                     `json:"max_tokens,omitempty"`
	MaxSteps           int                      `json:"max_steps,omitempty"`
	Tools              ToolSettings             `json:"tools,omitempty"`
	ToolLimits         ToolLimits               `json:"tool_limits,omitempty"`
	ToolRateLimits     ToolRateLimits           `json:"tool_rate_limits,omitempty"`
	ToolTimeouts       ToolTimeouts             `json:"tool_timeouts,omitempty"`
	ToolOutputFilters  ToolOutputFilters        `json:"tool_output_filters,omitempty"`
	ForbiddenPaths     []string                 `json:"forbidden_paths,omitempty"`
	PathMatch          string                   `json:"path_match,omitempty"`
	Weather            WeatherSettings          `json:"weather,omitempty"`
	MCPServers         []mcpclient.ServerConfig `json:"mcp_servers,omitempty"`
	HistoryFile        string                   `json:"history_file,omitempty"`
	CommandHistoryFile string                   `json:"command_history_file,omitempty"`
	HistoryMaxMessages int                      `json:"history_max_messages,omitempty"`
}

// ToolSettings describes tool allow/deny/confirmation lists. A missing
// allow list allows every registered tool.
type ToolSettings struct {
	Allow               []string `json:"allow,omitempty"`
	Deny                []string `json:"deny,omitempty"`
	RequireConfirmation []string `json:"require_confirmation,omitempty"`
}

// ToolLimits caps what file tools may read or list.
type ToolLimits struct {
	MaxFileSizeBytes    int64 `json:"max_file_size_bytes,omitempty"`
	MaxDirectoryEntries int   `json:"max_directory_entries,omitempty"`
}

// ToolRateLimits configures tool rate limits and cooldowns.
type ToolRateLimits struct {
	DefaultPerMinute int            `json:"default_per_minute,omitempty"`
	PerTool          map[string]int `json:"per_tool,omitempty"`
	CooldownSeconds  map[string]int `json:"cooldown_seconds,omitempty"`
}

// ToolTimeouts configures tool execution timeouts.
type ToolTimeouts struct {
	DefaultSeconds int            `json:"default_seconds,omitempty"`
	PerToolSeconds map[string]int `json:"per_tool_seconds,omitempty"`
}

// ToolOutputFilters configures output sanitization for tool results.
type ToolOutputFilters struct {
	MaxChars     int  `json:"max_chars,omitempty"`
	StripANSI    bool `json:"strip_ansi,omitempty"`
	StripControl bool `json:"strip_control,omitempty"`
}

// WeatherSettings points the weather tools at an NWS-compatible API.
type WeatherSettings struct {
	BaseURL           string  `json:"base_url,omitempty"`
	UserAgent         string  `json:"user_agent,omitempty"`
	TimeoutSeconds    int     `json:"timeout_seconds,omitempty"`
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	limits := files.DefaultLimits()
	rateLimits := tools.DefaultRateLimitConfig()
	timeouts := tools.DefaultTimeoutConfig()
	filters := tools.DefaultOutputFilterConfig()

	perMinute := make(map[string]int, len(rateLimits.PerTool))
	for name, n := range rateLimits.PerTool {
		perMinute[name] = n
	}
	perToolSeconds := make(map[string]int, len(timeouts.PerTool))
	for name, d := range timeouts.PerTool {
		perToolSeconds[name] = int(d.Seconds())
	}

	return &Config{
		Model:    defaultModel,
		APIURL:   defaultAPIURL,
		MaxSteps: defaultMaxSteps,
		ToolLimits: ToolLimits{
			MaxFileSizeBytes:    limits.MaxFileSizeBytes,
			MaxDirectoryEntries: limits.MaxDirectoryEntries,
		},
		ToolRateLimits: ToolRateLimits{
			DefaultPerMinute: rateLimits.DefaultPerMinute,
			PerTool:          perMinute,
		},
		ToolTimeouts: ToolTimeouts{
			DefaultSeconds: int(timeouts.Default.Seconds()),
			PerToolSeconds: perToolSeconds,
		},
		ToolOutputFilters: ToolOutputFilters{
			MaxChars:     filters.MaxChars,
			StripANSI:    filters.StripANSI,
			StripControl: filters.StripControl,
		},
		HistoryFile:        ".multimodel_conversation_history",
		CommandHistoryFile: ".multimodel_history",
		HistoryMaxMessages: 100,
	}
}

// LoadConfig loads configuration from a JSON file and applies env
// overrides. A missing file yields the defaults.
func LoadConfig(filepath string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(filepath); err == nil {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, err
		}
		normalized, err := normalizeConfigJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath, err)
		}
		if err := json.Unmarshal(normalized, config); err != nil {
			return nil, fmt.Errorf("%s: %w", filepath, err)
		}
	}

	// OPENAI_API_KEY wins over GOOGLE_API_KEY.
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		config.APIKey = val
	} else if val := os.Getenv("GOOGLE_API_KEY"); val != "" {
		config.APIKey = val
		if config.APIURL == defaultAPIURL {
			config.APIURL = geminiAPIURL
		}
		if config.Model == defaultModel {
			config.Model = geminiModel
		}
	}

	if val := os.Getenv("OPENAI_API_URL"); val != "" {
		config.APIURL = val
	}

	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.APIURL == "" {
		config.APIURL = defaultAPIURL
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = defaultMaxSteps
	}

	if _, err := paths.ParseMatchMode(config.PathMatch); err != nil {
		return nil, err
	}
	for _, server := range config.MCPServers {
		if err := server.Validate(); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// RequireAPIKey fails when no model API key is configured. Only the agent
// needs one.
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ToolPolicy converts config settings into a tool policy.
func (c *Config) ToolPolicy() tools.Policy {
	policy := tools.Policy{
		Deny:                append([]string(nil), c.Tools.Deny...),
		RequireConfirmation: append([]string(nil), c.Tools.RequireConfirmation...),
	}
	if c.Tools.Allow != nil {
		policy.Allow = append([]string{}, c.Tools.Allow...)
	}
	return policy
}

// FileLimits returns the limits for the file service.
func (c *Config) FileLimits() files.Limits {
	return files.Limits{
		MaxFileSizeBytes:    c.ToolLimits.MaxFileSizeBytes,
		MaxDirectoryEntries: c.ToolLimits.MaxDirectoryEntries,
	}
}

// Sandbox builds the path validator. A missing forbidden_paths list selects
// the built-in system prefixes.
func (c *Config) Sandbox() (*paths.Sandbox, error) {
	mode, err := paths.ParseMatchMode(c.PathMatch)
	if err != nil {
		return nil, err
	}
	var forbidden []string
	if c.ForbiddenPaths != nil {
		forbidden = append([]string{}, c.ForbiddenPaths...)
	}
	return paths.NewSandbox(forbidden, mode), nil
}

// WeatherConfig returns the NWS client settings.
func (c *Config) WeatherConfig() weather.Config {
	cfg := weather.DefaultConfig()
	if c.Weather.BaseURL != "" {
		cfg.BaseURL = c.Weather.BaseURL
	}
	if c.Weather.UserAgent != "" {
		cfg.UserAgent = c.Weather.UserAgent
	}
	if c.Weather.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(c.Weather.TimeoutSeconds) * time.Second
	}
	if c.Weather.RequestsPerSecond > 0 {
		cfg.RequestsPerSecond = c.Weather.RequestsPerSecond
	}
	return cfg
}

// ToolRateLimitsConfig returns rate limiting configuration for tools.
func (c *Config) ToolRateLimitsConfig() tools.RateLimitConfig {
	cooldowns := make(map[string]time.Duration, len(c.ToolRateLimits.CooldownSeconds))
	for name, seconds := range c.ToolRateLimits.CooldownSeconds {
		if seconds <= 0 {
			continue
		}
		cooldowns[name] = time.Duration(seconds) * time.Second
	}
	perTool := make(map[string]int, len(c.ToolRateLimits.PerTool))
	for name, rate := range c.ToolRateLimits.PerTool {
		perTool[name] = rate
	}

	return tools.RateLimitConfig{
		DefaultPerMinute: c.ToolRateLimits.DefaultPerMinute,
		PerTool:          perTool,
		Cooldowns:        cooldowns,
	}
}

// ToolTimeoutsConfig returns timeout configuration for tools.
func (c *Config) ToolTimeoutsConfig() tools.TimeoutConfig {
	perTool := make(map[string]time.Duration, len(c.ToolTimeouts.PerToolSeconds))
	for name, seconds := range c.ToolTimeouts.PerToolSeconds {
		if seconds <= 0 {
			continue
		}
		perTool[name] = time.Duration(seconds) * time.Second
	}

	var defaultTimeout time.Duration
	if c.ToolTimeouts.DefaultSeconds > 0 {
		defaultTimeout = time.Duration(c.ToolTimeouts.DefaultSeconds) * time.Second
	}

	return tools.TimeoutConfig{
		Default: defaultTimeout,
		PerTool: perTool,
	}
}

// ToolOutputFiltersConfig returns output filter configuration for tools.
func (c *Config) ToolOutputFiltersConfig() tools.OutputFilterConfig {
	return tools.OutputFilterConfig{
		MaxChars:     c.ToolOutputFilters.MaxChars,
		StripANSI:    c.ToolOutputFilters.StripANSI,
		StripControl: c.ToolOutputFilters.StripControl,
	}
}

// RegistryOptions gathers every tool setting into registry options.
func (c *Config) RegistryOptions() tools.Options {
	opts := tools.DefaultOptions()
	opts.Policy = c.ToolPolicy()
	opts.RateLimits = c.ToolRateLimitsConfig()
	opts.Timeouts = c.ToolTimeoutsConfig()
	opts.OutputFilters = c.ToolOutputFiltersConfig()
	return opts
}

// ValidationWarning represents a non-fatal configuration issue
type ValidationWarning struct {
	Field   string
	Message string
}

// Validate checks the configuration for common issues and returns warnings
func (c *Config) Validate(registry *tools.Registry) []ValidationWarning {
	var warnings []ValidationWarning

	if c.Temperature != nil {
		temp := *c.Temperature
		if temp < 0 || temp > 2 {
			warnings = append(warnings, ValidationWarning{
				Field:   "temperature",
				Message: fmt.Sprintf("temperature %.2f is outside recommended range [0, 2]", temp),
			})
		}
	}

	if c.MaxTokens != nil {
		tokens := *c.MaxTokens
		if tokens <= 0 {
			warnings = append(warnings, ValidationWarning{
				Field:   "max_tokens",
				Message: fmt.Sprintf("max_tokens %d must be positive", tokens),
			})
		}
		if tokens > 128000 {
			warnings = append(warnings, ValidationWarning{
				Field:   "max_tokens",
				Message: fmt.Sprintf("max_tokens %d exceeds typical model limits", tokens),
			})
		}
	}

	if registry != nil {
		registered := make(map[string]bool)
		for _, name := range registry.GetToolNames() {
			registered[name] = true
		}
		lists := []struct {
			field string
			names []string
		}{
			{"tools.allow", c.Tools.Allow},
			{"tools.deny", c.Tools.Deny},
			{"tools.require_confirmation", c.Tools.RequireConfirmation},
		}
		for _, list := range lists {
			for _, name := range list.names {
				if !registered[name] {
					warnings = append(warnings, ValidationWarning{
						Field:   list.field,
						Message: fmt.Sprintf("tool %q in %s is not registered", name, list.field),
					})
				}
			}
		}
	}

	if c.HistoryMaxMessages <= 0 {
		warnings = append(warnings, ValidationWarning{
			Field:   "history_max_messages",
			Message: fmt.Sprintf("history_max_messages %d should be positive, using default", c.HistoryMaxMessages),
		})
	}

	return warnings
}

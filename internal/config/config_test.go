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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"multimodel/internal/files"
	"multimodel/internal/paths"
	"multimodel/internal/tools"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearModelEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_URL", "")
}

func TestEnvOverridesFile(t *testing.T) {
	clearModelEnv(t)
	path := writeTempConfig(t, `{"api_key":"file-key","model":"gpt-file","api_url":"https://file.example"}`)
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_API_URL", "https://env.example")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("expected env key to override file, got %s", cfg.APIKey)
	}
	if cfg.APIURL != "https://env.example" {
		t.Fatalf("expected env API URL to override file, got %s", cfg.APIURL)
	}
}

func TestMissingAPIKeyOnlyFailsForAgent(t *testing.T) {
	clearModelEnv(t)
	path := writeTempConfig(t, `{}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("servers must load without an API key: %v", err)
	}
	if err := cfg.RequireAPIKey(); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestConfigValidationRejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, `{"api_key":"k","unknown_field":123}`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestConfigValidationRejectsInvalidType(t *testing.T) {
	cases := []string{
		`{"tool_limits":{"max_file_size_bytes":"oops"}}`,
		`{"forbidden_paths":"/etc"}`,
		`{"weather":{"base_url":42}}`,
		`{"mcp_servers":[{"name":"x","args":"not-a-list"}]}`,
		`{"mcp_servers":[{"name":"x","command":"y","colour":"red"}]}`,
		`{"max_steps":"many"}`,
	}
	for _, content := range cases {
		path := writeTempConfig(t, content)
		if _, err := LoadConfig(path); err == nil {
			t.Fatalf("expected error for %s", content)
		}
	}
}

func TestConfigRejectsBadPathMatch(t *testing.T) {
	path := writeTempConfig(t, `{"path_match":"fuzzy"}`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for unknown path_match")
	}
}

func TestConfigRejectsMCPServerWithoutTarget(t *testing.T) {
	path := writeTempConfig(t, `{"mcp_servers":[{"name":"empty"}]}`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for MCP server without command or endpoint")
	}
}

func TestDefaultsApplied(t *testing.T) {
	clearModelEnv(t)
	path := writeTempConfig(t, `{"api_key":"k"}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != defaultModel {
		t.Fatalf("expected default model, got %q", cfg.Model)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.MaxSteps != 15 {
		t.Fatalf("expected max_steps 15, got %d", cfg.MaxSteps)
	}
	limits := files.DefaultLimits()
	if cfg.FileLimits() != limits {
		t.Fatalf("expected default file limits %+v, got %+v", limits, cfg.FileLimits())
	}
	if cfg.ToolRateLimits.PerTool["get_alerts"] == 0 {
		t.Fatal("expected default rate limit for get_alerts")
	}
}

func TestGoogleAPIKeySelectsGemini(t *testing.T) {
	clearModelEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := LoadConfig(writeTempConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "google-key" {
		t.Fatalf("expected google key, got %s", cfg.APIKey)
	}
	if cfg.APIURL != geminiAPIURL {
		t.Fatalf("expected Gemini endpoint, got %s", cfg.APIURL)
	}
	if cfg.Model != "gemini-2.5-pro" {
		t.Fatalf("expected gemini-2.5-pro, got %s", cfg.Model)
	}
}

func TestGoogleAPIKeyKeepsExplicitModel(t *testing.T) {
	clearModelEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := LoadConfig(writeTempConfig(t, `{"model":"gemini-2.5-flash","api_url":"https://proxy.example/v1"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model != "gemini-2.5-flash" || cfg.APIURL != "https://proxy.example/v1" {
		t.Fatalf("explicit settings overwritten: %s %s", cfg.Model, cfg.APIURL)
	}
}

func TestOpenAIKeyTakesPrecedenceOverGoogle(t *testing.T) {
	clearModelEnv(t)
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	cfg, err := LoadConfig(writeTempConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "openai-key" || cfg.APIURL != defaultAPIURL {
		t.Fatalf("expected OpenAI settings, got %s %s", cfg.APIKey, cfg.APIURL)
	}
}

func TestLoadConfigMissingFileReturnsDefault(t *testing.T) {
	clearModelEnv(t)
	t.Setenv("OPENAI_API_KEY", "test-key")
	cfg, err := LoadConfig("/nonexistent/config.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIKey != "test-key" {
		t.Error("expected env API key to be applied even without config file")
	}
	if cfg.HistoryFile == "" || cfg.CommandHistoryFile == "" {
		t.Error("expected default history files")
	}
}

func TestToolPolicy(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy := cfg.ToolPolicy(); policy.Allow != nil {
		t.Fatalf("missing allow list must stay nil, got %v", policy.Allow)
	}

	content := `{
		"tools": {
			"allow": ["read_file"],
			"ask": ["write_file"],
			"deny": ["delete_file"],
			"require_confirmation": ["create_directory"]
		}
	}`
	cfg, err = LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	policy := cfg.ToolPolicy()
	if len(policy.Allow) != 1 || policy.Allow[0] != "read_file" {
		t.Fatalf("unexpected allow list %v", policy.Allow)
	}
	if len(policy.Deny) != 1 || policy.Deny[0] != "delete_file" {
		t.Fatalf("unexpected deny list %v", policy.Deny)
	}
	if len(policy.RequireConfirmation) != 2 {
		t.Fatalf("expected legacy ask list to merge into require_confirmation, got %v", policy.RequireConfirmation)
	}
}

func TestToolRateLimitsAndTimeouts(t *testing.T) {
	content := `{
		"tool_rate_limits": {
			"default_per_minute": 10,
			"per_tool": {"read_file": 2},
			"cooldown_seconds": {"read_file": 7}
		},
		"tool_timeouts": {
			"default_seconds": 3,
			"per_tool_seconds": {"read_file": 9}
		},
		"tool_output_filters": {"max_chars": 1200, "strip_ansi": false}
	}`
	cfg, err := LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := cfg.RegistryOptions()
	if opts.RateLimits.DefaultPerMinute != 10 || opts.RateLimits.PerTool["read_file"] != 2 {
		t.Fatalf("unexpected rate limits %+v", opts.RateLimits)
	}
	if opts.RateLimits.Cooldowns["read_file"] != 7*time.Second {
		t.Fatalf("unexpected cooldown %v", opts.RateLimits.Cooldowns["read_file"])
	}
	if opts.Timeouts.Default != 3*time.Second || opts.Timeouts.PerTool["read_file"] != 9*time.Second {
		t.Fatalf("unexpected timeouts %+v", opts.Timeouts)
	}
	if opts.OutputFilters.MaxChars != 1200 || opts.OutputFilters.StripANSI {
		t.Fatalf("unexpected output filters %+v", opts.OutputFilters)
	}
}

func TestSandboxFromConfig(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, `{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sandbox, err := cfg.Sandbox()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sandbox.Mode() != paths.MatchLiteral || len(sandbox.Forbidden()) != len(paths.DefaultForbiddenPrefixes) {
		t.Fatalf("expected default sandbox, got %v %v", sandbox.Mode(), sandbox.Forbidden())
	}

	cfg, err = LoadConfig(writeTempConfig(t, `{"forbidden_paths":["/srv/secret"],"path_match":"segment"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sandbox, err = cfg.Sandbox()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sandbox.Mode() != paths.MatchSegment {
		t.Fatalf("expected segment mode, got %v", sandbox.Mode())
	}
	if _, err := sandbox.Validate("/srv/secret/key"); err == nil {
		t.Fatal("expected custom prefix to be forbidden")
	}
	if _, err := sandbox.Validate("/srv/secrets"); err != nil {
		t.Fatalf("segment mode should allow siblings: %v", err)
	}
}

func TestWeatherConfig(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, `{"weather":{"base_url":"http://localhost:9999","user_agent":"test/1.0","timeout_seconds":4}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wc := cfg.WeatherConfig()
	if wc.BaseURL != "http://localhost:9999" || wc.UserAgent != "test/1.0" || wc.Timeout != 4*time.Second {
		t.Fatalf("unexpected weather config %+v", wc)
	}
	if wc.RequestsPerSecond <= 0 {
		t.Fatal("expected default request rate")
	}
}

func TestMCPServersParsed(t *testing.T) {
	content := `{"mcp_servers":[
		{"name":"local","command":"fsmcp","args":["-transport","stdio"]},
		{"name":"remote","endpoint":"http://localhost:8002/mcp","timeout_seconds":5}
	]}`
	cfg, err := LoadConfig(writeTempConfig(t, content))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.MCPServers) != 2 {
		t.Fatalf("expected 2 servers, got %d", len(cfg.MCPServers))
	}
	if cfg.MCPServers[0].Command != "fsmcp" || len(cfg.MCPServers[0].Args) != 2 {
		t.Fatalf("unexpected first server %+v", cfg.MCPServers[0])
	}
	if cfg.MCPServers[1].TimeoutSeconds != 5 {
		t.Fatalf("unexpected second server %+v", cfg.MCPServers[1])
	}
}

func TestValidateTemperatureRange(t *testing.T) {
	ptr := func(v float32) *float32 { return &v }
	tests := []struct {
		name          string
		temperature   *float32
		expectWarning bool
	}{
		{"valid temperature", ptr(0.7), false},
		{"temperature too low", ptr(-0.1), true},
		{"temperature too high", ptr(2.5), true},
		{"temperature at upper bound", ptr(2), false},
		{"nil temperature", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Temperature: tt.temperature, HistoryMaxMessages: 1}
			if got := hasWarning(cfg.Validate(nil), "temperature"); got != tt.expectWarning {
				t.Errorf("expected warning=%v, got=%v", tt.expectWarning, got)
			}
		})
	}
}

func TestValidateMaxTokens(t *testing.T) {
	ptr := func(v int) *int { return &v }
	tests := []struct {
		name          string
		maxTokens     *int
		expectWarning bool
	}{
		{"valid max tokens", ptr(2000), false},
		{"zero max tokens", ptr(0), true},
		{"excessive max tokens", ptr(200000), true},
		{"nil max tokens", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{MaxTokens: tt.maxTokens, HistoryMaxMessages: 1}
			if got := hasWarning(cfg.Validate(nil), "max_tokens"); got != tt.expectWarning {
				t.Errorf("expected warning=%v, got=%v", tt.expectWarning, got)
			}
		})
	}
}

func TestValidateUnknownPolicyTools(t *testing.T) {
	registry := tools.NewRegistry(tools.DefaultOptions())
	if err := registry.RegisterTool(&tools.ToolDefinition{NameValue: "read_file"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	cfg := &Config{
		Tools:              ToolSettings{Allow: []string{"read_file", "ghost"}},
		HistoryMaxMessages: 1,
	}
	warnings := cfg.Validate(registry)
	if !hasWarning(warnings, "tools.allow") {
		t.Fatalf("expected warning for unregistered tool, got %+v", warnings)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %+v", warnings)
	}
}

func TestValidateHistoryMaxMessages(t *testing.T) {
	cfg := &Config{HistoryMaxMessages: 0}
	if !hasWarning(cfg.Validate(nil), "history_max_messages") {
		t.Fatal("expected warning for zero history_max_messages")
	}
}

func TestExampleConfigLoads(t *testing.T) {
	clearModelEnv(t)
	cfg, err := LoadConfig(writeTempConfig(t, ExampleConfigJSON()))
	if err != nil {
		t.Fatalf("example config must load: %v", err)
	}
	if cfg.PathMatch != "segment" || len(cfg.MCPServers) != 1 {
		t.Fatalf("unexpected example config %+v", cfg)
	}
}

func hasWarning(warnings []ValidationWarning, field string) bool {
	for _, w := range warnings {
		if w.Field == field {
			return true
		}
	}
	return false
}

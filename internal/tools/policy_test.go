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

package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func echoTool(name string) *ToolDefinition {
	return &ToolDefinition{
		NameValue:        name,
		DescriptionValue: "echo",
		ParametersValue:  map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
		ExecuteFunc: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "ok", nil
		},
	}
}

func TestPolicyDenyBlocksTool(t *testing.T) {
	registry := NewRegistry(Options{Policy: Policy{Deny: []string{"echo"}}})
	if err := registry.RegisterTool(echoTool("echo")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	result := registry.Execute(context.Background(), "echo", nil)
	if !errors.Is(result.Error, ErrToolNotAllowed) {
		t.Fatalf("expected blocked tool, got %v", result.Error)
	}
	if len(registry.OpenAITools()) != 0 {
		t.Fatal("blocked tools must not be offered to the model")
	}

	forced := registry.ExecuteWithOptions(context.Background(), "echo", nil, ExecuteOptions{Force: true})
	if forced.Error != nil || forced.Result != "ok" {
		t.Fatalf("expected forced execution to succeed, got %+v", forced)
	}
}

func TestPolicyAllowListIsExclusive(t *testing.T) {
	registry := NewRegistry(Options{Policy: Policy{Allow: []string{"first"}}})
	for _, name := range []string{"first", "second"} {
		if err := registry.RegisterTool(echoTool(name)); err != nil {
			t.Fatalf("register failed: %v", err)
		}
	}
	if !registry.GetPermission("first").Allowed {
		t.Fatal("expected first to be allowed")
	}
	if registry.GetPermission("second").Allowed {
		t.Fatal("expected second to be blocked")
	}
	registry.SetAllowed("second", true)
	if !registry.GetPermission("second").Allowed {
		t.Fatal("expected SetAllowed to enable second")
	}
}

func TestConfirmationWithoutApproverIsRefused(t *testing.T) {
	registry := NewRegistry(Options{Policy: Policy{RequireConfirmation: []string{"echo"}}})
	if err := registry.RegisterTool(echoTool("echo")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	result := registry.Execute(context.Background(), "echo", nil)
	if !errors.Is(result.Error, ErrToolRequiresConfirmation) {
		t.Fatalf("expected confirmation error, got %v", result.Error)
	}
	if !strings.Contains(result.Result, "requires explicit approval") {
		t.Fatalf("unexpected message %q", result.Result)
	}
}

func TestApproverDecides(t *testing.T) {
	var asked []string
	approve := false
	registry := NewRegistry(Options{
		Policy: Policy{RequireConfirmation: []string{"echo"}},
		Approver: func(ctx context.Context, name string, args map[string]interface{}) (bool, error) {
			asked = append(asked, name)
			return approve, nil
		},
	})
	if err := registry.RegisterTool(echoTool("echo")); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result := registry.Execute(context.Background(), "echo", nil)
	if !errors.Is(result.Error, ErrToolDeniedByUser) {
		t.Fatalf("expected denial, got %v", result.Error)
	}

	approve = true
	result = registry.Execute(context.Background(), "echo", nil)
	if result.Error != nil || result.Result != "ok" {
		t.Fatalf("expected approved run, got %+v", result)
	}
	if len(asked) != 2 {
		t.Fatalf("expected approver to be asked twice, got %d", len(asked))
	}

	registry.SetRequireConfirmation("echo", false)
	registry.Execute(context.Background(), "echo", nil)
	if len(asked) != 2 {
		t.Fatal("approver must not be asked once confirmation is disabled")
	}
}

func TestRateLimitPerTool(t *testing.T) {
	registry := NewRegistry(Options{RateLimits: RateLimitConfig{PerTool: map[string]int{"echo": 1}}})
	if err := registry.RegisterTool(echoTool("echo")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result := registry.Execute(context.Background(), "echo", nil); result.Error != nil {
		t.Fatalf("first call should pass, got %v", result.Error)
	}
	result := registry.Execute(context.Background(), "echo", nil)
	if !errors.Is(result.Error, ErrToolRateLimited) {
		t.Fatalf("expected rate limit error, got %v", result.Error)
	}
}

func TestCooldownPerTool(t *testing.T) {
	registry := NewRegistry(Options{RateLimits: RateLimitConfig{Cooldowns: map[string]time.Duration{"echo": time.Hour}}})
	if err := registry.RegisterTool(echoTool("echo")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	registry.Execute(context.Background(), "echo", nil)
	result := registry.Execute(context.Background(), "echo", nil)
	if !errors.Is(result.Error, ErrToolInCooldown) {
		t.Fatalf("expected cooldown error, got %v", result.Error)
	}
}

func TestTimeoutCancelsSlowTool(t *testing.T) {
	registry := NewRegistry(Options{Timeouts: TimeoutConfig{PerTool: map[string]time.Duration{"slow": 20 * time.Millisecond}}})
	err := registry.RegisterTool(&ToolDefinition{
		NameValue: "slow",
		ExecuteFunc: func(ctx context.Context, args map[string]interface{}) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "too late", nil
			}
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	result := registry.Execute(context.Background(), "slow", nil)
	if !errors.Is(result.Error, ErrToolTimeout) {
		t.Fatalf("expected timeout error, got %v", result.Error)
	}
	if !strings.HasPrefix(result.Result, "Error: ") {
		t.Fatalf("expected error message, got %q", result.Result)
	}
}

func TestOutputIsSanitizedAndTruncated(t *testing.T) {
	registry := NewRegistry(Options{OutputFilters: OutputFilterConfig{MaxChars: 5, StripANSI: true, StripControl: true}})
	err := registry.RegisterTool(&ToolDefinition{
		NameValue: "noisy",
		ExecuteFunc: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "\x1b[31mred\x1b[0m\x07 and more", nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	result := registry.Execute(context.Background(), "noisy", nil)
	if result.Result != "red a"+truncationNotice {
		t.Fatalf("unexpected output %q", result.Result)
	}
}

func TestTimeoutBudgetPrefersPerTool(t *testing.T) {
	cfg := DefaultTimeoutConfig()
	if got := cfg.budget("get_forecast"); got != 45*time.Second {
		t.Fatalf("expected forecast budget 45s, got %s", got)
	}
	if got := cfg.budget("read_file"); got != 20*time.Second {
		t.Fatalf("expected file tool budget 20s, got %s", got)
	}
	if got := cfg.budget("remote__anything"); got != time.Minute {
		t.Fatalf("expected default budget for unknown tool, got %s", got)
	}
	if got := (TimeoutConfig{}).budget("read_file"); got != 0 {
		t.Fatalf("expected empty config to leave calls unbounded, got %s", got)
	}
}

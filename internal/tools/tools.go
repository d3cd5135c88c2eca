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
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// ToolResult represents the result of a tool execution. Result always holds
// a message suitable for the model or the user, including on failure.
type ToolResult struct {
	Function string
	Result   string
	Error    error
}

// Approver is consulted before running a tool that requires confirmation.
type Approver func(ctx context.Context, name string, args map[string]interface{}) (bool, error)

// Options configures a Registry.
type Options struct {
	Policy        Policy
	RateLimits    RateLimitConfig
	Timeouts      TimeoutConfig
	OutputFilters OutputFilterConfig
	Approver      Approver
	Logger        *zerolog.Logger
}

// DefaultOptions returns options with the default policy and limits.
func DefaultOptions() Options {
	return Options{
		RateLimits:    DefaultRateLimitConfig(),
		Timeouts:      DefaultTimeoutConfig(),
		OutputFilters: DefaultOutputFilterConfig(),
	}
}

// ExecuteOptions controls how tool execution is handled.
type ExecuteOptions struct {
	// Force bypasses policy checks and confirmation requirements (use only after explicit user consent).
	Force bool
}

// Registry holds all available tools with their implementations
type Registry struct {
	mu          sync.RWMutex
	tools       map[string]Tool
	permissions map[string]Permission
	limiters    map[string]*toolRateLimiter

	policy        Policy
	rateLimits    RateLimitConfig
	timeouts      TimeoutConfig
	outputFilters OutputFilterConfig
	approver      Approver
	logger        zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Registry{
		tools:         make(map[string]Tool),
		permissions:   make(map[string]Permission),
		limiters:      make(map[string]*toolRateLimiter),
		policy:        opts.Policy,
		rateLimits:    opts.RateLimits,
		timeouts:      opts.Timeouts,
		outputFilters: normalizeOutputFilterConfig(opts.OutputFilters),
		approver:      opts.Approver,
		logger:        logger.With().Str("component", "tools").Logger(),
	}
}

// RegisterTool adds a new tool with its implementation to the registry
func (r *Registry) RegisterTool(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if !tool.CompatibleWith(HostAPIVersion) {
		return fmt.Errorf("%w: %s (version %s) does not support host API %s", ErrToolIncompatible, name, tool.Version(), HostAPIVersion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = tool
	r.permissions[name] = r.policy.permissionFor(name)
	r.limiters[name] = newToolRateLimiter(r.rateLimits.perMinute(name), r.rateLimits.cooldown(name))
	return nil
}

// RegisterPlugin registers every tool of a plugin, stopping at the first failure.
func (r *Registry) RegisterPlugin(plugin ToolPlugin) error {
	for _, tool := range plugin.Tools() {
		if err := r.RegisterTool(tool); err != nil {
			return fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
	}
	return nil
}

// SetApprover installs the confirmation callback.
func (r *Registry) SetApprover(approver Approver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approver = approver
}

// GetToolNames returns the sorted names of all registered tools.
func (r *Registry) GetToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	names := r.GetToolNames()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}
	return out
}

// OpenAITools returns the allowed tools as OpenAI tool definitions.
func (r *Registry) OpenAITools() []openai.Tool {
	tools := r.Tools()
	defs := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		if !r.GetPermission(tool.Name()).Allowed {
			continue
		}
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}

// Execute runs the specified tool with given arguments.
func (r *Registry) Execute(ctx context.Context, function string, args map[string]interface{}) *ToolResult {
	return r.ExecuteWithOptions(ctx, function, args, ExecuteOptions{})
}

// ExecuteWithOptions runs the tool using the provided options.
func (r *Registry) ExecuteWithOptions(ctx context.Context, function string, args map[string]interface{}, opts ExecuteOptions) *ToolResult {
	if ctx == nil {
		ctx = context.Background()
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	result := &ToolResult{Function: function}

	tool, exists := r.getTool(function)
	if !exists {
		result.Error = fmt.Errorf("%w: %s", ErrToolNotFound, function)
		result.Result = fmt.Sprintf("Error: Tool '%s' not found. Available tools: %v", function, r.GetToolNames())
		return result
	}

	if !opts.Force {
		if res := r.checkPermission(ctx, function, args); res != nil {
			return res
		}
	}

	if err := tool.Validate(args); err != nil {
		result.Error = fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		result.Result = fmt.Sprintf("Error: invalid arguments for '%s': %v", function, err)
		return result
	}

	if err := r.getLimiter(function).Allow(); err != nil {
		result.Error = err
		result.Result = fmt.Sprintf("Error: %v", err)
		return result
	}

	execCtx := ctx
	if timeout := r.timeouts.budget(function); timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := tool.Execute(execCtx, args)
	if err != nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s: %v", ErrToolTimeout, r.timeouts.budget(function), err)
	}
	if err != nil && output == "" {
		output = ErrorMessage(err)
	}
	if vt, ok := tool.(verbatimTool); ok && vt.Verbatim() && err == nil {
		result.Result = output
	} else {
		result.Result = r.outputFilters.sanitize(output)
	}
	result.Error = err

	event := r.logger.Debug()
	if err != nil {
		event = r.logger.Warn().Err(err)
	}
	event.Str("tool", function).Dur("duration", time.Since(start)).Msg("tool executed")
	return result
}

func (r *Registry) checkPermission(ctx context.Context, function string, args map[string]interface{}) *ToolResult {
	perm := r.GetPermission(function)
	if !perm.Allowed {
		return &ToolResult{
			Function: function,
			Error:    fmt.Errorf("%w: %s", ErrToolNotAllowed, function),
			Result:   fmt.Sprintf("Tool '%s' is blocked by policy. Enable it to proceed.", function),
		}
	}
	if !perm.RequireConfirmation {
		return nil
	}

	r.mu.RLock()
	approver := r.approver
	r.mu.RUnlock()
	if approver == nil {
		return &ToolResult{
			Function: function,
			Error:    fmt.Errorf("%w: %s", ErrToolRequiresConfirmation, function),
			Result:   fmt.Sprintf("Tool '%s' requires explicit approval before running.", function),
		}
	}
	approved, err := approver(ctx, function, args)
	if err != nil {
		return &ToolResult{
			Function: function,
			Error:    fmt.Errorf("approval for %s failed: %w", function, err),
			Result:   fmt.Sprintf("Error: approval for tool '%s' failed: %v", function, err),
		}
	}
	if !approved {
		return &ToolResult{
			Function: function,
			Error:    fmt.Errorf("%w: %s", ErrToolDeniedByUser, function),
			Result:   fmt.Sprintf("Tool '%s' was not approved by the user.", function),
		}
	}
	return nil
}

// ExecuteOpenAIToolCall executes an OpenAI tool call payload.
func (r *Registry) ExecuteOpenAIToolCall(ctx context.Context, call openai.ToolCall) *ToolResult {
	return r.ExecuteOpenAIToolCallWithOptions(ctx, call, ExecuteOptions{})
}

// ExecuteOpenAIToolCallWithOptions executes a tool call with execution options.
func (r *Registry) ExecuteOpenAIToolCallWithOptions(ctx context.Context, call openai.ToolCall, opts ExecuteOptions) *ToolResult {
	name := call.Function.Name
	if name == "" {
		err := fmt.Errorf("tool call missing function name")
		return &ToolResult{Function: "unknown_tool", Error: err, Result: ErrorMessage(err)}
	}
	args, err := parseToolArgs(call.Function.Arguments)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		return &ToolResult{Function: name, Error: err, Result: ErrorMessage(err)}
	}
	return r.ExecuteWithOptions(ctx, name, args, opts)
}

// ExecuteJSON runs a tool with raw JSON arguments, as delivered by MCP.
func (r *Registry) ExecuteJSON(ctx context.Context, name string, raw json.RawMessage) *ToolResult {
	return r.ExecuteOpenAIToolCall(ctx, openai.ToolCall{
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: string(raw)},
	})
}

// getTool safely retrieves a tool definition.
func (r *Registry) getTool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) getLimiter(name string) *toolRateLimiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}

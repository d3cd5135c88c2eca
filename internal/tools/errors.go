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
	"errors"
	"fmt"

	apperrors "multimodel/internal/errors"
)

// Common tool errors
var (
	// ErrToolNotAllowed indicates a tool is blocked by the current policy.
	ErrToolNotAllowed = errors.New("tool blocked by policy")

	// ErrToolRequiresConfirmation indicates a tool requires confirmation and no approver is available.
	ErrToolRequiresConfirmation = errors.New("tool requires confirmation")

	// ErrToolDeniedByUser indicates the user denied executing a tool.
	ErrToolDeniedByUser = errors.New("tool execution denied by user")

	// ErrToolNotFound indicates the requested tool doesn't exist in the registry.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolIncompatible indicates a tool targets a different host API version.
	ErrToolIncompatible = errors.New("tool incompatible with host")

	// ErrDuplicateTool indicates a tool name is already registered.
	ErrDuplicateTool = errors.New("tool already registered")

	// ErrInvalidArguments indicates tool arguments are invalid or malformed.
	ErrInvalidArguments = errors.New("invalid tool arguments")

	// ErrToolRateLimited indicates a tool call exceeded rate limits.
	ErrToolRateLimited = errors.New("tool rate limit exceeded")

	// ErrToolInCooldown indicates a tool is in a cooldown window.
	ErrToolInCooldown = errors.New("tool is in cooldown")

	// ErrToolTimeout indicates a tool exceeded its execution deadline.
	ErrToolTimeout = errors.New("tool execution timed out")
)

// NewToolExecutionError wraps a tool execution error with a shared error code.
func NewToolExecutionError(toolName, operation string, err error) *apperrors.Error {
	if operation != "" {
		return apperrors.Wrap(apperrors.CodeToolExecution, fmt.Sprintf("tool %s failed during %s", toolName, operation), err)
	}
	return apperrors.Wrap(apperrors.CodeToolExecution, fmt.Sprintf("tool %s failed", toolName), err)
}

// NewPermissionError wraps a permission error with a shared error code.
func NewPermissionError(toolName, reason string) *apperrors.Error {
	return apperrors.New(apperrors.CodePermission, fmt.Sprintf("permission denied for tool %s: %s", toolName, reason))
}

// ErrorMessage renders err the way file and weather tools report failures.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return "Error: " + err.Error()
}

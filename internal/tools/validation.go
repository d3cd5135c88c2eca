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
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationRule checks tool arguments and returns an error if invalid.
type ValidationRule func(args map[string]interface{}) error

var argValidator = newArgValidator()

func newArgValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateToolCall validates a tool call before execution. It returns nil when
// the call may proceed.
func (r *Registry) ValidateToolCall(name, argsJSON string) *ToolResult {
	tool, ok := r.getTool(name)
	if !ok {
		return invalidToolResult(name, fmt.Errorf("%w: tool %q not found", ErrToolNotFound, name))
	}

	args, err := parseToolArgs(argsJSON)
	if err != nil {
		return invalidToolResult(name, fmt.Errorf("%w: %v", ErrInvalidArguments, err))
	}

	if err := tool.Validate(args); err != nil {
		return invalidToolResult(name, fmt.Errorf("%w: %v", ErrInvalidArguments, err))
	}

	return nil
}

func invalidToolResult(name string, err error) *ToolResult {
	return &ToolResult{
		Function: name,
		Result:   fmt.Sprintf("Error: %v", err),
		Error:    err,
	}
}

func parseToolArgs(argsJSON string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	trimmed := strings.TrimSpace(argsJSON)
	if trimmed == "" || trimmed == "null" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// unmarshalAndValidate decodes args into T and applies its validate tags.
// Errors name the offending field by its JSON key.
func unmarshalAndValidate[T any](args map[string]interface{}) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return out, fmt.Errorf("invalid type for '%s': expected %s", typeErr.Field, typeErr.Type)
		}
		return out, fmt.Errorf("decode arguments: %w", err)
	}
	if err := argValidator.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			if fe.Param() != "" {
				return out, fmt.Errorf("invalid value for '%s': must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
			}
			return out, fmt.Errorf("invalid value for '%s': must satisfy %s", fe.Field(), fe.Tag())
		}
		return out, err
	}
	return out, nil
}

// validateArgs adapts unmarshalAndValidate to a ValidationRule.
func validateArgs[T any]() ValidationRule {
	return func(args map[string]interface{}) error {
		_, err := unmarshalAndValidate[T](args)
		return err
	}
}

// ChainValidation runs rules in order until the first error.
func ChainValidation(rules ...ValidationRule) ValidationRule {
	return func(args map[string]interface{}) error {
		for _, rule := range rules {
			if rule == nil {
				continue
			}
			if err := rule(args); err != nil {
				return err
			}
		}
		return nil
	}
}

// normalizePathAlias copies a path given under a common alternate key
// ("path", "file", "filepath") into key when key itself is absent.
func normalizePathAlias(key string) ValidationRule {
	return func(args map[string]interface{}) error {
		if _, ok := args[key]; ok {
			return nil
		}
		for _, alias := range []string{"path", "file", "filepath"} {
			if alias == key {
				continue
			}
			if value, ok := getStringLike(args[alias]); ok {
				args[key] = value
				return nil
			}
		}
		return nil
	}
}

func getStringLike(val interface{}) (string, bool) {
	switch v := val.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
	case map[string]interface{}:
		if nested, ok := getStringLike(v["path"]); ok {
			return nested, true
		}
	}
	return "", false
}

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
	"fmt"
	"sort"
)

// SchemaJSON returns the JSON schema for config.json.
func SchemaJSON() string {
	return configSchemaJSON
}

// ExampleConfigJSON returns a minimal example config derived from the schema.
func ExampleConfigJSON() string {
	return exampleConfigJSON
}

func normalizeConfigJSON(data []byte) ([]byte, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	migrateLegacyConfig(raw)
	if err := validateConfigMap(raw, ""); err != nil {
		return nil, err
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// migrateLegacyConfig folds the older "confirm" and "ask" lists into
// require_confirmation.
func migrateLegacyConfig(raw map[string]interface{}) {
	toolsVal, ok := raw["tools"].(map[string]interface{})
	if !ok {
		return
	}
	merged, _ := toolsVal["require_confirmation"].([]interface{})
	for _, legacy := range []string{"confirm", "ask"} {
		list, ok := toolsVal[legacy].([]interface{})
		if !ok {
			continue
		}
		merged = append(merged, list...)
		delete(toolsVal, legacy)
	}
	if merged != nil {
		toolsVal["require_confirmation"] = merged
	}
}

func validateConfigMap(raw map[string]interface{}, prefix string) error {
	allowed := map[string]func(interface{}) error{
		"api_key": func(v interface{}) error { return validateString(v, prefix+"api_key") },
		"api_url": func(v interface{}) error { return validateString(v, prefix+"api_url") },
		"model":   func(v interface{}) error { return validateString(v, prefix+"model") },
		"temperature": func(v interface{}) error {
			return validateNumber(v, prefix+"temperature")
		},
		"max_tokens": func(v interface{}) error { return validateNumber(v, prefix+"max_tokens") },
		"max_steps":  func(v interface{}) error { return validateNumber(v, prefix+"max_steps") },
		"history_file": func(v interface{}) error {
			return validateString(v, prefix+"history_file")
		},
		"command_history_file": func(v interface{}) error {
			return validateString(v, prefix+"command_history_file")
		},
		"history_max_messages": func(v interface{}) error {
			return validateNumber(v, prefix+"history_max_messages")
		},
		"tools": func(v interface{}) error {
			return validateToolsConfig(v, prefix+"tools.")
		},
		"tool_limits": func(v interface{}) error {
			return validateToolLimits(v, prefix+"tool_limits.")
		},
		"forbidden_paths": func(v interface{}) error {
			return validateStringArray(v, prefix+"forbidden_paths")
		},
		"path_match": func(v interface{}) error { return validateString(v, prefix+"path_match") },
		"weather": func(v interface{}) error {
			return validateWeather(v, prefix+"weather.")
		},
		"mcp_servers": func(v interface{}) error {
			return validateMCPServers(v, prefix+"mcp_servers")
		},
		"tool_rate_limits": func(v interface{}) error {
			return validateToolRateLimits(v, prefix+"tool_rate_limits.")
		},
		"tool_timeouts": func(v interface{}) error {
			return validateToolTimeouts(v, prefix+"tool_timeouts.")
		},
		"tool_output_filters": func(v interface{}) error {
			return validateToolOutputFilters(v, prefix+"tool_output_filters.")
		},
	}

	for key, value := range raw {
		validator, ok := allowed[key]
		if !ok {
			return fmt.Errorf("unknown configuration field %q", key)
		}
		if err := validator(value); err != nil {
			return err
		}
	}

	return nil
}

func validateToolsConfig(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stools must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"allow":                func(v interface{}) error { return validateStringArray(v, prefix+"allow") },
		"deny":                 func(v interface{}) error { return validateStringArray(v, prefix+"deny") },
		"require_confirmation": func(v interface{}) error { return validateStringArray(v, prefix+"require_confirmation") },
	}
	for key, val := range section {
		validator, ok := allowed[key]
		if !ok {
			return fmt.Errorf("unknown configuration field %q", prefix+key)
		}
		if err := validator(val); err != nil {
			return err
		}
	}
	return nil
}

func validateToolLimits(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_limits must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"max_file_size_bytes":   func(v interface{}) error { return validateNumber(v, prefix+"max_file_size_bytes") },
		"max_directory_entries": func(v interface{}) error { return validateNumber(v, prefix+"max_directory_entries") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolRateLimits(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_rate_limits must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"default_per_minute": func(v interface{}) error { return validateNumber(v, prefix+"default_per_minute") },
		"per_tool":           func(v interface{}) error { return validateStringNumberMap(v, prefix+"per_tool") },
		"cooldown_seconds":   func(v interface{}) error { return validateStringNumberMap(v, prefix+"cooldown_seconds") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolTimeouts(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_timeouts must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"default_seconds":  func(v interface{}) error { return validateNumber(v, prefix+"default_seconds") },
		"per_tool_seconds": func(v interface{}) error { return validateStringNumberMap(v, prefix+"per_tool_seconds") },
	}
	return validateSection(section, allowed, prefix)
}

func validateToolOutputFilters(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%stool_output_filters must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"max_chars":     func(v interface{}) error { return validateNumber(v, prefix+"max_chars") },
		"strip_ansi":    func(v interface{}) error { return validateBool(v, prefix+"strip_ansi") },
		"strip_control": func(v interface{}) error { return validateBool(v, prefix+"strip_control") },
	}
	return validateSection(section, allowed, prefix)
}

func validateWeather(value interface{}, prefix string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%sweather must be an object", prefix)
	}
	allowed := map[string]func(interface{}) error{
		"base_url":            func(v interface{}) error { return validateString(v, prefix+"base_url") },
		"user_agent":          func(v interface{}) error { return validateString(v, prefix+"user_agent") },
		"timeout_seconds":     func(v interface{}) error { return validateNumber(v, prefix+"timeout_seconds") },
		"requests_per_second": func(v interface{}) error { return validateNumber(v, prefix+"requests_per_second") },
	}
	return validateSection(section, allowed, prefix)
}

func validateMCPServers(value interface{}, name string) error {
	list, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("%s must be an array of objects", name)
	}
	for i, item := range list {
		section, ok := item.(map[string]interface{})
		if !ok {
			return fmt.Errorf("%s[%d] must be an object", name, i)
		}
		prefix := fmt.Sprintf("%s[%d].", name, i)
		allowed := map[string]func(interface{}) error{
			"name":            func(v interface{}) error { return validateString(v, prefix+"name") },
			"command":         func(v interface{}) error { return validateString(v, prefix+"command") },
			"args":            func(v interface{}) error { return validateStringArray(v, prefix+"args") },
			"endpoint":        func(v interface{}) error { return validateString(v, prefix+"endpoint") },
			"timeout_seconds": func(v interface{}) error { return validateNumber(v, prefix+"timeout_seconds") },
		}
		if err := validateSection(section, allowed, prefix); err != nil {
			return err
		}
	}
	return nil
}

func validateSection(section map[string]interface{}, allowed map[string]func(interface{}) error, prefix string) error {
	keys := make([]string, 0, len(section))
	for key := range section {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		validator, ok := allowed[key]
		if !ok {
			return fmt.Errorf("unknown configuration field %q", prefix+key)
		}
		if err := validator(section[key]); err != nil {
			return err
		}
	}
	return nil
}

func validateString(value interface{}, name string) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("%s must be a string", name)
	}
	return nil
}

func validateNumber(value interface{}, name string) error {
	if _, ok := value.(float64); !ok {
		return fmt.Errorf("%s must be a number", name)
	}
	return nil
}

func validateBool(value interface{}, name string) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("%s must be a boolean", name)
	}
	return nil
}

func validateStringArray(value interface{}, name string) error {
	list, ok := value.([]interface{})
	if !ok {
		return fmt.Errorf("%s must be an array of strings", name)
	}
	for _, item := range list {
		if _, ok := item.(string); !ok {
			return fmt.Errorf("%s must be an array of strings", name)
		}
	}
	return nil
}

func validateStringNumberMap(value interface{}, name string) error {
	section, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%s must be an object of number values", name)
	}
	for key, entry := range section {
		if _, ok := entry.(float64); !ok {
			return fmt.Errorf("%s.%s must be a number", name, key)
		}
	}
	return nil
}

const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "Multimodel Config",
  "type": "object",
  "properties": {
    "api_key": { "type": "string" },
    "api_url": { "type": "string" },
    "model": { "type": "string" },
    "temperature": { "type": "number" },
    "max_tokens": { "type": "number" },
    "max_steps": { "type": "number" },
    "history_file": { "type": "string" },
    "command_history_file": { "type": "string" },
    "history_max_messages": { "type": "number" },
    "tools": {
      "type": "object",
      "properties": {
        "allow": { "type": "array", "items": { "type": "string" } },
        "deny": { "type": "array", "items": { "type": "string" } },
        "require_confirmation": { "type": "array", "items": { "type": "string" } }
      }
    },
    "tool_limits": {
      "type": "object",
      "properties": {
        "max_file_size_bytes": { "type": "number" },
        "max_directory_entries": { "type": "number" }
      }
    },
    "tool_rate_limits": {
      "type": "object",
      "properties": {
        "default_per_minute": { "type": "number" },
        "per_tool": { "type": "object", "additionalProperties": { "type": "number" } },
        "cooldown_seconds": { "type": "object", "additionalProperties": { "type": "number" } }
      }
    },
    "tool_timeouts": {
      "type": "object",
      "properties": {
        "default_seconds": { "type": "number" },
        "per_tool_seconds": { "type": "object", "additionalProperties": { "type": "number" } }
      }
    },
    "tool_output_filters": {
      "type": "object",
      "properties": {
        "max_chars": { "type": "number" },
        "strip_ansi": { "type": "boolean" },
        "strip_control": { "type": "boolean" }
      }
    },
    "forbidden_paths": { "type": "array", "items": { "type": "string" } },
    "path_match": { "type": "string", "enum": ["literal", "segment"] },
    "weather": {
      "type": "object",
      "properties": {
        "base_url": { "type": "string" },
        "user_agent": { "type": "string" },
        "timeout_seconds": { "type": "number" },
        "requests_per_second": { "type": "number" }
      }
    },
    "mcp_servers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": { "type": "string" },
          "command": { "type": "string" },
          "args": { "type": "array", "items": { "type": "string" } },
          "endpoint": { "type": "string" },
          "timeout_seconds": { "type": "number" }
        }
      }
    }
  }
}`

const exampleConfigJSON = `{
  "api_key": "sk-...",
  "api_url": "https://api.openai.com/v1",
  "model": "gpt-4o-mini",
  "max_steps": 15,
  "path_match": "segment",
  "tools": {
    "require_confirmation": ["write_file", "create_directory", "delete_file"]
  },
  "mcp_servers": [
    { "name": "remote-fs", "endpoint": "http://localhost:8002/mcp" }
  ]
}`

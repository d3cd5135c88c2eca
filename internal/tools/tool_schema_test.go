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
	"strings"
	"testing"
)

type validationFixture struct {
	Name  string `json:"name" validate:"required,min=2,max=5"`
	Mode  string `json:"mode" validate:"oneof=alpha beta"`
	Count int    `json:"count" validate:"min=1"`
}

func TestSchemaParametersForReadFile(t *testing.T) {
	params := mustSchemaParametersFor[readFileArgs]()
	props, ok := params["properties"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected properties map, got %T", params["properties"])
	}
	if _, ok := props["file_path"]; !ok {
		t.Fatalf("expected file_path property, got %v", props)
	}
}

func TestUnmarshalAndValidateWriteFileArgs(t *testing.T) {
	args, err := unmarshalAndValidate[writeFileArgs](map[string]interface{}{
		"file_path":   "example.txt",
		"content":     "hello",
		"create_dirs": true,
	})
	if err != nil {
		t.Fatalf("expected validation success, got %v", err)
	}
	if !args.CreateDirs || args.FilePath != "example.txt" {
		t.Fatalf("unexpected decoded args %+v", args)
	}
}

func TestUnmarshalAndValidateWriteFileArgsMissingPath(t *testing.T) {
	_, err := unmarshalAndValidate[writeFileArgs](map[string]interface{}{
		"content": "hello",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "'file_path'") {
		t.Fatalf("expected file_path error, got %v", err)
	}
}

func TestUnmarshalAndValidateWriteFileArgsTypeMismatch(t *testing.T) {
	_, err := unmarshalAndValidate[writeFileArgs](map[string]interface{}{
		"file_path": 123,
		"content":   "hello",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "'file_path'") {
		t.Fatalf("expected file_path error, got %v", err)
	}
}

func TestUnmarshalAndValidateFixtureRequired(t *testing.T) {
	_, err := unmarshalAndValidate[validationFixture](map[string]interface{}{
		"mode":  "alpha",
		"count": 1,
	})
	if err == nil || !strings.Contains(err.Error(), "'name'") {
		t.Fatalf("expected name error, got %v", err)
	}
}

func TestUnmarshalAndValidateFixtureMinMax(t *testing.T) {
	for _, name := range []string{"a", "toolong"} {
		_, err := unmarshalAndValidate[validationFixture](map[string]interface{}{
			"name":  name,
			"mode":  "alpha",
			"count": 1,
		})
		if err == nil || !strings.Contains(err.Error(), "'name'") {
			t.Fatalf("expected name error for %q, got %v", name, err)
		}
	}
}

func TestUnmarshalAndValidateFixtureOneOf(t *testing.T) {
	_, err := unmarshalAndValidate[validationFixture](map[string]interface{}{
		"name":  "okay",
		"mode":  "gamma",
		"count": 1,
	})
	if err == nil || !strings.Contains(err.Error(), "'mode'") {
		t.Fatalf("expected mode error, got %v", err)
	}
}

func TestUnmarshalAndValidateFixtureMinValue(t *testing.T) {
	_, err := unmarshalAndValidate[validationFixture](map[string]interface{}{
		"name":  "okay",
		"mode":  "alpha",
		"count": 0,
	})
	if err == nil || !strings.Contains(err.Error(), "'count'") {
		t.Fatalf("expected count error, got %v", err)
	}
}

func TestNormalizePathAlias(t *testing.T) {
	args := map[string]interface{}{"filepath": "notes.txt"}
	if err := normalizePathAlias("file_path")(args); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args["file_path"] != "notes.txt" {
		t.Fatalf("expected alias to be copied, got %v", args)
	}

	explicit := map[string]interface{}{"file_path": "a", "path": "b"}
	_ = normalizePathAlias("file_path")(explicit)
	if explicit["file_path"] != "a" {
		t.Fatal("explicit key must win over aliases")
	}
}

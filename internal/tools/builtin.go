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
	"fmt"
	"strings"

	apperrors "multimodel/internal/errors"
	"multimodel/internal/files"
)

const builtinToolVersion = "1.0.0"

// FileService is the file backend used by the file tools.
type FileService interface {
	List(ctx context.Context, path string, showHidden bool) ([]files.Entry, error)
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path, content string, createDirs bool) error
	CreateDirectory(ctx context.Context, path string, parents bool) (files.MkdirResult, error)
	Delete(ctx context.Context, path string) error
	Stat(ctx context.Context, path string) (files.FileInfo, error)
}

// WeatherService renders weather reports. The returned text is meaningful
// even when err is non-nil.
type WeatherService interface {
	AlertsReport(ctx context.Context, state string) (string, error)
	ForecastReport(ctx context.Context, latitude, longitude float64) (string, error)
}

// RegisterFileTools registers read_file, write_file, list_directory,
// create_directory, delete_file and get_file_info.
func RegisterFileTools(r *Registry, svc FileService) error {
	defs := []*ToolDefinition{
		{
			NameValue:        "read_file",
			DescriptionValue: "Read the contents of a file.",
			ParametersValue:  mustSchemaParametersFor[readFileArgs](),
			ExecuteFunc:      readFileTool(svc),
			ValidateFunc:     ChainValidation(normalizePathAlias("file_path"), validateArgs[readFileArgs]()),
			RawOutput:        true,
		},
		{
			NameValue:        "write_file",
			DescriptionValue: "Write content to a file, replacing any existing content.",
			ParametersValue:  mustSchemaParametersFor[writeFileArgs](),
			ExecuteFunc:      writeFileTool(svc),
			ValidateFunc:     ChainValidation(normalizePathAlias("file_path"), validateArgs[writeFileArgs]()),
		},
		{
			NameValue:        "list_directory",
			DescriptionValue: "List contents of a directory.",
			ParametersValue:  mustSchemaParametersFor[listDirectoryArgs](),
			ExecuteFunc:      listDirectoryTool(svc),
			ValidateFunc:     ChainValidation(normalizePathAlias("dir_path"), validateArgs[listDirectoryArgs]()),
		},
		{
			NameValue:        "create_directory",
			DescriptionValue: "Create a new directory.",
			ParametersValue:  mustSchemaParametersFor[createDirectoryArgs](),
			ExecuteFunc:      createDirectoryTool(svc),
			ValidateFunc:     ChainValidation(normalizePathAlias("dir_path"), validateArgs[createDirectoryArgs]()),
		},
		{
			NameValue:        "delete_file",
			DescriptionValue: "Delete a file.",
			ParametersValue:  mustSchemaParametersFor[deleteFileArgs](),
			ExecuteFunc:      deleteFileTool(svc),
			ValidateFunc:     ChainValidation(normalizePathAlias("file_path"), validateArgs[deleteFileArgs]()),
		},
		{
			NameValue:        "get_file_info",
			DescriptionValue: "Get information about a file or directory.",
			ParametersValue:  mustSchemaParametersFor[fileInfoArgs](),
			ExecuteFunc:      fileInfoTool(svc),
			ValidateFunc:     ChainValidation(normalizePathAlias("file_path"), validateArgs[fileInfoArgs]()),
		},
	}
	return registerAll(r, defs)
}

// RegisterWeatherTools registers get_alerts and get_forecast.
func RegisterWeatherTools(r *Registry, svc WeatherService) error {
	defs := []*ToolDefinition{
		{
			NameValue:        "get_alerts",
			DescriptionValue: "Get weather alerts for a US state.",
			ParametersValue:  mustSchemaParametersFor[alertsArgs](),
			ExecuteFunc:      alertsTool(svc),
			ValidateFunc:     validateArgs[alertsArgs](),
		},
		{
			NameValue:        "get_forecast",
			DescriptionValue: "Get weather forecast for a location.",
			ParametersValue:  mustSchemaParametersFor[forecastArgs](),
			ExecuteFunc:      forecastTool(svc),
			ValidateFunc:     validateArgs[forecastArgs](),
		},
	}
	return registerAll(r, defs)
}

func registerAll(r *Registry, defs []*ToolDefinition) error {
	for _, def := range defs {
		def.VersionValue = builtinToolVersion
		if err := r.RegisterTool(def); err != nil {
			return err
		}
	}
	return nil
}

// failure returns the tool-facing message for err together with err.
func failure(err error) (string, error) {
	return ErrorMessage(err), err
}

func readFileTool(svc FileService) ExecutorFunc {
	return func(ctx context.Context, raw map[string]interface{}) (string, error) {
		args, err := unmarshalAndValidate[readFileArgs](raw)
		if err != nil {
			return failure(err)
		}
		content, err := svc.Read(ctx, args.FilePath)
		if err != nil {
			return failure(err)
		}
		return fmt.Sprintf("File '%s' contents:\n%s", args.FilePath, content), nil
	}
}

func writeFileTool(svc FileService) ExecutorFunc {
	return func(ctx context.Context, raw map[string]interface{}) (string, error) {
		args, err := unmarshalAndValidate[writeFileArgs](raw)
		if err != nil {
			return failure(err)
		}
		if err := svc.Write(ctx, args.FilePath, args.Content, args.CreateDirs); err != nil {
			return failure(err)
		}
		return fmt.Sprintf("Successfully wrote to file '%s'", args.FilePath), nil
	}
}

func listDirectoryTool(svc FileService) ExecutorFunc {
	return func(ctx context.Context, raw map[string]interface{}) (string, error) {
		args, err := unmarshalAndValidate[listDirectoryArgs](raw)
		if err != nil {
			return failure(err)
		}
		if strings.TrimSpace(args.DirPath) == "" {
			args.DirPath = "."
		}
		entries, err := svc.List(ctx, args.DirPath, args.ShowHidden)
		if err != nil {
			return failure(err)
		}
		return FormatListing(args.DirPath, entries), nil
	}
}

func createDirectoryTool(svc FileService) ExecutorFunc {
	return func(ctx context.Context, raw map[string]interface{}) (string, error) {
		args, err := unmarshalAndValidate[createDirectoryArgs](raw)
		if err != nil {
			return failure(err)
		}
		parents := true
		if args.CreateParents != nil {
			parents = *args.CreateParents
		}
		res, err := svc.CreateDirectory(ctx, args.DirPath, parents)
		if err != nil {
			return failure(err)
		}
		if res.AlreadyExists {
			return fmt.Sprintf("Directory '%s' already exists", args.DirPath), nil
		}
		return fmt.Sprintf("Successfully created directory '%s'", args.DirPath), nil
	}
}

func deleteFileTool(svc FileService) ExecutorFunc {
	return func(ctx context.Context, raw map[string]interface{}) (string, error) {
		args, err := unmarshalAndValidate[deleteFileArgs](raw)
		if err != nil {
			return failure(err)
		}
		if err := svc.Delete(ctx, args.FilePath); err != nil {
			return failure(err)
		}
		return fmt.Sprintf("Successfully deleted file '%s'", args.FilePath), nil
	}
}

func fileInfoTool(svc FileService) ExecutorFunc {
	return func(ctx context.Context, raw map[string]interface{}) (string, error) {
		args, err := unmarshalAndValidate[fileInfoArgs](raw)
		if err != nil {
			return failure(err)
		}
		info, err := svc.Stat(ctx, args.FilePath)
		if err != nil {
			return failure(err)
		}
		if !info.Exists {
			return failure(apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("Path '%s' does not exist", args.FilePath)))
		}
		body, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return failure(err)
		}
		return fmt.Sprintf("File information for '%s':\n%s", args.FilePath, body), nil
	}
}

func alertsTool(svc WeatherService) ExecutorFunc {
	return func(ctx context.Context, raw map[string]interface{}) (string, error) {
		args, err := unmarshalAndValidate[alertsArgs](raw)
		if err != nil {
			return failure(err)
		}
		return svc.AlertsReport(ctx, args.State)
	}
}

func forecastTool(svc WeatherService) ExecutorFunc {
	return func(ctx context.Context, raw map[string]interface{}) (string, error) {
		args, err := unmarshalAndValidate[forecastArgs](raw)
		if err != nil {
			return failure(err)
		}
		return svc.ForecastReport(ctx, *args.Latitude, *args.Longitude)
	}
}

// FormatListing renders entries the way list_directory reports them.
func FormatListing(dirPath string, entries []files.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contents of directory '%s':\n", dirPath)
	for _, entry := range entries {
		if entry.Kind == files.KindDirectory {
			fmt.Fprintf(&b, "📁 %s/\n", entry.Name)
			continue
		}
		fmt.Fprintf(&b, "📄 %s (%s)\n", entry.Name, formatKB(entry.Size))
	}
	return b.String()
}

// formatKB renders a byte count in kilobytes with one decimal place.
func formatKB(bytes int64) string {
	return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
}

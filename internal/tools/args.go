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

type readFileArgs struct {
	FilePath string `json:"file_path" validate:"required" jsonschema:"description=Path to the file to read"`
}

type writeFileArgs struct {
	FilePath   string `json:"file_path" validate:"required" jsonschema:"description=Path to the file to write"`
	Content    string `json:"content" jsonschema:"description=Content to write to the file"`
	CreateDirs bool   `json:"create_dirs,omitempty" jsonschema:"description=Whether to create parent directories if they don't exist,default=false"`
}

type listDirectoryArgs struct {
	DirPath    string `json:"dir_path,omitempty" jsonschema:"description=Path to the directory to list (defaults to current directory),default=."`
	ShowHidden bool   `json:"show_hidden,omitempty" jsonschema:"description=Whether to show hidden files/directories,default=false"`
}

type createDirectoryArgs struct {
	DirPath       string `json:"dir_path" validate:"required" jsonschema:"description=Path of the directory to create"`
	CreateParents *bool  `json:"create_parents,omitempty" jsonschema:"description=Whether to create parent directories if they don't exist,default=true"`
}

type deleteFileArgs struct {
	FilePath string `json:"file_path" validate:"required" jsonschema:"description=Path to the file to delete"`
}

type fileInfoArgs struct {
	FilePath string `json:"file_path" validate:"required" jsonschema:"description=Path to the file or directory"`
}

type alertsArgs struct {
	State string `json:"state" validate:"required" jsonschema:"description=Two-letter US state code (e.g. CA or NY)"`
}

type forecastArgs struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90" jsonschema:"description=Latitude of the location"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180" jsonschema:"description=Longitude of the location"`
}

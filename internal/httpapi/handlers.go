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

package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "multimodel/internal/errors"
	"multimodel/internal/weather"
)

type listRequest struct {
	Path string `json:"path"`
}

type pathRequest struct {
	Path string `json:"path" binding:"required"`
}

type writeRequest struct {
	Path       string `json:"path" binding:"required"`
	Content    string `json:"content"`
	CreateDirs bool   `json:"createDirs"`
}

type mkdirRequest struct {
	Path          string `json:"path" binding:"required"`
	CreateParents *bool  `json:"createParents"`
}

type alertsRequest struct {
	State string `json:"state" binding:"required"`
}

type forecastRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	Reset   bool   `json:"reset"`
}

func fail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// bind decodes the JSON body, answering 422 on malformed input.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusUnprocessableEntity, err.Error())
		return false
	}
	return true
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps a file operation failure onto an HTTP status.
func statusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodePermission:
		return http.StatusForbidden
	case apperrors.CodeAccessDenied, apperrors.CodeNotADirectory, apperrors.CodeNotAFile:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) listDirectory(c *gin.Context) {
	req := listRequest{Path: "."}
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}
	if req.Path == "" {
		req.Path = "."
	}
	// Dotfiles stay hidden on this endpoint.
	entries, err := s.files.List(c.Request.Context(), req.Path, false)
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) stat(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}
	info, err := s.files.Stat(c.Request.Context(), req.Path)
	if err != nil {
		fail(c, statusFor(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, info)
}

// runTool executes a registry tool and returns its message under key.
// Tool failures are part of the message, as the chat agent would see them.
func (s *Server) runTool(c *gin.Context, name string, args map[string]interface{}, key string) {
	res := s.registry.Execute(c.Request.Context(), name, args)
	if res.Error != nil {
		s.logger.Debug().Str("tool", name).Err(res.Error).Msg("tool returned an error")
	}
	c.JSON(http.StatusOK, gin.H{key: res.Result})
}

func (s *Server) readFile(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}
	s.runTool(c, "read_file", map[string]interface{}{"file_path": req.Path}, "content")
}

func (s *Server) writeFile(c *gin.Context) {
	var req writeRequest
	if !bind(c, &req) {
		return
	}
	s.runTool(c, "write_file", map[string]interface{}{
		"file_path":   req.Path,
		"content":     req.Content,
		"create_dirs": req.CreateDirs,
	}, "message")
}

func (s *Server) createDirectory(c *gin.Context) {
	var req mkdirRequest
	if !bind(c, &req) {
		return
	}
	args := map[string]interface{}{"dir_path": req.Path}
	if req.CreateParents != nil {
		args["create_parents"] = *req.CreateParents
	}
	s.runTool(c, "create_directory", args, "message")
}

func (s *Server) deleteFile(c *gin.Context) {
	var req pathRequest
	if !bind(c, &req) {
		return
	}
	s.runTool(c, "delete_file", map[string]interface{}{"file_path": req.Path}, "message")
}

func (s *Server) alerts(c *gin.Context) {
	var req alertsRequest
	if !bind(c, &req) {
		return
	}
	state, err := weather.NormalizeState(req.State)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.runTool(c, "get_alerts", map[string]interface{}{"state": state}, "raw")
}

func (s *Server) forecast(c *gin.Context) {
	var req forecastRequest
	if !bind(c, &req) {
		return
	}
	s.runTool(c, "get_forecast", map[string]interface{}{
		"latitude":  *req.Latitude,
		"longitude": *req.Longitude,
	}, "raw")
}

func (s *Server) chat(c *gin.Context) {
	if s.agent == nil {
		fail(c, http.StatusInternalServerError, "MCP agent not initialized.")
		return
	}
	var req chatRequest
	if !bind(c, &req) {
		return
	}
	if req.Reset {
		s.agent.ClearHistory()
	}
	reply, err := s.agent.Reply(c.Request.Context(), req.Message)
	if err != nil {
		s.logger.Error().Err(err).Msg("agent failed")
		fail(c, http.StatusInternalServerError, fmt.Sprintf("Agent error: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

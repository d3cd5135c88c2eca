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
	"fmt"
	"net"
	"strconv"

	"github.com/kelseyhightower/envconfig"
)

// ServerConfig holds the process settings of the MCP server and the HTTP
// shim, read from the environment.
type ServerConfig struct {
	ConfigFile     string  `envconfig:"CONFIG_FILE" default:"config.json"`
	ShimHost       string  `envconfig:"SHIM_HOST" default:"127.0.0.1"`
	ShimPort       int     `envconfig:"SHIM_PORT" default:"8003"`
	MCPHost        string  `envconfig:"MCP_HOST" default:"localhost"`
	MCPPort        int     `envconfig:"MCP_PORT" default:"8002"`
	MCPTransport   string  `envconfig:"MCP_TRANSPORT" default:"sse"`
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"40"`
	LogLevel       string  `envconfig:"LOG_LEVEL" default:"info"`
	LogFile        string  `envconfig:"LOG_FILE"`
}

// LoadServerConfig reads ServerConfig from the environment.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("failed to load server config: %w", err)
	}
	if cfg.ShimPort <= 0 || cfg.ShimPort > 65535 {
		return ServerConfig{}, fmt.Errorf("SHIM_PORT %d out of range", cfg.ShimPort)
	}
	if cfg.MCPPort <= 0 || cfg.MCPPort > 65535 {
		return ServerConfig{}, fmt.Errorf("MCP_PORT %d out of range", cfg.MCPPort)
	}
	return cfg, nil
}

// ShimAddr is the shim listen address.
func (c ServerConfig) ShimAddr() string {
	return net.JoinHostPort(c.ShimHost, strconv.Itoa(c.ShimPort))
}

// MCPAddr is the MCP server listen address for network transports.
func (c ServerConfig) MCPAddr() string {
	return net.JoinHostPort(c.MCPHost, strconv.Itoa(c.MCPPort))
}

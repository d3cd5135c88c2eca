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

// Package weather is a small client for the National Weather Service API
// (api.weather.gov) that renders active alerts and forecasts as text reports.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://api.weather.gov"
	DefaultUserAgent = "weather-app/1.0"
	geoJSON          = "application/geo+json"
)

var (
	// ErrInvalidState indicates a state code that is not two letters.
	ErrInvalidState = errors.New("state must be a 2-letter US code, e.g. CA")
	// ErrUnavailable indicates the NWS API could not be reached or answered with an error.
	ErrUnavailable = errors.New("weather service unavailable")
)

// Config configures the NWS client.
type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RetryMax          int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RequestsPerSecond float64
}

// DefaultConfig returns the production NWS settings.
func DefaultConfig() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		UserAgent:         DefaultUserAgent,
		Timeout:           30 * time.Second,
		RetryMax:          3,
		RetryWaitMin:      time.Second,
		RetryWaitMax:      10 * time.Second,
		RequestsPerSecond: 5,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = def.BaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = def.UserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = def.RetryWaitMin
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		c.RetryWaitMax = c.RetryWaitMin
	}
	return c
}

// Client talks to the NWS API. It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *resty.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient builds a client with a retrying transport and a request rate limit.
func NewClient(cfg Config, logger *zerolog.Logger) *Client {
	cfg = cfg.normalized()
	log := zerolog.Nop()
	if logger != nil {
		log = *logger
	}
	log = log.With().Str("component", "weather").Logger()

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = leveledLogger{log}

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetTimeout(cfg.Timeout).
		SetBaseURL(cfg.BaseURL).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", geoJSON)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{cfg: cfg, http: restyClient, limiter: limiter, logger: log}
}

// get fetches url (absolute or relative to the base URL) and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit: %v", ErrUnavailable, err)
	}
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", url).Msg("nws request failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		c.logger.Debug().Int("status", resp.StatusCode()).Str("url", url).Msg("nws request returned error status")
		return fmt.Errorf("%w: %s returned %s", ErrUnavailable, url, resp.Status())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, url, err)
	}
	return nil
}

// NormalizeState trims and upper-cases a state code and checks it is two letters.
func NormalizeState(state string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(state))
	if len(code) != 2 {
		return "", ErrInvalidState
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidState
		}
	}
	return code, nil
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// leveledLogger routes retryablehttp logging into zerolog at debug level.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

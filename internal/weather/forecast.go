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

package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	pointsUnavailable   = "Unable to fetch forecast data for this location."
	forecastUnavailable = "Unable to fetch detailed forecast."
	maxForecastPeriods  = 5
)

// Period is one forecast period.
type Period struct {
	Name             string `json:"name"`
	Temperature      int    `json:"temperature"`
	TemperatureUnit  string `json:"temperatureUnit"`
	WindSpeed        string `json:"windSpeed"`
	WindDirection    string `json:"windDirection"`
	DetailedForecast string `json:"detailedForecast"`
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []Period `json:"periods"`
	} `json:"properties"`
}

// ForecastError records which of the two NWS lookups failed.
type ForecastError struct {
	Stage string
	Err   error
}

func (e *ForecastError) Error() string {
	return fmt.Sprintf("forecast %s lookup failed: %v", e.Stage, e.Err)
}

func (e *ForecastError) Unwrap() error {
	return e.Err
}

const (
	stagePoints   = "points"
	stageForecast = "forecast"
)

// Forecast resolves the grid forecast for a coordinate and returns its periods.
func (c *Client) Forecast(ctx context.Context, latitude, longitude float64) ([]Period, error) {
	var points pointsResponse
	url := fmt.Sprintf("/points/%s,%s", formatCoordinate(latitude), formatCoordinate(longitude))
	if err := c.get(ctx, url, &points); err != nil {
		return nil, &ForecastError{Stage: stagePoints, Err: err}
	}
	forecastURL := strings.TrimSpace(points.Properties.Forecast)
	if forecastURL == "" {
		return nil, &ForecastError{Stage: stagePoints, Err: fmt.Errorf("%w: no forecast URL for location", ErrUnavailable)}
	}

	var forecast forecastResponse
	if err := c.get(ctx, forecastURL, &forecast); err != nil {
		return nil, &ForecastError{Stage: stageForecast, Err: err}
	}
	return forecast.Properties.Periods, nil
}

// ForecastReport renders the next forecast periods for a coordinate as text.
// On failure the text is a user-facing explanation and err is non-nil.
func (c *Client) ForecastReport(ctx context.Context, latitude, longitude float64) (string, error) {
	periods, err := c.Forecast(ctx, latitude, longitude)
	if err != nil {
		var fe *ForecastError
		if errors.As(err, &fe) && fe.Stage == stageForecast {
			return forecastUnavailable, err
		}
		return pointsUnavailable, err
	}
	return FormatPeriods(periods), nil
}

// FormatPeriods renders at most five periods separated by "---" lines.
func FormatPeriods(periods []Period) string {
	if len(periods) > maxForecastPeriods {
		periods = periods[:maxForecastPeriods]
	}
	blocks := make([]string, 0, len(periods))
	for _, p := range periods {
		blocks = append(blocks, fmt.Sprintf("%s:\nTemperature: %d°%s\nWind: %s %s\nForecast: %s",
			p.Name, p.Temperature, p.TemperatureUnit, p.WindSpeed, p.WindDirection, p.DetailedForecast))
	}
	return strings.Join(blocks, reportSeparator)
}

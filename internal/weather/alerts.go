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
	alertsUnavailable = "Unable to fetch alerts or no alerts found."
	noActiveAlerts    = "No active alerts for this state."
	reportSeparator   = "\n---\n"
)

// Alert holds the properties of one active alert feature.
type Alert struct {
	Event       string `json:"event"`
	AreaDesc    string `json:"areaDesc"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Instruction string `json:"instruction"`
}

type alertCollection struct {
	Features *[]struct {
		Properties Alert `json:"properties"`
	} `json:"features"`
}

// ActiveAlerts returns the active alerts for a two-letter US state code.
func (c *Client) ActiveAlerts(ctx context.Context, state string) ([]Alert, error) {
	code, err := NormalizeState(state)
	if err != nil {
		return nil, err
	}
	var body alertCollection
	if err := c.get(ctx, "/alerts/active/area/"+code, &body); err != nil {
		return nil, err
	}
	if body.Features == nil {
		return nil, fmt.Errorf("%w: response has no features", ErrUnavailable)
	}
	alerts := make([]Alert, 0, len(*body.Features))
	for _, feature := range *body.Features {
		alerts = append(alerts, feature.Properties)
	}
	return alerts, nil
}

// AlertsReport renders the active alerts for state as text. On failure the
// text is a user-facing explanation and err is non-nil.
func (c *Client) AlertsReport(ctx context.Context, state string) (string, error) {
	alerts, err := c.ActiveAlerts(ctx, state)
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			return "Error: " + err.Error(), err
		}
		return alertsUnavailable, err
	}
	return FormatAlerts(alerts), nil
}

// FormatAlerts renders alerts separated by "---" lines.
func FormatAlerts(alerts []Alert) string {
	if len(alerts) == 0 {
		return noActiveAlerts
	}
	blocks := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		blocks = append(blocks, formatAlert(alert))
	}
	return strings.Join(blocks, reportSeparator)
}

func formatAlert(a Alert) string {
	return fmt.Sprintf("Event: %s\nArea: %s\nSeverity: %s\nDescription: %s\nInstructions: %s",
		orDefault(a.Event, "Unknown"),
		orDefault(a.AreaDesc, "Unknown"),
		orDefault(a.Severity, "Unknown"),
		orDefault(a.Description, "No description available"),
		orDefault(a.Instruction, "No specific instructions provided"),
	)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

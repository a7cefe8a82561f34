package toolserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cirrustream/cirrus/weather"
)

// Messages returned when the upstream provider cannot be reached. Upstream
// faults are absorbed into tool text; they are never transport errors.
const (
	alertsUnavailableMsg   = "Failed to retrieve alerts data. Please try again later."
	forecastUnavailableMsg = "Failed to retrieve forecast data. Please try again later."
)

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("get-alerts",
			mcp.WithDescription("Get active weather alerts for a US state"),
			mcp.WithString("state",
				mcp.Required(),
				mcp.Description("Two-letter US state code, e.g. CA or NY"),
			),
		),
		s.handleGetAlerts,
	)

	s.mcp.AddTool(
		mcp.NewTool("get-forecast",
			mcp.WithDescription("Get the weather forecast for a coordinate"),
			mcp.WithNumber("latitude",
				mcp.Required(),
				mcp.Description("Latitude of the location"),
			),
			mcp.WithNumber("longitude",
				mcp.Required(),
				mcp.Description("Longitude of the location"),
			),
		),
		s.handleGetForecast,
	)
}

func (s *Server) handleGetAlerts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := req.RequireString("state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	alerts, err := s.client.ActiveAlerts(ctx, state)
	if err != nil {
		s.logger.Warn("alerts fetch failed", "state", state, "error", err)
		return mcp.NewToolResultText(alertsUnavailableMsg), nil
	}

	return mcp.NewToolResultText(weather.FormatAlerts(state, alerts)), nil
}

func (s *Server) handleGetForecast(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	latitude, err := req.RequireFloat("latitude")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	longitude, err := req.RequireFloat("longitude")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	periods, err := s.client.Forecast(ctx, latitude, longitude)
	if err != nil {
		s.logger.Warn("forecast fetch failed",
			"latitude", latitude, "longitude", longitude, "error", err)
		return mcp.NewToolResultText(forecastUnavailableMsg), nil
	}

	return mcp.NewToolResultText(weather.FormatForecast(periods)), nil
}

// Package weather fetches data from the National Weather Service API and
// formats it as plain text for tool responses.
//
// The NWS API is the bridge's only external collaborator. Its failure modes
// are deliberately flattened: non-2xx statuses, network faults, and decode
// errors all degrade to a classified upstream error that the tool layer
// turns into a user-readable "could not retrieve" message. Transport-level
// fault detail never escapes past this package.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cirrustream/cirrus/errors"
	"github.com/cirrustream/cirrus/pkg/retry"
)

// Defaults for the upstream client.
const (
	DefaultBaseURL   = "https://api.weather.gov"
	DefaultUserAgent = "cirrus-weather-bridge/1.0"
	DefaultTimeout   = 10 * time.Second

	acceptGeoJSON = "application/geo+json"
)

// Config carries the upstream client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond bounds outbound call rate; zero disables limiting.
	RequestsPerSecond float64
}

// Client is a rate-limited NWS API client.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     retry.Config
}

// NewClient creates a client, filling unset config fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   limiter,
		retry:     retry.DefaultConfig(),
	}
}

// Alert is one active weather alert.
type Alert struct {
	Event    string `json:"event"`
	AreaDesc string `json:"areaDesc"`
	Severity string `json:"severity"`
	Status   string `json:"status"`
	Headline string `json:"headline"`
}

// ForecastPeriod is one named period of a point forecast.
type ForecastPeriod struct {
	Name             string `json:"name"`
	Temperature      int    `json:"temperature"`
	TemperatureUnit  string `json:"temperatureUnit"`
	WindSpeed        string `json:"windSpeed"`
	WindDirection    string `json:"windDirection"`
	DetailedForecast string `json:"detailedForecast"`
}

type alertsResponse struct {
	Features []struct {
		Properties Alert `json:"properties"`
	} `json:"features"`
}

type pointsResponse struct {
	Properties struct {
		Forecast string `json:"forecast"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Periods []ForecastPeriod `json:"periods"`
	} `json:"properties"`
}

// ActiveAlerts returns the active alerts for a two-letter US state code.
// The code is upper-cased before the request.
func (c *Client) ActiveAlerts(ctx context.Context, state string) ([]Alert, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Weather", "ActiveAlerts", "state code")
	}

	body, err := c.get(ctx, c.baseURL+"/alerts/active/area/"+state)
	if err != nil {
		return nil, err
	}

	var resp alertsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.WrapTransient(err, "Weather", "ActiveAlerts", "response decode")
	}

	alerts := make([]Alert, 0, len(resp.Features))
	for _, f := range resp.Features {
		alerts = append(alerts, f.Properties)
	}
	return alerts, nil
}

// Forecast returns the forecast periods for a coordinate. The NWS API
// resolves a point to a gridpoint first, then serves the forecast from the
// URL it hands back.
func (c *Client) Forecast(ctx context.Context, latitude, longitude float64) ([]ForecastPeriod, error) {
	pointsURL := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, latitude, longitude)
	body, err := c.get(ctx, pointsURL)
	if err != nil {
		return nil, err
	}

	var points pointsResponse
	if err := json.Unmarshal(body, &points); err != nil {
		return nil, errors.WrapTransient(err, "Weather", "Forecast", "points decode")
	}
	if points.Properties.Forecast == "" {
		return nil, errors.WrapTransient(errors.ErrUpstreamUnavailable, "Weather", "Forecast", "forecast URL resolution")
	}

	body, err = c.get(ctx, points.Properties.Forecast)
	if err != nil {
		return nil, err
	}

	var forecast forecastResponse
	if err := json.Unmarshal(body, &forecast); err != nil {
		return nil, errors.WrapTransient(err, "Weather", "Forecast", "forecast decode")
	}
	return forecast.Properties.Periods, nil
}

// get performs a rate-limited GET with the fixed identification headers,
// retrying transient upstream failures with backoff.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	return retry.DoWithResult(ctx, c.retry, func() ([]byte, error) {
		return c.getOnce(ctx, url)
	})
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.WrapTransient(err, "Weather", "get", "rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Weather", "get", "request build")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptGeoJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrUpstreamUnavailable, err),
			"Weather", "get", "upstream request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WrapTransient(
			fmt.Errorf("%w: %s from %s", errors.ErrUpstreamStatus, resp.Status, url),
			"Weather", "get", "upstream status")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WrapTransient(err, "Weather", "get", "body read")
	}
	return body, nil
}

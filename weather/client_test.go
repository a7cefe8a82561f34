package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cirrustream/cirrus/errors"
)

const alertsBody = `{
	"features": [
		{"properties": {
			"event": "Flood Warning",
			"areaDesc": "Sacramento County",
			"severity": "Severe",
			"status": "Actual",
			"headline": "Flood Warning issued for Sacramento County"
		}}
	]
}`

func TestClient_ActiveAlerts(t *testing.T) {
	var gotPath, gotAccept, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(alertsBody))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, UserAgent: "test-agent/1.0"})

	alerts, err := c.ActiveAlerts(context.Background(), "ca")
	require.NoError(t, err)

	// Lower-case input is normalized into the request path.
	assert.Equal(t, "/alerts/active/area/CA", gotPath)
	assert.Equal(t, "application/geo+json", gotAccept)
	assert.Equal(t, "test-agent/1.0", gotUA)

	require.Len(t, alerts, 1)
	assert.Equal(t, "Flood Warning", alerts[0].Event)
	assert.Equal(t, "Sacramento County", alerts[0].AreaDesc)
}

func TestClient_ActiveAlerts_EmptyState(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.ActiveAlerts(context.Background(), "   ")
	assert.True(t, errors.IsInvalid(err))
}

func TestClient_ActiveAlerts_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.ActiveAlerts(context.Background(), "CA")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamStatus)
	assert.True(t, errors.IsTransient(err))
}

func TestClient_ActiveAlerts_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.ActiveAlerts(context.Background(), "CA")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

func TestClient_Forecast(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/points/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/points/38.5816,-121.4944", r.URL.Path)
		w.Write([]byte(`{"properties":{"forecast":"` + srv.URL + `/gridpoints/STO/forecast"}}`))
	})
	mux.HandleFunc("/gridpoints/STO/forecast", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"properties":{"periods":[
			{"name":"Tonight","temperature":54,"temperatureUnit":"F",
			 "windSpeed":"5 mph","windDirection":"SW",
			 "detailedForecast":"Partly cloudy."}
		]}}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	periods, err := c.Forecast(context.Background(), 38.5816, -121.4944)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "Tonight", periods[0].Name)
	assert.Equal(t, 54, periods[0].Temperature)
}

func TestClient_Forecast_MissingForecastURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"properties":{}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Forecast(context.Background(), 38.0, -121.0)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamUnavailable)
}

func TestClient_ActiveAlerts_RetriesTransientFailure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(alertsBody))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	alerts, err := c.ActiveAlerts(context.Background(), "CA")
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Equal(t, 2, calls)
}

func TestFormatAlerts(t *testing.T) {
	t.Run("no alerts", func(t *testing.T) {
		got := FormatAlerts("ca", nil)
		assert.Equal(t, "No active alerts for CA.", got)
	})

	t.Run("with alerts", func(t *testing.T) {
		got := FormatAlerts("CA", []Alert{{
			Event:    "Flood Warning",
			AreaDesc: "Sacramento County",
			Severity: "Severe",
			Status:   "Actual",
			Headline: "Flood Warning issued",
		}})
		assert.Contains(t, got, "Active alerts for CA:")
		assert.Contains(t, got, "Event: Flood Warning")
		assert.Contains(t, got, "Area: Sacramento County")
		assert.Contains(t, got, "Severity: Severe")
		assert.Contains(t, got, "Headline: Flood Warning issued")
	})

	t.Run("missing fields render Unknown", func(t *testing.T) {
		got := FormatAlerts("CA", []Alert{{}})
		assert.Contains(t, got, "Event: Unknown")
		assert.NotContains(t, got, "Headline:")
	})
}

func TestFormatForecast(t *testing.T) {
	t.Run("no periods", func(t *testing.T) {
		assert.Equal(t, "No forecast data available.", FormatForecast(nil))
	})

	t.Run("with periods", func(t *testing.T) {
		got := FormatForecast([]ForecastPeriod{{
			Name:             "Tonight",
			Temperature:      54,
			TemperatureUnit:  "F",
			WindSpeed:        "5 mph",
			WindDirection:    "SW",
			DetailedForecast: "Partly cloudy.",
		}})
		assert.True(t, strings.HasPrefix(got, "Tonight:"))
		assert.Contains(t, got, "Temperature: 54°F")
		assert.Contains(t, got, "Wind: 5 mph SW")
		assert.Contains(t, got, "Partly cloudy.")
	})
}

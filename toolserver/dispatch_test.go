package toolserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cirrustream/cirrus/errors"
	"github.com/cirrustream/cirrus/weather"
)

// newTestServer builds a tool server whose weather client talks to a stub
// NWS endpoint.
func newTestServer(t *testing.T, upstream http.Handler) *Server {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	client := weather.NewClient(weather.Config{BaseURL: srv.URL})
	return New(client, slog.Default())
}

func alertsStub(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/alerts/active/area/CA", r.URL.Path)
		w.Write([]byte(`{"features":[{"properties":{
			"event":"Heat Advisory","areaDesc":"Central Valley",
			"severity":"Moderate","status":"Actual",
			"headline":"Heat Advisory until Friday"}}]}`))
	})
}

func TestDispatch_ToolCallEnvelope(t *testing.T) {
	s := newTestServer(t, alertsStub(t))

	payload := []byte(`{"type":"tool_call","name":"get-alerts","parameters":{"state":"ca"}}`)
	out, err := s.Dispatch(context.Background(), payload)
	require.NoError(t, err)
	require.NotNil(t, out)

	var resp struct {
		JSONRPC string `json:"jsonrpc"`
		Result  struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)
	require.NotEmpty(t, resp.Result.Content)
	assert.Contains(t, resp.Result.Content[0].Text, "Heat Advisory")
	assert.Contains(t, resp.Result.Content[0].Text, "CA")
}

func TestDispatch_NoActiveAlerts(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))

	payload := []byte(`{"type":"tool_call","name":"get-alerts","parameters":{"state":"wy"}}`)
	out, err := s.Dispatch(context.Background(), payload)
	require.NoError(t, err)
	assert.Contains(t, string(out), "No active alerts for WY.")
}

func TestDispatch_UpstreamFailureBecomesToolText(t *testing.T) {
	s := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	payload := []byte(`{"type":"tool_call","name":"get-alerts","parameters":{"state":"ca"}}`)
	out, err := s.Dispatch(context.Background(), payload)

	// Upstream faults are absorbed into the tool response, never raised.
	require.NoError(t, err)
	assert.Contains(t, string(out), alertsUnavailableMsg)
}

func TestDispatch_JSONRPCPassthrough(t *testing.T) {
	s := newTestServer(t, alertsStub(t))

	payload := []byte(`{"jsonrpc":"2.0","id":9,"method":"tools/call",` +
		`"params":{"name":"get-alerts","arguments":{"state":"CA"}}}`)
	out, err := s.Dispatch(context.Background(), payload)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Heat Advisory")
	assert.Contains(t, string(out), `"id":9`)
}

func TestDispatch_ListTools(t *testing.T) {
	s := newTestServer(t, alertsStub(t))

	out, err := s.Dispatch(context.Background(), []byte(`{"type":"list_tools"}`))
	require.NoError(t, err)
	assert.Contains(t, string(out), "get-alerts")
	assert.Contains(t, string(out), "get-forecast")
}

func TestDispatch_UnknownToolReturnsProtocolError(t *testing.T) {
	s := newTestServer(t, alertsStub(t))

	payload := []byte(`{"type":"tool_call","name":"no-such-tool","parameters":{}}`)
	out, err := s.Dispatch(context.Background(), payload)

	// Protocol-level errors travel back as JSON-RPC error messages, not as
	// Go errors that would abort delivery.
	require.NoError(t, err)
	assert.Contains(t, string(out), `"error"`)
}

func TestDispatch_UnrecognizedPayload(t *testing.T) {
	s := newTestServer(t, alertsStub(t))

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `not json at all`},
		{"no tag fields", `{"foo":"bar"}`},
		{"type without name", `{"type":"tool_call"}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := s.Dispatch(context.Background(), []byte(test.payload))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestDispatch_ForecastTool(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/points/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"properties":{"forecast":"` + srv.URL + `/fc"}}`))
	})
	mux.HandleFunc("/fc", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"properties":{"periods":[
			{"name":"Today","temperature":70,"temperatureUnit":"F",
			 "windSpeed":"10 mph","windDirection":"NW",
			 "detailedForecast":"Sunny."}]}}`))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := weather.NewClient(weather.Config{BaseURL: srv.URL})
	s := New(client, slog.Default())

	payload := []byte(`{"type":"tool_call","name":"get-forecast",` +
		`"parameters":{"latitude":38.58,"longitude":-121.49}}`)
	out, err := s.Dispatch(context.Background(), payload)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Sunny.")
	assert.Contains(t, string(out), "Temperature: 70°F")
}

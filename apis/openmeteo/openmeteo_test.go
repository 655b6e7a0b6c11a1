package openmeteo

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteo/manager"
)

const forecastResponse = `{
  "latitude": 48.1,
  "longitude": 7.96,
  "generationtime_ms": 0.03,
  "utc_offset_seconds": 0,
  "timezone": "GMT",
  "timezone_abbreviation": "GMT",
  "elevation": 274.0,
  "current_units": {"time": "iso8601", "interval": "seconds", "temperature_2m": "°C"},
  "current": {"time": "2024-01-01T00:15", "interval": 900, "temperature_2m": 5.2},
  "hourly_units": {"time": "iso8601", "temperature_2m": "°C"},
  "hourly": {
    "time": ["2024-01-01T00:00", "2024-01-01T01:00", "2024-01-01T02:00"],
    "temperature_2m": [5.2, 4.8, null]
  }
}`

type recorder struct {
	mu      sync.Mutex
	queries []url.Values
}

func (r *recorder) all() []url.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]url.Values(nil), r.queries...)
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.queries = append(rec.queries, r.URL.Query())
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, rec
}

func TestGet_Request(t *testing.T) {
	server, requests := newServer(t, http.StatusOK, forecastResponse)

	_, err := New(server.URL, time.Second, zerolog.Nop()).Get(context.Background(), manager.GeoCoordinate{Latitude: 48.1, Longitude: 7.96371})
	require.NoError(t, err)

	require.Len(t, requests.all(), 1)
	query := requests.all()[0]
	assert.Equal(t, "48.100", query.Get("latitude"))
	assert.Equal(t, "7.964", query.Get("longitude"))
	assert.Equal(t, "temperature_2m", query.Get("current"))
	assert.Equal(t, "temperature_2m", query.Get("hourly"))
}

func TestGet_Decodes(t *testing.T) {
	server, _ := newServer(t, http.StatusOK, forecastResponse)

	forecast, err := New(server.URL, time.Second, zerolog.Nop()).Get(context.Background(), manager.GeoCoordinate{Latitude: 48.09585, Longitude: 7.96371})

	require.NoError(t, err)
	assert.Equal(t, manager.CurrentConditions{ObservedAt: "2024-01-01T00:15", IntervalSeconds: 900, TemperatureCelsius: 5.2}, forecast.Current)
	assert.Equal(t, 274.0, forecast.Elevation)
	assert.Equal(t, "GMT", forecast.Timezone)
	assert.Equal(t, manager.GeoCoordinate{Latitude: 48.1, Longitude: 7.96}, forecast.Coordinate)
	assert.Equal(t, []string{"2024-01-01T00:00", "2024-01-01T01:00", "2024-01-01T02:00"}, forecast.Hourly.Times)
	require.Len(t, forecast.Hourly.Temperatures, 3)
	assert.Equal(t, 5.2, forecast.Hourly.Temperatures[0])
	assert.Equal(t, 4.8, forecast.Hourly.Temperatures[1])
	assert.True(t, math.IsNaN(forecast.Hourly.Temperatures[2]))
}

func TestGet_RefetchesEveryCall(t *testing.T) {
	server, requests := newServer(t, http.StatusOK, forecastResponse)
	client := New(server.URL, time.Second, zerolog.Nop())

	for i := 0; i < 2; i++ {
		_, err := client.Get(context.Background(), manager.GeoCoordinate{Latitude: 48.1, Longitude: 7.9})
		require.NoError(t, err)
	}

	assert.Len(t, requests.all(), 2)
}

func TestGet_RemoteServiceError(t *testing.T) {
	server, _ := newServer(t, http.StatusInternalServerError, `{"error": true, "reason": "internal"}`)

	forecast, err := New(server.URL, time.Second, zerolog.Nop()).Get(context.Background(), manager.GeoCoordinate{Latitude: 48.1, Longitude: 7.9})

	var remote *manager.RemoteServiceError
	require.True(t, errors.As(err, &remote), "got %T: %v", err, err)
	assert.Equal(t, 500, remote.StatusCode)
	assert.Equal(t, "internal", remote.Reason)
	assert.Equal(t, manager.Forecast{}, forecast)
}

func TestGet_DecodeError(t *testing.T) {
	for name, body := range map[string]string{
		"not json":          `<html></html>`,
		"missing current":   `{"hourly": {"time": [], "temperature_2m": []}}`,
		"missing current t": `{"current": {"time": "2024-01-01T00:00"}, "hourly": {"time": [], "temperature_2m": []}}`,
		"missing hourly":    `{"current": {"time": "2024-01-01T00:00", "interval": 900, "temperature_2m": 1}}`,
		"missing times":     `{"current": {"time": "x", "interval": 900, "temperature_2m": 1}, "hourly": {"temperature_2m": []}}`,
		"missing values":    `{"current": {"time": "x", "interval": 900, "temperature_2m": 1}, "hourly": {"time": []}}`,
		"wrong types":       `{"current": {"time": 1, "interval": 900, "temperature_2m": "warm"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			server, _ := newServer(t, http.StatusOK, body)

			_, err := New(server.URL, time.Second, zerolog.Nop()).Get(context.Background(), manager.GeoCoordinate{Latitude: 48.1, Longitude: 7.9})

			var decode *manager.DecodeError
			assert.True(t, errors.As(err, &decode), "got %T: %v", err, err)
		})
	}
}

func TestGet_InvalidCoordinate(t *testing.T) {
	server, requests := newServer(t, http.StatusOK, forecastResponse)

	_, err := New(server.URL, time.Second, zerolog.Nop()).Get(context.Background(), manager.GeoCoordinate{Latitude: 91, Longitude: 0})

	var violation *manager.ContractViolation
	assert.True(t, errors.As(err, &violation))
	assert.Empty(t, requests.all())
}

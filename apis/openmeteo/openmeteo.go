package openmeteo

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"meteo/apis/transport"
	"meteo/manager"
)

const (
	apiName = "api.open-meteo.com"

	DefaultURL = "https://api.open-meteo.com/v1/forecast"

	metric = "temperature_2m"
)

func New(url string, timeout time.Duration, logger zerolog.Logger) *openMeteo {
	return &openMeteo{
		url:    url,
		client: transport.NewClient(timeout),
		logger: logger.With().Str("component", "openmeteo").Logger(),
	}
}

type openMeteo struct {
	url    string
	client *resty.Client
	logger zerolog.Logger
}

// Get fetches the current temperature and the hourly temperature series for
// coord. Every call goes to the network.
func (o openMeteo) Get(ctx context.Context, coord manager.GeoCoordinate) (manager.Forecast, error) {
	if err := manager.ValidateCoordinate(coord); err != nil {
		return manager.Forecast{}, err
	}

	latitude, longitude := coord.Format()
	params := map[string]string{
		"latitude":  latitude,
		"longitude": longitude,
		"current":   metric,
		"hourly":    metric,
	}

	var r result
	if err := transport.Get(ctx, o.client, o.logger, apiName, o.url, params, &r); err != nil {
		return manager.Forecast{}, err
	}

	forecast, err := r.forecast()
	if err != nil {
		return manager.Forecast{}, &manager.DecodeError{Service: apiName, Err: err}
	}

	o.logger.Debug().
		Str("latitude", latitude).
		Str("longitude", longitude).
		Float64("temperature", forecast.Current.TemperatureCelsius).
		Int("hours", forecast.Hourly.Len()).
		Msg("forecast fetched")

	return forecast, nil
}

type result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
	Timezone  string  `json:"timezone"`
	Current   *struct {
		Time        string   `json:"time"`
		Interval    int      `json:"interval"`
		Temperature *float64 `json:"temperature_2m"`
	} `json:"current"`
	Hourly *struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m"`
	} `json:"hourly"`
}

func (r result) forecast() (manager.Forecast, error) {
	switch {
	case r.Current == nil:
		return manager.Forecast{}, errors.New("missing current")
	case r.Current.Temperature == nil:
		return manager.Forecast{}, errors.New("missing current." + metric)
	case r.Hourly == nil:
		return manager.Forecast{}, errors.New("missing hourly")
	case r.Hourly.Time == nil:
		return manager.Forecast{}, errors.New("missing hourly.time")
	case r.Hourly.Temperature == nil:
		return manager.Forecast{}, errors.New("missing hourly." + metric)
	}

	temperatures := make([]float64, len(r.Hourly.Temperature))
	for i, t := range r.Hourly.Temperature {
		if t == nil {
			temperatures[i] = math.NaN()
			continue
		}
		temperatures[i] = *t
	}

	return manager.Forecast{
		Coordinate: manager.GeoCoordinate{Latitude: r.Latitude, Longitude: r.Longitude},
		Elevation:  r.Elevation,
		Timezone:   r.Timezone,
		Current: manager.CurrentConditions{
			ObservedAt:         r.Current.Time,
			IntervalSeconds:    r.Current.Interval,
			TemperatureCelsius: *r.Current.Temperature,
		},
		Hourly: manager.WeatherSeries{
			Times:        r.Hourly.Time,
			Temperatures: temperatures,
		},
	}, nil
}

package manager

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type Weather interface {
	Get(ctx context.Context, coord GeoCoordinate) (Forecast, error)
}

type Geocoding interface {
	Search(ctx context.Context, query string) ([]LocationCandidate, error)
}

// Service is what the presentation layers (cli, web) need from the pipeline.
type Service interface {
	Resolve(ctx context.Context, query string) ([]LocationCandidate, error)
	FetchWeather(ctx context.Context, coord GeoCoordinate) (Forecast, error)
	Get(ctx context.Context, location Location) (Report, error)
}

type GeoCoordinate struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Format returns latitude and longitude with exactly three decimals, the
// precision the forecast API works with.
func (c GeoCoordinate) Format() (string, string) {
	return strconv.FormatFloat(c.Latitude, 'f', 3, 64), strconv.FormatFloat(c.Longitude, 'f', 3, 64)
}

type CurrentConditions struct {
	ObservedAt         string  `json:"observedAt"`
	IntervalSeconds    int     `json:"intervalSeconds"`
	TemperatureCelsius float64 `json:"temperatureCelsius"`
}

// WeatherSeries holds two parallel sequences; index i of Times and
// Temperatures describe the same hour. Missing values are NaN.
type WeatherSeries struct {
	Times        []string  `json:"times"`
	Temperatures []float64 `json:"temperatures"`
}

func (s WeatherSeries) Len() int {
	return len(s.Times)
}

// MarshalJSON writes missing temperatures as null.
func (s WeatherSeries) MarshalJSON() ([]byte, error) {
	temperatures := make([]*float64, len(s.Temperatures))
	for i := range s.Temperatures {
		if !math.IsNaN(s.Temperatures[i]) {
			temperatures[i] = &s.Temperatures[i]
		}
	}
	return json.Marshal(struct {
		Times        []string   `json:"times"`
		Temperatures []*float64 `json:"temperatures"`
	}{s.Times, temperatures})
}

type Forecast struct {
	Coordinate GeoCoordinate     `json:"coordinate"`
	Elevation  float64           `json:"elevation"`
	Timezone   string            `json:"timezone"`
	Current    CurrentConditions `json:"current"`
	Hourly     WeatherSeries     `json:"hourly"`
}

type LocationCandidate struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Elevation   float64  `json:"elevation"`
	FeatureCode string   `json:"feature_code"`
	CountryCode string   `json:"country_code"`
	Country     string   `json:"country"`
	Admin1      string   `json:"admin1,omitempty"`
	Admin2      string   `json:"admin2,omitempty"`
	Admin3      string   `json:"admin3,omitempty"`
	Admin4      string   `json:"admin4,omitempty"`
	Timezone    string   `json:"timezone"`
	Population  int64    `json:"population"`
	Postcodes   []string `json:"postcodes,omitempty"`
}

func (l LocationCandidate) Coordinate() GeoCoordinate {
	return GeoCoordinate{Latitude: l.Latitude, Longitude: l.Longitude}
}

// AdminRegions returns the non-empty administrative region names, most
// significant first.
func (l LocationCandidate) AdminRegions() []string {
	regions := make([]string, 0, 4)
	for _, region := range []string{l.Admin1, l.Admin2, l.Admin3, l.Admin4} {
		if region != "" {
			regions = append(regions, region)
		}
	}
	return regions
}

// Label is the human readable key used by the presentation layers,
// e.g. "Waldkirch, Baden-Wurttemberg, Freiburg Region, Germany".
func (l LocationCandidate) Label() string {
	parts := []string{l.Name}
	for _, region := range []string{l.Admin1, l.Admin2} {
		if region != "" {
			parts = append(parts, region)
		}
	}
	if l.Country != "" {
		parts = append(parts, l.Country)
	}
	return strings.Join(parts, ", ")
}

// Location is the pipeline input. Coordinate wins over Name when both are set.
type Location struct {
	Name       string
	Coordinate *GeoCoordinate
	Pick       int
}

type Report struct {
	Place     string             `json:"place"`
	Candidate *LocationCandidate `json:"candidate,omitempty"`
	Forecast  Forecast           `json:"forecast"`
}

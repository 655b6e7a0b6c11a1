package manager

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New()

// ValidateCoordinate reports an out-of-range coordinate as a ContractViolation.
func ValidateCoordinate(coord GeoCoordinate) error {
	if err := validate.Struct(coord); err != nil {
		return &ContractViolation{Reason: fmt.Sprintf("coordinate %v,%v out of range", coord.Latitude, coord.Longitude)}
	}
	return nil
}

// Pick returns the i-th candidate of a ranked list.
func Pick(candidates []LocationCandidate, i int) (LocationCandidate, error) {
	if len(candidates) == 0 {
		return LocationCandidate{}, ErrNotFound
	}
	if i < 0 || i >= len(candidates) {
		return LocationCandidate{}, fmt.Errorf("pick %d: only %d candidates", i, len(candidates))
	}
	return candidates[i], nil
}

func New(logger zerolog.Logger) *Manager {
	return &Manager{logger: logger.With().Str("component", "manager").Logger()}
}

type Manager struct {
	weather   Weather
	geocoding Geocoding
	logger    zerolog.Logger
}

func (m *Manager) SetWeather(weather Weather) {
	m.weather = weather
}

func (m *Manager) SetGeocoding(geocoding Geocoding) {
	m.geocoding = geocoding
}

func (m *Manager) Resolve(ctx context.Context, query string) ([]LocationCandidate, error) {
	if m.geocoding == nil {
		return nil, fmt.Errorf("geocoding not configured")
	}
	return m.geocoding.Search(ctx, query)
}

func (m *Manager) FetchWeather(ctx context.Context, coord GeoCoordinate) (Forecast, error) {
	if m.weather == nil {
		return Forecast{}, fmt.Errorf("weather api not configured")
	}
	return m.weather.Get(ctx, coord)
}

// Get runs resolve -> pick -> fetch. When location carries a coordinate the
// resolve step is skipped.
func (m *Manager) Get(ctx context.Context, location Location) (Report, error) {
	report := Report{Place: location.Name}

	coord := location.Coordinate
	if coord == nil {
		if location.Name == "" {
			return Report{}, &ContractViolation{Reason: "location needs a name or a coordinate"}
		}

		candidates, err := m.Resolve(ctx, location.Name)
		if err != nil {
			return Report{}, err
		}

		candidate, err := Pick(candidates, location.Pick)
		if err != nil {
			return Report{}, fmt.Errorf("location %q: %w", location.Name, err)
		}
		m.logger.Debug().
			Str("query", location.Name).
			Str("candidate", candidate.Label()).
			Int("candidates", len(candidates)).
			Msg("location resolved")

		report.Place = candidate.Name
		report.Candidate = &candidate
		c := candidate.Coordinate()
		coord = &c
	}

	forecast, err := m.FetchWeather(ctx, *coord)
	if err != nil {
		return Report{}, err
	}
	report.Forecast = forecast

	if report.Place == "" {
		lat, lon := coord.Format()
		report.Place = lat + "," + lon
	}

	return report, nil
}

package geocoding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"meteo/apis/transport"
	"meteo/manager"
)

const (
	apiName = "geocoding-api.open-meteo.com"

	DefaultURL = "https://geocoding-api.open-meteo.com/v1/search"

	resultCount = "10"
	language    = "en"
	format      = "json"
)

func New(url string, timeout time.Duration, logger zerolog.Logger) *geocoding {
	return &geocoding{
		url:    url,
		client: transport.NewClient(timeout),
		logger: logger.With().Str("component", "geocoding").Logger(),
	}
}

type geocoding struct {
	url    string
	client *resty.Client
	logger zerolog.Logger
}

// Search returns up to ten candidates for query in the order the service
// ranks them. No match is an empty slice, not an error.
func (g geocoding) Search(ctx context.Context, query string) ([]manager.LocationCandidate, error) {
	if query == "" {
		return nil, &manager.ContractViolation{Reason: "empty location query"}
	}

	params := map[string]string{
		"name":     query,
		"count":    resultCount,
		"language": language,
		"format":   format,
	}

	var response struct {
		Results          []manager.LocationCandidate `json:"results"`
		GenerationTimeMs float64                     `json:"generationtime_ms"`
	}

	if err := transport.Get(ctx, g.client, g.logger, apiName, g.url, params, &response); err != nil {
		return nil, err
	}

	for i, candidate := range response.Results {
		if err := manager.ValidateCoordinate(candidate.Coordinate()); err != nil {
			return nil, &manager.DecodeError{
				Service: apiName,
				Err:     fmt.Errorf("result %d (%s): %v", i, candidate.Name, err),
			}
		}
	}

	g.logger.Debug().
		Str("query", query).
		Int("results", len(response.Results)).
		Float64("generationtime_ms", response.GenerationTimeMs).
		Msg("location search")

	if response.Results == nil {
		return []manager.LocationCandidate{}, nil
	}
	return response.Results, nil
}

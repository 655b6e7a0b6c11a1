// Package transport issues the single GET request every remote API client
// needs and maps its outcome onto the manager error kinds.
package transport

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"meteo/manager"
)

const (
	outcomeOK        = "ok"
	outcomeTransport = "transport_error"
	outcomeRemote    = "remote_error"
	outcomeDecode    = "decode_error"
)

var requests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "meteo",
	Name:      "upstream_requests_total",
	Help:      "Requests issued to remote weather services by outcome.",
}, []string{"service", "outcome"})

// NewClient returns a resty client with a per-request timeout. Retries stay
// disabled.
func NewClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
}

// Get requests url with params and unmarshals the JSON body into out.
func Get(ctx context.Context, client *resty.Client, logger zerolog.Logger, service, url string, params map[string]string, out interface{}) error {
	request := client.R().SetContext(ctx)
	request.SetQueryParams(params)

	response, err := request.Get(url)
	if err != nil {
		requests.WithLabelValues(service, outcomeTransport).Inc()
		return &manager.TransportError{Service: service, Err: err}
	}

	logger.Debug().
		Str("service", service).
		Str("url", response.Request.URL).
		Int("status", response.StatusCode()).
		Dur("elapsed", response.Time()).
		Msg("response received")

	if !response.IsSuccess() {
		requests.WithLabelValues(service, outcomeRemote).Inc()
		remoteErr := &manager.RemoteServiceError{
			Service:    service,
			StatusCode: response.StatusCode(),
			StatusText: statusText(response),
			Reason:     reason(response.Body()),
		}
		logger.Warn().Err(remoteErr).Str("service", service).Msg("remote service rejected request")
		return remoteErr
	}

	if err := json.Unmarshal(response.Body(), out); err != nil {
		requests.WithLabelValues(service, outcomeDecode).Inc()
		return &manager.DecodeError{Service: service, Err: err}
	}

	requests.WithLabelValues(service, outcomeOK).Inc()
	return nil
}

// statusText strips the numeric code from "500 Internal Server Error".
func statusText(response *resty.Response) string {
	code := strconv.Itoa(response.StatusCode())
	return strings.TrimSpace(strings.TrimPrefix(response.Status(), code))
}

// reason extracts the explanation Open-Meteo puts in error bodies:
// {"error": true, "reason": "..."}.
func reason(body []byte) string {
	var payload struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Reason
}

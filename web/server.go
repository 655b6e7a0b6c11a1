// Package web serves the location search page and a small JSON API on top of
// the weather pipeline.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"meteo/manager"
	"meteo/table"
)

const minQueryLength = 3

//go:embed templates/index.html
var templates embed.FS

var index = template.Must(template.ParseFS(templates, "templates/index.html"))

type Server struct {
	app     *fiber.App
	service manager.Service
	addr    string
	logger  zerolog.Logger
}

func New(service manager.Service, addr string, logger zerolog.Logger) *Server {
	s := &Server{
		service: service,
		addr:    addr,
		logger:  logger.With().Str("component", "web").Logger(),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "meteo",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(s.logRequests)
	s.routes()

	return s
}

// App exposes the fiber application, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Listen(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("listening")
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info().Msg("shutting down")
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

func (s *Server) routes() {
	s.app.Get("/", s.handleIndex)
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := s.app.Group("/api/v1")
	v1.Get("/locations", s.handleLocations)
	v1.Get("/weather", s.handleWeather)
	v1.Get("/weather/hourly.csv", s.handleHourlyTable)
}

func (s *Server) handleLocations(c *fiber.Ctx) error {
	name := c.Query("name")
	if len([]rune(name)) < minQueryLength {
		return fiber.NewError(fiber.StatusBadRequest, "name must be at least 3 characters")
	}

	candidates, err := s.service.Resolve(c.UserContext(), name)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"results": candidates})
}

func (s *Server) handleWeather(c *fiber.Ctx) error {
	coord, err := parseCoordinate(c)
	if err != nil {
		return err
	}

	forecast, err := s.service.FetchWeather(c.UserContext(), coord)
	if err != nil {
		return err
	}

	return c.JSON(forecast)
}

func (s *Server) handleHourlyTable(c *fiber.Ctx) error {
	coord, err := parseCoordinate(c)
	if err != nil {
		return err
	}

	forecast, err := s.service.FetchWeather(c.UserContext(), coord)
	if err != nil {
		return err
	}

	content, err := table.Serialize(forecast.Hourly)
	if err != nil {
		// The series came from upstream, the request itself was fine.
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="weather.csv"`)
	return c.SendString(content)
}

type option struct {
	Label    string
	Selected bool
}

type weatherPanel struct {
	Name        string
	Temperature float64
	Color       string
	Elevation   float64
	Latitude    float64
	Longitude   float64
}

type indexPage struct {
	Query   string
	Options []option
	Message string
	Error   string
	Weather *weatherPanel
}

// handleIndex renders the search page. The label -> candidate table lives
// only for the duration of one request.
func (s *Server) handleIndex(c *fiber.Ctx) error {
	page := indexPage{Query: c.Query("q")}
	pick := c.Query("pick")
	// The select still holds the previous pick when a new query is submitted.
	if shown, ok := c.Queries()["shown"]; ok && shown != page.Query {
		pick = ""
	}

	switch {
	case page.Query == "":
	case len([]rune(page.Query)) < minQueryLength:
		page.Message = "Query too short, ignoring."
	default:
		s.fillIndex(c.UserContext(), &page, pick)
	}

	var buf bytes.Buffer
	if err := index.Execute(&buf, page); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}

func (s *Server) fillIndex(ctx context.Context, page *indexPage, pick string) {
	candidates, err := s.service.Resolve(ctx, page.Query)
	if err != nil {
		s.logger.Error().Err(err).Str("query", page.Query).Msg("location search failed")
		page.Error = "Error fetching location data: " + err.Error()
		return
	}
	if len(candidates) == 0 {
		page.Message = "No locations found for query: " + page.Query
		return
	}

	locations := make(map[string]manager.LocationCandidate, len(candidates))
	for _, candidate := range candidates {
		label := candidate.Label()
		if _, ok := locations[label]; ok {
			continue
		}
		locations[label] = candidate
		page.Options = append(page.Options, option{Label: label})
	}

	selected := page.Options[0].Label
	if pick != "" {
		if _, ok := locations[pick]; !ok {
			page.Error = "Location not found: " + pick
			return
		}
		selected = pick
	}
	for i := range page.Options {
		page.Options[i].Selected = page.Options[i].Label == selected
	}

	location := locations[selected]
	forecast, err := s.service.FetchWeather(ctx, location.Coordinate())
	if err != nil {
		s.logger.Error().Err(err).Str("location", selected).Msg("weather fetch failed")
		page.Error = "Error fetching weather data: " + err.Error()
		return
	}

	temperature := forecast.Current.TemperatureCelsius
	page.Weather = &weatherPanel{
		Name:        location.Name,
		Temperature: temperature,
		Color:       temperatureColor(temperature),
		Elevation:   location.Elevation,
		Latitude:    location.Latitude,
		Longitude:   location.Longitude,
	}
}

func temperatureColor(celsius float64) string {
	switch {
	case celsius > 25:
		return "red"
	case celsius < 10:
		return "blue"
	default:
		return "black"
	}
}

func parseCoordinate(c *fiber.Ctx) (manager.GeoCoordinate, error) {
	latitude, err := strconv.ParseFloat(c.Query("latitude"), 64)
	if err != nil {
		return manager.GeoCoordinate{}, fiber.NewError(fiber.StatusBadRequest, "latitude must be a number")
	}
	longitude, err := strconv.ParseFloat(c.Query("longitude"), 64)
	if err != nil {
		return manager.GeoCoordinate{}, fiber.NewError(fiber.StatusBadRequest, "longitude must be a number")
	}
	return manager.GeoCoordinate{Latitude: latitude, Longitude: longitude}, nil
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var (
		fiberErr     *fiber.Error
		remoteErr    *manager.RemoteServiceError
		transportErr *manager.TransportError
		decodeErr    *manager.DecodeError
		contractErr  *manager.ContractViolation
	)
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.As(err, &remoteErr), errors.As(err, &decodeErr):
		code = fiber.StatusBadGateway
	case errors.As(err, &transportErr):
		code = fiber.StatusGatewayTimeout
	case errors.As(err, &contractErr):
		code = fiber.StatusBadRequest
	case errors.Is(err, manager.ErrNotFound):
		code = fiber.StatusNotFound
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Path()).Int("status", code).Msg("request failed")
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("request")
	return err
}

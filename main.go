package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"meteo/apis/geocoding"
	"meteo/apis/openmeteo"
	"meteo/cli"
	"meteo/config"
	"meteo/manager"
	"meteo/web"
)

//go:embed config.yaml
var configRaw []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %s\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log.Level)

	weatherManager := manager.New(logger)
	weatherManager.SetGeocoding(geocoding.New(cfg.Geocoding.URL, cfg.HTTP.Timeout, logger))
	weatherManager.SetWeather(openmeteo.New(cfg.Forecast.URL, cfg.HTTP.Timeout, logger))

	defaults := cli.Defaults{
		Place: cfg.Location.Name,
		Coordinate: manager.GeoCoordinate{
			Latitude:  cfg.Location.Latitude,
			Longitude: cfg.Location.Longitude,
		},
		Output: cfg.Output,
	}

	cmd, err := cli.New(weatherManager, defaults, web.New(weatherManager, cfg.Server.Addr, logger))
	if err != nil {
		logger.Error().Err(err).Msg("new cli")
		os.Exit(1)
	}

	if err = cmd.ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("exec")
		stop()
		os.Exit(1)
	}
}

// loadConfig reads METEO_CONFIG when set, the embedded config.yaml otherwise.
func loadConfig() (config.Config, error) {
	if path := os.Getenv("METEO_CONFIG"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load(configRaw)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

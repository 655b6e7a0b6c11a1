package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "METEO_"

var validate = validator.New()

// Config mirrors config.yaml.
type Config struct {
	Geocoding struct {
		URL string `yaml:"url" validate:"required,url"` // Location search endpoint
	} `yaml:"geocoding"`

	Forecast struct {
		URL string `yaml:"url" validate:"required,url"` // Forecast endpoint
	} `yaml:"forecast"`

	HTTP struct {
		Timeout time.Duration `yaml:"timeout" validate:"gt=0"` // Deadline for each remote call
	} `yaml:"http"`

	Location struct {
		Name      string  `yaml:"name" validate:"required"`
		Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
		Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
	} `yaml:"location"` // Used when no location is given on the command line

	Output string `yaml:"output"` // Hourly table destination, "-" for stdout

	Log struct {
		Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
	} `yaml:"log"`

	Server struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"server"`
}

// Load decodes raw YAML, applies METEO_* environment overrides (a .env file
// in the working directory is read first when present) and validates the result.
func Load(raw []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadFile reads the config from path instead of the embedded copy.
func LoadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Load(raw)
}

func (c *Config) applyEnv() error {
	setString(&c.Geocoding.URL, "GEOCODING_URL")
	setString(&c.Forecast.URL, "FORECAST_URL")
	setString(&c.Output, "OUTPUT")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Server.Addr, "SERVER_ADDR")

	if v, ok := os.LookupEnv(envPrefix + "HTTP_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sHTTP_TIMEOUT: %w", envPrefix, err)
		}
		c.HTTP.Timeout = d
	}

	for key, dst := range map[string]*float64{
		"LATITUDE":  &c.Location.Latitude,
		"LONGITUDE": &c.Location.Longitude,
	} {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
			*dst = f
		}
	}
	setString(&c.Location.Name, "LOCATION")

	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

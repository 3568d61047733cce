// Package config loads the service configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Prefix is the environment prefix, e.g. MELODIA_PORT.
const Prefix = "melodia"

// ErrInvalid wraps configuration values that parse but make no sense.
var ErrInvalid = errors.New("config: invalid value")

// Config is the service configuration.
type Config struct {
	Port        int     `envconfig:"PORT" default:"8080"`
	DBPath      string  `envconfig:"DB_PATH" default:"melodia.db"`
	Variants    int     `envconfig:"VARIANTS" default:"4"`
	Concurrency int     `envconfig:"CONCURRENCY" default:"4"`
	LogLevel    string  `envconfig:"LOG_LEVEL" default:"info"`
	Tempo       float64 `envconfig:"TEMPO" default:"90"`
}

// Load reads files into the environment (".env" when none are given, and
// a missing default file is not an error), then processes MELODIA_*
// variables. Variables already set win over file values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("config: %v: %w", files, err)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges.
func (c Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	case c.DBPath == "":
		return fmt.Errorf("%w: empty database path", ErrInvalid)
	case c.Variants < 1:
		return fmt.Errorf("%w: variants %d", ErrInvalid, c.Variants)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency %d", ErrInvalid, c.Concurrency)
	case c.Tempo <= 0:
		return fmt.Errorf("%w: tempo %g", ErrInvalid, c.Tempo)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}

	return nil
}

// Addr is the listen address.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Logger builds a production zap logger at LogLevel.
func (c Config) Logger() (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: log level %q", ErrInvalid, c.LogLevel)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)

	return zc.Build()
}

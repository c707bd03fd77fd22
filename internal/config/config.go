// Package config loads serd settings.
//
// Sources, lowest precedence first: Default, a config file (Load), then
// SERD_* environment variables. Command-line flags are applied last by the
// cli package. Validate must be called once every source is applied.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/serd/internal/engine"
	"github.com/roach88/serd/internal/logging"
	"github.com/roach88/serd/internal/services"
	"github.com/roach88/serd/internal/transport"
)

// ErrInvalidConfig is wrapped by every Load and Validate error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds every serd setting.
type Config struct {
	Listen          string   `json:"listen" yaml:"listen" env:"SERD_LISTEN"`
	Path            string   `json:"path" yaml:"path" env:"SERD_PATH"`
	Game            string   `json:"game" yaml:"game" env:"SERD_GAME"`
	LogLevel        string   `json:"log_level" yaml:"log_level" env:"SERD_LOG_LEVEL"`
	LogFormat       string   `json:"log_format" yaml:"log_format" env:"SERD_LOG_FORMAT"`
	AdminActor      uint64   `json:"admin_actor" yaml:"admin_actor" env:"SERD_ADMIN_ACTOR"`
	UnknownService  string   `json:"unknown_service" yaml:"unknown_service" env:"SERD_UNKNOWN_SERVICE"`
	Journal         string   `json:"journal" yaml:"journal" env:"SERD_JOURNAL"`
	MaxMessageBytes int      `json:"max_message_bytes" yaml:"max_message_bytes" env:"SERD_MAX_MESSAGE_BYTES"`
	ResourcePaths   []string `json:"resource_paths" yaml:"resource_paths" env:"SERD_RESOURCE_PATHS" envSeparator:":"`

	NATS NATS `json:"nats" yaml:"nats" envPrefix:"SERD_NATS_"`
}

// NATS configures the optional event mirror. An empty URL disables it.
type NATS struct {
	URL     string `json:"url" yaml:"url" env:"URL"`
	Name    string `json:"name" yaml:"name" env:"NAME"`
	Subject string `json:"subject" yaml:"subject" env:"SUBJECT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Listen:          "127.0.0.1:35555",
		Path:            "/",
		Game:            "chat",
		LogLevel:        "info",
		LogFormat:       string(logging.FormatText),
		AdminActor:      0,
		UnknownService:  string(engine.UnknownServiceClosePipeline),
		MaxMessageBytes: transport.DefaultMaxMessageBytes,
		ResourcePaths:   DefaultResourcePaths(),
		NATS: NATS{
			Name:    "serd",
			Subject: "serd.events",
		},
	}
}

// DefaultResourcePaths returns the game resource search list: the system
// directory (unix only), then the user's home, then the working directory.
func DefaultResourcePaths() []string {
	var paths []string
	if runtime.GOOS != "windows" {
		paths = append(paths, "/usr/share/serd")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".serd"))
	}
	return append(paths, filepath.Join(".", ".serd"))
}

// Load returns the defaults overlaid with the file at path (skipped when
// path is empty) and then with SERD_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overlays SERD_* environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("%w: parse env: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks every setting.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Listen) == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	if !strings.HasPrefix(c.Path, "/") {
		errs = append(errs, fmt.Errorf("path %q must start with /", c.Path))
	}
	if !slices.Contains(services.Games(), c.Game) {
		errs = append(errs, fmt.Errorf("unknown game %q (known: %v)", c.Game, services.Games()))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, err)
	}
	if _, err := engine.ParseUnknownServicePolicy(c.UnknownService); err != nil {
		errs = append(errs, err)
	}
	if c.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_message_bytes must be positive, got %d", c.MaxMessageBytes))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

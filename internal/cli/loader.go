package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/serd/internal/config"
	"github.com/roach88/serd/internal/logging"
)

// loadSettings resolves the configuration of a command. Precedence, lowest
// first: defaults, the --config file, SERD_* environment variables, then the
// flags the user actually set (override). The logger writes to the command's
// stderr and becomes the slog default.
func loadSettings(opts *RootOptions, cmd *cobra.Command, override func(*config.Config)) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, nil, WrapExitError(ExitUsage, "failed to load configuration", err)
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if override != nil {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, WrapExitError(ExitUsage, "invalid configuration", err)
	}

	// Both already validated.
	level, _ := logging.ParseLevel(cfg.LogLevel)
	format, _ := logging.ParseFormat(cfg.LogFormat)
	logger := logging.Configure(cmd.ErrOrStderr(), level, format)

	return cfg, logger, nil
}

// changed reports whether the named flag was set on the command line.
func changed(cmd *cobra.Command, name string) bool {
	return cmd.Flags().Changed(name)
}

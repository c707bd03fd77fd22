package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/serd/internal/config"
	"github.com/roach88/serd/internal/engine"
	"github.com/roach88/serd/internal/journal"
	"github.com/roach88/serd/internal/logging"
	"github.com/roach88/serd/internal/mirror"
	"github.com/roach88/serd/internal/ser"
	"github.com/roach88/serd/internal/services"
	"github.com/roach88/serd/internal/transport"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen          string
	Path            string
	Game            string
	Admin           uint64
	UnknownService  string
	Journal         string
	NATSURL         string
	MaxMessageBytes int

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session server",
		Long: `Run the SER session server on a websocket endpoint.

Clients send "LOGIN <name>" first, then SR commands such as
"REQUEST 1 Chat hello", and "LOGOUT" to leave. SIGINT or SIGTERM stops the
server after the current input is handled.

Examples:
  serd serve
  serd serve --listen 0.0.0.0:35555 --admin 0
  serd serve --journal ./serd.db --nats-url nats://localhost:4222
  serd serve --config ./serd.cue --log-level debug`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (host:port)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "websocket endpoint path")
	cmd.Flags().StringVar(&opts.Game, "game", "", "game whose services to run")
	cmd.Flags().Uint64Var(&opts.Admin, "admin", 0, "admin actor id")
	cmd.Flags().StringVar(&opts.UnknownService, "unknown-service", "", "unknown service policy (close|fatal)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite transcript journal")
	cmd.Flags().StringVar(&opts.NATSURL, "nats-url", "", "NATS server to mirror events to")
	cmd.Flags().IntVar(&opts.MaxMessageBytes, "max-message-bytes", 0, "largest accepted client message")

	return cmd
}

func (o *ServeOptions) apply(cmd *cobra.Command) func(*config.Config) {
	return func(c *config.Config) {
		if changed(cmd, "listen") {
			c.Listen = o.Listen
		}
		if changed(cmd, "path") {
			c.Path = o.Path
		}
		if changed(cmd, "game") {
			c.Game = o.Game
		}
		if changed(cmd, "admin") {
			c.AdminActor = o.Admin
		}
		if changed(cmd, "unknown-service") {
			c.UnknownService = o.UnknownService
		}
		if changed(cmd, "journal") {
			c.Journal = o.Journal
		}
		if changed(cmd, "nats-url") {
			c.NATS.URL = o.NATSURL
		}
		if changed(cmd, "max-message-bytes") {
			c.MaxMessageBytes = o.MaxMessageBytes
		}
	}
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, logger, err := loadSettings(opts.RootOptions, cmd, opts.apply(cmd))
	if err != nil {
		return err
	}
	for _, p := range cfg.ResourcePaths {
		logger.Debug("resource search path", "path", p)
	}

	events := ser.NewEventContext()
	svcs, err := services.Build(cfg.Game, events, services.Settings{Admin: cfg.AdminActor})
	if err != nil {
		return WrapExitError(ExitUsage, "failed to build services", err)
	}
	dispatcher, err := ser.NewDispatcher(svcs, ser.WithLogger(logging.Component(logger, "ser")))
	if err != nil {
		return WrapExitError(ExitUsage, "failed to register services", err)
	}

	backend := transport.NewWebsocketBackend(
		logging.Component(logger, "transport"),
		transport.WithMaxMessageBytes(cfg.MaxMessageBytes),
	)

	// Validated by loadSettings.
	policy, _ := engine.ParseUnknownServicePolicy(cfg.UnknownService)
	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	execOpts := []engine.ExecutorOption{
		engine.WithExecutorLogger(logger),
		engine.WithUnknownServicePolicy(policy),
		engine.WithRunIDGenerator(runIDs),
	}

	var jrnl *journal.Journal
	if cfg.Journal != "" {
		jrnl, err = journal.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to open journal", err)
		}
		defer func() {
			if closeErr := jrnl.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		execOpts = append(execOpts, engine.WithObserver(jrnl.Observer()))
	}

	if cfg.NATS.URL != "" {
		m, cleanup, err := mirror.Connect(mirror.Config{
			URL:         cfg.NATS.URL,
			Name:        cfg.NATS.Name,
			Subject:     cfg.NATS.Subject,
			ConnTimeout: 5 * time.Second,
		})
		if err != nil {
			return WrapExitError(ExitFailure, "failed to connect event mirror", err)
		}
		defer cleanup()
		execOpts = append(execOpts, engine.WithObserver(m))
		logger.Info("mirroring events", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
	}

	executor := engine.New(backend, dispatcher, execOpts...)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	if jrnl != nil {
		if err := jrnl.BeginRun(ctx, executor.RunID(), cfg.Game); err != nil {
			return WrapExitError(ExitFailure, "failed to record run", err)
		}
	}

	stopSignals := transport.NotifyStop(ctx, backend)
	defer stopSignals()

	serveErr := make(chan error, 1)
	go func() {
		err := backend.ListenAndServe(ctx, cfg.Listen, cfg.Path)
		if err != nil {
			// Unblocks the executor.
			backend.Close()
		}
		serveErr <- err
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "serd serving %s on ws://%s%s (run %s)\n", cfg.Game, cfg.Listen, cfg.Path, executor.RunID())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	runErr := executor.Run(ctx)
	if runErr != nil && engine.IsCancelled(runErr) && parentCtx.Err() != nil {
		// Cancelled by the caller, not a failure.
		runErr = nil
	}
	backend.Close()
	cancel()
	httpErr := <-serveErr

	if jrnl != nil {
		endRun(jrnl, logger, executor.RunID(), firstErr(runErr, httpErr))
	}

	if httpErr != nil {
		return WrapExitError(ExitFailure, "websocket server failed", httpErr)
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "executor stopped", runErr)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func endRun(j *journal.Journal, logger *slog.Logger, runID string, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.EndRun(ctx, runID, runErr); err != nil {
		logger.Error("failed to record run outcome", "run", runID, "error", err)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

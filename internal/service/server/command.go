package server

import (
	"context"
	"fmt"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/instance"
	"github.com/oshokin/alarm-clock/internal/version"
)

// Options controls the alarm-clock process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// HTTPAddress overrides the face address from the settings file.
	HTTPAddress string
	// GRPCAddress overrides the control API address from the settings file.
	GRPCAddress string
	// LogLevel overrides the log level from the settings file.
	LogLevel string
	// Replace terminates a running instance instead of refusing to start.
	Replace bool
	// SkipInstanceCheck allows several processes, e.g. in tests.
	SkipInstanceCheck bool
}

// Run starts the clock and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-clock")

	// Load configuration first so overrides apply on top of it.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err := applyOverrides(cfg, opts); err != nil {
		return err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if !opts.SkipInstanceCheck {
		guard, err := instance.NewGuard()
		if err != nil {
			return err
		}

		if err := guard.Acquire(ctx, opts.Replace); err != nil {
			return err
		}
	}

	logger.InfoKV(ctx, "Starting alarm clock", "version", version.Short(), "commit", version.Commit)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialise alarm clock: %w", err)
	}

	return a.run(ctx)
}

// applyOverrides puts command line values over the settings file and
// validates the result.
func applyOverrides(cfg *config.Config, opts *Options) error {
	if opts.HTTPAddress != "" {
		cfg.HTTPAddress = opts.HTTPAddress
	}

	if opts.GRPCAddress != "" {
		cfg.GRPCAddress = opts.GRPCAddress
	}

	if opts.LogLevel != "" {
		if _, ok := logger.ParseLogLevel(opts.LogLevel); !ok {
			return fmt.Errorf("unknown log level %q", opts.LogLevel)
		}

		cfg.LogLevel = opts.LogLevel
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	return nil
}

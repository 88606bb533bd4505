package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/service/server"
	"github.com/oshokin/alarm-clock/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// grpcAddress overrides the control API address.
	grpcAddress string
	// logLevel overrides the log level.
	logLevel string
	// replace terminates a running instance first.
	replace bool

	// rootCmd represents the base command for running the alarm clock.
	rootCmd = &cobra.Command{
		Use:   "alarm-clock [listen-address]",
		Short: "Run the analog clock with a daily alarm.",
		Long: `Starts the alarm clock: an analog face served to the browser, a daily alarm and a gRPC control API.

Open the printed URL to see the face, set the alarm time and switch it on or off.
When the clock reaches the alarm minute a short beep repeats every 600ms for 15 seconds,
on the host speaker and in every open page, unless stopped earlier.
The listen address of the face can be provided as argument to override config (e.g., 127.0.0.1:9090).
Only one alarm clock runs per host; use --replace to take over from a running one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use listen address argument if provided, otherwise rely on config.
			var httpAddress string
			if len(args) > 0 {
				httpAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:  configPath,
				HTTPAddress: httpAddress,
				GRPCAddress: grpcAddress,
				LogLevel:    logLevel,
				Replace:     replace,
			}

			return server.Run(ctx, options)
		},
	}
)

// Execute runs the alarm-clock CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&grpcAddress, "grpc", "g", "", "control API listen address")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn or error")
	rootCmd.Flags().BoolVar(&replace, "replace", false, "terminate a running alarm clock first")
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/service/client"
	"github.com/oshokin/alarm-clock/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the control API address from config.
	serverAddress string
	// asJSON prints protobuf JSON instead of text.
	asJSON bool

	// rootCmd represents the base command for controlling the alarm.
	rootCmd = &cobra.Command{
		Use:   "alarm-clockctl",
		Short: "Control a running alarm clock.",
		Long: `Shows and changes the alarm of a running alarm-clock over its gRPC control API.

The server address can be provided with --server or loaded from configuration file.`,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the alarm.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(&client.Options{Action: client.ActionStatus})
		},
	}

	setCmd = &cobra.Command{
		Use:   "set HH:MM",
		Short: "Set the alarm time; an empty argument clears it.",
		Long: `Sets the daily alarm time as a 24-hour HH:MM.

The time cannot change while the alarm is sounding. Setting a time does not switch the alarm on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return run(&client.Options{Action: client.ActionSet, Target: args[0]})
		},
	}

	toggleCmd = &cobra.Command{
		Use:   "toggle",
		Short: "Stop a sounding alarm, otherwise switch the alarm on or off.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(&client.Options{Action: client.ActionToggle})
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print the alarm every second until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(&client.Options{Action: client.ActionWatch})
		},
	}
)

// run fills the shared flags and performs one action.
func run(opts *client.Options) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts.ConfigPath = cfgPath
	opts.ServerAddress = serverAddress
	opts.JSON = asJSON

	return client.Run(ctx, opts)
}

// Execute runs the alarm-clockctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "control API address")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print protobuf JSON")

	rootCmd.AddCommand(statusCmd, setCmd, toggleCmd, watchCmd)
}

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/protobuf/encoding/protojson"

	api "github.com/oshokin/alarm-clock/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-clock/internal/config"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/common"
)

// Action selects what Run does.
type Action int

const (
	// ActionStatus prints the alarm once.
	ActionStatus Action = iota
	// ActionSet sets the target minute.
	ActionSet
	// ActionToggle stops a sounding alarm or flips the enabled flag.
	ActionToggle
	// ActionWatch prints every update until interrupted.
	ActionWatch
)

// Options configures one alarm-clockctl invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides the control API address from config when specified.
	ServerAddress string

	// Action is the operation to perform.
	Action Action

	// Target is the "HH:MM" for ActionSet; empty clears the target.
	Target string

	// Output receives the printed alarm; nil means stdout.
	Output io.Writer

	// JSON prints the raw protobuf JSON of every update.
	JSON bool
}

// defaultReconnectInterval defines the delay before a broken watch reconnects.
const defaultReconnectInterval = 1 * time.Second

var errNoServerAddress = errors.New("no control API address configured")

// Run performs opts.Action against the alarm clock.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "alarm-clockctl")

	// Load settings from configuration file.
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	// Use server address from options if provided, otherwise use config.
	serverAddress := cfg.GRPCAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	if serverAddress == "" {
		return errNoServerAddress
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	clientOptions := []common.Option{common.WithCallTimeout(cfg.Timeout)}

	// Identify current user and hostname for the server log.
	if actor, err := common.DetectActor(); err == nil {
		clientOptions = append(clientOptions, common.WithActor(actor))
	} else {
		logger.DebugKV(ctx, "Unable to detect actor", "error", err)
	}

	client, err := common.Dial(ctx, serverAddress, clientOptions...)
	if err != nil {
		return err
	}

	// Close connection on function exit.
	defer func() {
		_ = client.Close()
	}()

	var update *api.Update

	switch opts.Action {
	case ActionStatus:
		update, err = client.GetState(ctx)
	case ActionSet:
		update, err = client.SetTarget(ctx, opts.Target)
	case ActionToggle:
		update, err = client.Toggle(ctx)
	case ActionWatch:
		return watch(ctx, client, out, opts.JSON)
	default:
		return fmt.Errorf("unknown action %d", opts.Action)
	}

	if err != nil {
		return err
	}

	return printUpdate(out, update, opts.JSON)
}

// watcher streams alarm updates.
type watcher interface {
	Watch(ctx context.Context, fn func(*api.Update) error) error
}

// watch prints updates and reconnects after failures until ctx is done.
// Interrupting it is not an error.
func watch(ctx context.Context, client watcher, out io.Writer, asJSON bool) error {
	show := func(u *api.Update) error {
		return printUpdate(out, u, asJSON)
	}

	ticker := time.NewTicker(defaultReconnectInterval)
	defer ticker.Stop()

	for {
		err := client.Watch(ctx, show)
		if err == nil || ctx.Err() != nil {
			return nil
		}

		// Log error but keep reconnecting for transient failures.
		logger.ErrorKV(ctx, "Watch failed", "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// printUpdate writes one update as a line of text or of protobuf JSON.
func printUpdate(out io.Writer, u *api.Update, asJSON bool) error {
	line := formatUpdate(u)

	if asJSON && u != nil && u.Message != nil {
		data, err := protojson.Marshal(u.Message)
		if err != nil {
			return fmt.Errorf("marshal update: %w", err)
		}

		line = string(data)
	}

	_, err := fmt.Fprintln(out, line)

	return err
}

// formatUpdate renders an update as one line.
func formatUpdate(u *api.Update) string {
	if u == nil || u.Snapshot == nil {
		return "<nil state>"
	}

	s := u.Snapshot

	at := "<unknown>"
	if !u.Time.IsZero() {
		at = u.Time.Format(time.TimeOnly)
	}

	target := s.Target
	if target == "" {
		target = "--:--"
	}

	enabled := "off"
	if s.Enabled {
		enabled = "on"
	}

	line := fmt.Sprintf("%s alarm %s %s (%s)", at, target, enabled, s.State)

	if s.State == domain.StateSounding {
		line += fmt.Sprintf(", %d cues since %s", s.Cues, s.SoundingSince.Format(time.TimeOnly))
	}

	return line
}

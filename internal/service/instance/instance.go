// Package instance keeps a single alarm-clock process per host, so two
// processes never sound the same alarm on one speaker.
package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/oshokin/alarm-clock/internal/logger"
)

var (
	// ErrAlreadyRunning is returned when another process with the same executable runs.
	ErrAlreadyRunning = errors.New("another instance is already running")
	// ErrStillRunning is returned when a terminated instance does not exit in time.
	ErrStillRunning = errors.New("terminated instance is still running")
)

const (
	// exitTimeout bounds the wait for terminated instances to exit and
	// release their listeners.
	exitTimeout = 5 * time.Second
	// exitPollInterval is how often the process list is checked meanwhile.
	exitPollInterval = 100 * time.Millisecond
)

// Guard finds and optionally terminates other processes of an executable.
type Guard struct {
	executable string
	pid        int
	processes  func() ([]ps.Process, error)
	kill       func(pid int) error
	timeout    time.Duration
	interval   time.Duration
}

// NewGuard creates a guard for the current executable.
func NewGuard() (*Guard, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	return &Guard{
		executable: filepath.Base(path),
		pid:        os.Getpid(),
		processes:  ps.Processes,
		kill:       killProcess,
		timeout:    exitTimeout,
		interval:   exitPollInterval,
	}, nil
}

// Others returns the PIDs of other processes running the same executable.
func (g *Guard) Others() ([]int, error) {
	processList, err := g.processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var pids []int

	for _, process := range processList {
		if process.Pid() == g.pid {
			continue
		}

		if !sameExecutable(process.Executable(), g.executable) {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}

// Acquire fails with ErrAlreadyRunning when another instance runs. With
// replace set, the other instances are terminated instead and Acquire returns
// once they have exited.
func (g *Guard) Acquire(ctx context.Context, replace bool) error {
	pids, err := g.Others()
	if err != nil {
		// Process listing is best effort on restricted systems.
		logger.WarnKV(ctx, "Unable to check for other instances", "error", err)
		return nil
	}

	if len(pids) == 0 {
		return nil
	}

	if !replace {
		return fmt.Errorf("%w: %s, pid %v", ErrAlreadyRunning, g.executable, pids)
	}

	for _, pid := range pids {
		logger.InfoKV(ctx, "Terminating previous instance", "executable", g.executable, "pid", pid)

		if err := g.kill(pid); err != nil {
			return fmt.Errorf("terminate pid %d: %w", pid, err)
		}
	}

	return g.waitExit(ctx, pids)
}

// waitExit polls the process list until none of pids is left.
func (g *Guard) waitExit(ctx context.Context, pids []int) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		others, err := g.Others()
		if err != nil {
			return err
		}

		remaining := slices.DeleteFunc(others, func(pid int) bool {
			return !slices.Contains(pids, pid)
		})
		if len(remaining) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: pid %v: %w", ErrStillRunning, remaining, ctx.Err())
		case <-ticker.C:
		}
	}
}

func killProcess(pid int) error {
	runningProcess, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return runningProcess.Kill()
}

// sameExecutable compares process names; Windows names are case-insensitive.
func sameExecutable(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}

	return a == b
}

package instance

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	ps "github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

var errTestList = errors.New("test list error")

// fakeProcess implements ps.Process.
type fakeProcess struct {
	pid        int
	executable string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.executable }

// processTable lists processes; killed ones disappear after exitAfter more
// listings, or never when exitAfter is negative.
type processTable struct {
	mu        sync.Mutex
	processes []ps.Process
	err       error
	killed    []int
	exitAfter int
	listings  int
}

func (p *processTable) list() ([]ps.Process, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}

	if len(p.killed) > 0 {
		p.listings++

		if p.exitAfter >= 0 && p.listings > p.exitAfter {
			p.processes = slices.DeleteFunc(p.processes, func(process ps.Process) bool {
				return slices.Contains(p.killed, process.Pid())
			})
		}
	}

	return slices.Clone(p.processes), nil
}

func (p *processTable) kill(pid int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.killed = append(p.killed, pid)

	return nil
}

func (p *processTable) killedPIDs() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.killed)
}

func newTestGuard(processes []ps.Process, err error) (*Guard, *processTable) {
	table := &processTable{processes: processes, err: err}

	return &Guard{
		executable: "alarm-clock",
		pid:        100,
		processes:  table.list,
		kill:       table.kill,
		timeout:    time.Second,
		interval:   10 * time.Millisecond,
	}, table
}

// TestGuard_Others skips the current process and other executables.
func TestGuard_Others(t *testing.T) {
	t.Parallel()

	g, _ := newTestGuard([]ps.Process{
		fakeProcess{pid: 100, executable: "alarm-clock"},
		fakeProcess{pid: 101, executable: "alarm-clockctl"},
		fakeProcess{pid: 102, executable: "alarm-clock"},
	}, nil)

	pids, err := g.Others()
	require.NoError(t, err)
	require.Equal(t, []int{102}, pids)
}

// TestGuard_Acquire refuses to start next to another instance unless replacing it.
func TestGuard_Acquire(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	others := []ps.Process{fakeProcess{pid: 7, executable: "alarm-clock"}}

	g, table := newTestGuard(others, nil)
	require.ErrorIs(t, g.Acquire(ctx, false), ErrAlreadyRunning)
	require.Empty(t, table.killedPIDs())

	require.NoError(t, g.Acquire(ctx, true))
	require.Equal(t, []int{7}, table.killedPIDs())

	alone, _ := newTestGuard(nil, nil)
	require.NoError(t, alone.Acquire(ctx, false))

	// Listing failures do not block startup.
	broken, _ := newTestGuard(nil, errTestList)
	require.NoError(t, broken.Acquire(ctx, false))

	_, err := broken.Others()
	require.ErrorIs(t, err, errTestList)
}

// TestGuard_AcquireWaitsForExit returns only after replaced instances are gone.
func TestGuard_AcquireWaitsForExit(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		others := []ps.Process{
			fakeProcess{pid: 7, executable: "alarm-clock"},
			fakeProcess{pid: 8, executable: "alarm-clockctl"},
		}

		g, table := newTestGuard(others, nil)
		table.exitAfter = 3

		start := time.Now()
		require.NoError(t, g.Acquire(context.Background(), true))
		require.Equal(t, 3*g.interval, time.Since(start))

		pids, err := g.Others()
		require.NoError(t, err)
		require.Empty(t, pids)
	})
}

// TestGuard_AcquireGivesUp fails when a replaced instance never exits.
func TestGuard_AcquireGivesUp(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		g, table := newTestGuard([]ps.Process{fakeProcess{pid: 7, executable: "alarm-clock"}}, nil)
		table.exitAfter = -1

		start := time.Now()
		err := g.Acquire(context.Background(), true)
		require.ErrorIs(t, err, ErrStillRunning)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, g.timeout, time.Since(start))
	})
}

// TestNewGuard resolves the test binary.
func TestNewGuard(t *testing.T) {
	t.Parallel()

	g, err := NewGuard()
	require.NoError(t, err)
	require.NotEmpty(t, g.executable)
	require.Positive(t, g.pid)
	require.Equal(t, exitTimeout, g.timeout)
}

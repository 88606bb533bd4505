package integration

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/service/server"
)

// testClock is a running alarm-clock process inside the test.
type testClock struct {
	httpAddress string
	grpcAddress string
	configPath  string
}

// startClock runs the alarm clock with a temporary configuration on free
// ports and stops it when the test ends.
func startClock(t *testing.T) *testClock {
	t.Helper()

	tc := &testClock{
		httpAddress: reservePort(t),
		grpcAddress: reservePort(t),
		configPath:  filepath.Join(t.TempDir(), "settings.yaml"),
	}

	cfg := config.Default()
	cfg.HTTPAddress = tc.httpAddress
	cfg.GRPCAddress = tc.grpcAddress
	cfg.Timeout = 3 * time.Second
	cfg.Speaker = false
	cfg.Alarm.TickInterval = 100 * time.Millisecond

	require.NoError(t, config.Save(tc.configPath, cfg))

	// Create cancellable context for server lifecycle.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- server.Run(ctx, &server.Options{
			ConfigPath:        tc.configPath,
			SkipInstanceCheck: true,
		})
	}()

	t.Cleanup(func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("alarm clock did not stop")
		}
	})

	// Wait for the face to answer.
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + tc.httpAddress + "/health") //nolint:noctx // Test polling.
		if err != nil {
			return false
		}

		_ = resp.Body.Close()

		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	return tc
}

// reservePort returns address on a free TCP port and closes it.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	_ = l.Close()

	return addr
}

package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/service/controller"
)

// value reads the current value of a counter or gauge.
func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()

	var m dto.Metric
	require.NoError(t, c.Write(&m))

	if m.GetCounter() != nil {
		return m.GetCounter().GetValue()
	}

	return m.GetGauge().GetValue()
}

// TestMetrics_Events counts cues and soundings and tracks the state gauges.
func TestMetrics_Events(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := New(prometheus.NewRegistry())

	sounding := &domain.Snapshot{Config: domain.Config{Target: "07:00", Enabled: true}, State: domain.StateSounding}

	m.OnEvent(ctx, controller.Event{Kind: controller.EventState, Snapshot: sounding})
	m.OnEvent(ctx, controller.Event{Kind: controller.EventCue, Snapshot: sounding})
	m.OnEvent(ctx, controller.Event{Kind: controller.EventCue, Snapshot: sounding})

	require.InDelta(t, 1, value(t, m.soundings), 0)
	require.InDelta(t, 2, value(t, m.cues), 0)
	require.InDelta(t, 2, value(t, m.state), 0)
	require.InDelta(t, 1, value(t, m.enabled), 0)

	m.OnEvent(ctx, controller.Event{
		Kind:     controller.EventState,
		Snapshot: &domain.Snapshot{Config: domain.Config{Target: "07:00"}},
	})

	require.InDelta(t, 0, value(t, m.state), 0)
	require.InDelta(t, 0, value(t, m.enabled), 0)
	require.InDelta(t, 1, value(t, m.soundings), 0)
}

// TestMetrics_TicksAndClients counts readings and websocket clients.
func TestMetrics_TicksAndClients(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())

	for range 3 {
		m.OnTick(context.Background(), clock.Reading{})
	}

	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()

	require.InDelta(t, 3, value(t, m.ticks), 0)
	require.InDelta(t, 1, value(t, m.clients), 0)
}

// TestNew_RegistersOnce rejects registering the collectors twice.
func TestNew_RegistersOnce(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	New(reg)

	require.Panics(t, func() { New(reg) })
}

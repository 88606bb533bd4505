// Package metrics exports Prometheus metrics of the alarm clock.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/service/controller"
)

const namespace = "alarm_clock"

// Metrics holds the collectors fed by the ticker, the controller and the web hub.
type Metrics struct {
	ticks     prometheus.Counter
	cues      prometheus.Counter
	soundings prometheus.Counter
	state     prometheus.Gauge
	enabled   prometheus.Gauge
	clients   prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Number of clock readings published",
		}),
		cues: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cues_total",
			Help:      "Number of alarm cues played",
		}),
		soundings: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "soundings_total",
			Help:      "Number of times the alarm started sounding",
		}),
		state: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "Alarm state: 0 idle, 1 armed, 2 sounding",
		}),
		enabled: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enabled",
			Help:      "Whether the alarm is enabled",
		}),
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Number of connected browser faces",
		}),
	}
}

// OnTick counts a clock reading.
func (m *Metrics) OnTick(context.Context, clock.Reading) {
	m.ticks.Inc()
}

// OnEvent records a controller event.
func (m *Metrics) OnEvent(_ context.Context, e controller.Event) {
	if e.Kind == controller.EventCue {
		m.cues.Inc()
		return
	}

	if e.Snapshot.State == domain.StateSounding {
		m.soundings.Inc()
	}

	m.state.Set(float64(e.Snapshot.State))

	if e.Snapshot.Enabled {
		m.enabled.Set(1)
	} else {
		m.enabled.Set(0)
	}
}

// ClientConnected counts a websocket client in.
func (m *Metrics) ClientConnected() {
	m.clients.Inc()
}

// ClientDisconnected counts a websocket client out.
func (m *Metrics) ClientDisconnected() {
	m.clients.Dec()
}

package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/alarm-clock/internal/audio"
	"github.com/oshokin/alarm-clock/internal/clock"
	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/metrics"
	"github.com/oshokin/alarm-clock/internal/service/controller"
)

// fixedClock always reads the same instant.
type fixedClock struct {
	reading clock.Reading
}

func (c fixedClock) Last() clock.Reading { return c.reading }

// morning is 2024-06-01 07:00:15 UTC.
var morning = clock.Reading{Time: time.Date(2024, time.June, 1, 7, 0, 15, 0, time.UTC)}

type fixture struct {
	server  *Server
	ctrl    *controller.Controller
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, locale string) *fixture {
	t.Helper()

	readout, err := clock.NewReadout(locale)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ctrl := controller.New(nil)

	s, err := NewServer(&Options{
		Alarm:    ctrl,
		Clock:    fixedClock{reading: morning},
		Readout:  readout,
		Cue:      audio.NewCue(8000, audio.DefaultShape()),
		Hub:      NewHub(m),
		Gatherer: reg,
	})
	require.NoError(t, err)

	t.Cleanup(ctrl.Close)

	return &fixture{server: s, ctrl: ctrl, metrics: m}
}

func (f *fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, *frame) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") || rec.Code != http.StatusOK {
		return rec, nil
	}

	var got frame
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	return rec, &got
}

// TestNewServer_RequiresOptions rejects incomplete options.
func TestNewServer_RequiresOptions(t *testing.T) {
	t.Parallel()

	_, err := NewServer(nil)
	require.ErrorIs(t, err, errMissingOption)

	_, err = NewServer(&Options{Alarm: controller.New(nil)})
	require.ErrorIs(t, err, errMissingOption)
}

// TestServer_Index renders the face with Japanese labels by default.
func TestServer_Index(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "ja-JP")

	rec, _ := f.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, `<html lang="ja">`)
	require.Contains(t, body, `viewBox="0 0 400 400"`)
	require.Contains(t, body, "アラーム設定")
	require.Contains(t, body, "アラーム: オフ")
	require.Contains(t, body, ">OFF</button>")
	require.Contains(t, body, "7:00:15")
	require.Equal(t, 12+48+3, strings.Count(body, "<line "))
	require.Equal(t, 12, strings.Count(body, "<text "))

	// The second hand at 15s points at 3 o'clock.
	require.Contains(t, body, `id="hand-second" data-length="120" x1="200.00" y1="200.00" x2="320.00" y2="200.00"`)
}

// TestServer_IndexEnglish picks English labels for other locales.
func TestServer_IndexEnglish(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "en-US")

	rec, _ := f.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Alarm: off")
	require.Contains(t, rec.Body.String(), "7:00:15 AM")
}

// TestServer_API drives the alarm through the JSON endpoints.
func TestServer_API(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "ja-JP")

	_, state := f.do(t, http.MethodGet, "/api/state", "")
	require.NotNil(t, state)
	require.Equal(t, frameState, state.Type)
	require.Equal(t, "7:00:15", state.Readout)
	require.Equal(t, "off", state.Alarm.Status)
	require.InDelta(t, 0, state.Hands.Second, 1e-9)

	rec, _ := f.do(t, http.MethodPut, "/api/alarm", `{"target":"7:00"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"error"`)

	rec, _ = f.do(t, http.MethodPut, "/api/alarm", `{"target":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	_, state = f.do(t, http.MethodPut, "/api/alarm", `{"target":"07:00"}`)
	require.NotNil(t, state)
	require.Equal(t, "07:00", state.Alarm.Target)
	require.Equal(t, "idle", state.Alarm.State)

	_, state = f.do(t, http.MethodPost, "/api/alarm/toggle", "")
	require.NotNil(t, state)
	require.Equal(t, "armed", state.Alarm.State)
	require.Equal(t, "⏰ アラーム設定: 07:00", state.Alarm.StatusText)
	require.Equal(t, "ON", state.Alarm.Button)

	f.ctrl.OnTick(context.Background(), morning)

	_, state = f.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, "sounding", state.Alarm.Status)
	require.Equal(t, "アラーム停止", state.Alarm.Button)
	require.NotNil(t, state.Alarm.SoundingSince)

	rec, _ = f.do(t, http.MethodPut, "/api/alarm", `{"target":"08:00"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	_, state = f.do(t, http.MethodPost, "/api/alarm/toggle", "")
	require.Equal(t, "idle", state.Alarm.State)
	require.False(t, state.Alarm.Enabled)
	require.Equal(t, "07:00", state.Alarm.Target)

	f.ctrl.Close()

	rec, _ = f.do(t, http.MethodPost, "/api/alarm/toggle", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// TestServer_AccessLogLevel filters request logs by their own level, not the
// level of the base logger.
func TestServer_AccessLogLevel(t *testing.T) {
	t.Parallel()

	readout, err := clock.NewReadout("ja-JP")
	require.NoError(t, err)

	newServer := func(level zapcore.Level) (*Server, *controller.Controller, *bytes.Buffer) {
		var buf bytes.Buffer

		ctrl := controller.New(nil)
		t.Cleanup(ctrl.Close)

		s, err := NewServer(&Options{
			Alarm:          ctrl,
			Clock:          fixedClock{reading: morning},
			Readout:        readout,
			Gatherer:       prometheus.NewRegistry(),
			Logger:         logger.New(zapcore.ErrorLevel, &buf),
			AccessLogLevel: level,
		})
		require.NoError(t, err)

		return s, ctrl, &buf
	}

	serve := func(s *Server, method, target string) int {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))

		return rec.Code
	}

	// Info logs every request even though the base logger only passes errors.
	s, _, buf := newServer(zapcore.InfoLevel)
	require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health"))
	require.Contains(t, buf.String(), "HTTP request")
	require.Contains(t, buf.String(), "/health")

	// Warn keeps successful requests quiet and reports failures.
	s, ctrl, buf := newServer(zapcore.WarnLevel)
	require.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health"))
	require.Empty(t, buf.String())

	ctrl.Close()
	require.Equal(t, http.StatusServiceUnavailable, serve(s, http.MethodPost, "/api/alarm/toggle"))
	require.Contains(t, buf.String(), "/api/alarm/toggle")
	require.Contains(t, buf.String(), "503")
}

// TestServer_StaticEndpoints serves the cue, health and metrics.
func TestServer_StaticEndpoints(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "ja-JP")

	rec, _ := f.do(t, http.MethodGet, "/cue.wav", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	require.Equal(t, "RIFF", rec.Body.String()[:4])
	require.Equal(t, "WAVE", rec.Body.String()[8:12])

	rec, _ = f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	f.metrics.OnTick(context.Background(), morning)

	rec, _ = f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "alarm_clock_ticks_total 1")

	rec, _ = f.do(t, http.MethodGet, "/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestServer_Websocket streams the initial state, ticks, state changes and cues.
func TestServer_Websocket(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "ja-JP")
	ts := httptest.NewServer(f.server.Handler())

	defer ts.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
		_ = conn.Close()
	}()

	read := func() *frame {
		t.Helper()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

		var got frame
		require.NoError(t, conn.ReadJSON(&got))

		return &got
	}

	first := read()
	require.Equal(t, frameState, first.Type)
	require.Equal(t, "off", first.Alarm.Status)

	require.Eventually(t, func() bool { return f.server.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	f.server.OnTick(ctx, clock.Reading{Time: time.Date(2024, time.June, 1, 0, 30, 0, 0, time.UTC)})

	tick := read()
	require.Equal(t, frameTick, tick.Type)
	require.Equal(t, "0:30:00", tick.Readout)
	require.InDelta(t, 90, tick.Hands.Minute, 1e-9)
	require.Nil(t, tick.Alarm)

	unsubscribe := f.ctrl.Subscribe(f.server.OnEvent)
	defer unsubscribe()

	_, err = f.ctrl.SetTarget(ctx, "07:00")
	require.NoError(t, err)

	changed := read()
	require.Equal(t, frameState, changed.Type)
	require.Equal(t, "07:00", changed.Alarm.Target)

	f.server.OnEvent(ctx, controller.Event{
		Kind:     controller.EventCue,
		Snapshot: &domain.Snapshot{Config: domain.Config{Target: "07:00", Enabled: true}, State: domain.StateSounding},
	})

	cue := read()
	require.Equal(t, frameCue, cue.Type)
	require.Equal(t, "sounding", cue.Alarm.State)

	f.server.hub.Close()
	require.Eventually(t, func() bool { return f.server.hub.Len() == 0 }, time.Second, 5*time.Millisecond)
}

// TestServer_WebsocketAfterClose turns browsers away once the hub is closed.
func TestServer_WebsocketAfterClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "ja-JP")
	ts := httptest.NewServer(f.server.Handler())

	defer ts.Close()

	f.server.hub.Close()

	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
		_ = conn.Close()
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
	require.Zero(t, f.server.hub.Len())
}

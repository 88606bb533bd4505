package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing address.
	require.Error(t, Validate(new(Config)))

	// Bad address.
	require.Error(t, Validate(&Config{HTTPAddress: "bad:address"}))

	// Bad grpc address.
	require.Error(t, Validate(&Config{HTTPAddress: "127.0.0.1:0", GRPCAddress: "nope"}))

	// Bad locale.
	require.Error(t, Validate(&Config{HTTPAddress: "127.0.0.1:0", Locale: "not a locale!"}))

	// Bad zone.
	require.Error(t, Validate(&Config{HTTPAddress: "127.0.0.1:0", TimeZone: "Mars/Olympus"}))

	// Bad access log level.
	err := Validate(&Config{HTTPAddress: "127.0.0.1:0", AccessLogLevel: "loud"})
	require.ErrorIs(t, err, errUnknownLevel)
	require.NoError(t, Validate(&Config{HTTPAddress: "127.0.0.1:0", AccessLogLevel: "Info"}))

	// Defaults filled.
	cfg := &Config{HTTPAddress: "127.0.0.1:0"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultTimeout, cfg.Timeout)
	require.Equal(t, DefaultLocale, cfg.Locale)
	require.Equal(t, DefaultAccessLogLevel, cfg.AccessLogLevel)
	require.Equal(t, DefaultTickInterval, cfg.Alarm.TickInterval)
	require.Equal(t, DefaultCueInterval, cfg.Alarm.CueInterval)
	require.Equal(t, DefaultAlarmDuration, cfg.Alarm.Duration)
	require.InDelta(t, DefaultToneFrequency, cfg.Tone.Frequency, 0)
	require.Equal(t, DefaultSampleRate, cfg.Tone.SampleRate)
}

// TestValidate_Timing rejects cadences the alarm cannot honour.
func TestValidate_Timing(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		HTTPAddress: "127.0.0.1:0",
		Alarm: Alarm{
			CueInterval: time.Second,
			Duration:    500 * time.Millisecond,
		},
	}
	require.ErrorIs(t, Validate(cfg), errInvalidTiming)

	cfg = &Config{
		HTTPAddress: "127.0.0.1:0",
		Alarm:       Alarm{TickInterval: 2 * time.Minute},
	}
	require.ErrorIs(t, Validate(cfg), errInvalidTiming)
}

// TestValidate_Tone rejects cue shapes that cannot be rendered.
func TestValidate_Tone(t *testing.T) {
	t.Parallel()

	cases := []Tone{
		{Peak: 1.5},
		{Peak: 0.2, Floor: 0.3},
		{Attack: time.Second, Length: 500 * time.Millisecond},
		{Frequency: 30000, SampleRate: 44100},
		{File: filepath.Join(t.TempDir(), "missing.wav")},
	}

	for _, tone := range cases {
		cfg := &Config{HTTPAddress: "127.0.0.1:0", Tone: tone}
		require.ErrorIs(t, Validate(cfg), errInvalidTone, "%+v", tone)
	}
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	cfg := &Config{
		HTTPAddress: "127.0.0.1:8081",
		GRPCAddress: "127.0.0.1:50052",
		Locale:      "en-US",
		TimeZone:    "UTC",
		Alarm: Alarm{
			CueInterval: 700 * time.Millisecond,
			Duration:    10 * time.Second,
		},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.HTTPAddress, loaded.HTTPAddress)
	require.Equal(t, cfg.GRPCAddress, loaded.GRPCAddress)
	require.Equal(t, "en-US", loaded.Locale)
	require.Equal(t, 700*time.Millisecond, loaded.Alarm.CueInterval)
	require.Equal(t, 10*time.Second, loaded.Alarm.Duration)

	loc, err := loaded.Location()
	require.NoError(t, err)
	require.Equal(t, "UTC", loc.String())

	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_MissingExplicitFile fails while an unset path falls back to defaults.
func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	require.Error(t, Save("", nil))
}

// TestDefault is valid and keeps the original widget's cue shape.
func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultHTTPAddress, cfg.HTTPAddress)
	require.True(t, cfg.Speaker)
	require.InDelta(t, 0.3, cfg.Tone.Peak, 1e-9)
	require.Equal(t, 500*time.Millisecond, cfg.Tone.Length)
}

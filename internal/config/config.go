package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by alarm-clock and alarm-clockctl.
type Config struct {
	// HTTPAddress is where the browser face, REST API and metrics are served.
	HTTPAddress string `yaml:"http_addr"`
	// GRPCAddress is the control API address; empty disables it.
	GRPCAddress string `yaml:"grpc_addr"`
	// Timeout bounds client RPC calls and server shutdown.
	Timeout time.Duration `yaml:"timeout"`
	// Locale is the BCP 47 tag used for the digital readout.
	Locale string `yaml:"locale"`
	// TimeZone is an IANA zone name; empty means the host's local zone.
	TimeZone string `yaml:"time_zone"`
	// LogLevel is the minimum level of the global logger.
	LogLevel string `yaml:"log_level"`
	// AccessLogLevel is the minimum level of the HTTP access log, independent
	// of LogLevel. Requests are logged at info, failed ones at warn.
	AccessLogLevel string `yaml:"access_log_level"`
	// Alarm controls the ticker and the sounding cadence.
	Alarm Alarm `yaml:"alarm"`
	// Tone describes the cue played while the alarm sounds.
	Tone Tone `yaml:"tone"`
	// Speaker plays cues on the host audio device.
	Speaker bool `yaml:"speaker"`
	// Notify shows a desktop notification when the alarm starts sounding.
	Notify bool `yaml:"notify"`
}

// Alarm holds the timing of the clock and of a sounding alarm.
type Alarm struct {
	// TickInterval is the clock sampling period.
	TickInterval time.Duration `yaml:"tick_interval"`
	// CueInterval is the period between cues while sounding.
	CueInterval time.Duration `yaml:"cue_interval"`
	// Duration is how long the alarm sounds before stopping by itself.
	Duration time.Duration `yaml:"duration"`
}

// Tone describes a single cue.
type Tone struct {
	// Frequency of the sine wave in Hz.
	Frequency float64 `yaml:"frequency"`
	// Peak gain reached at the end of the attack.
	Peak float64 `yaml:"peak"`
	// Floor gain reached at the end of the decay.
	Floor float64 `yaml:"floor"`
	// Attack is the linear ramp from silence to Peak.
	Attack time.Duration `yaml:"attack"`
	// Length is the total cue length; the decay fills Length-Attack.
	Length time.Duration `yaml:"length"`
	// SampleRate of the rendered cue.
	SampleRate int `yaml:"sample_rate"`
	// File replaces the synthesized tone with a wav, mp3 or flac file.
	File string `yaml:"file"`
}

const (
	// DefaultConfigFilename is the default settings filename.
	DefaultConfigFilename = "alarm-clock-settings.yaml"

	// DefaultHTTPAddress serves the face on localhost only.
	DefaultHTTPAddress = "127.0.0.1:8080"

	// DefaultGRPCAddress is the default control API address.
	DefaultGRPCAddress = "127.0.0.1:50051"

	// DefaultTimeout is the default duration for RPC calls and shutdown.
	DefaultTimeout = 5 * time.Second

	// DefaultLocale matches the readout of the original widget.
	DefaultLocale = "ja-JP"

	// DefaultAccessLogLevel keeps the access log to failed requests.
	DefaultAccessLogLevel = "warn"

	// DefaultTickInterval is the clock sampling period.
	DefaultTickInterval = time.Second

	// DefaultCueInterval is the period between cues.
	DefaultCueInterval = 600 * time.Millisecond

	// DefaultAlarmDuration is the automatic stop deadline.
	DefaultAlarmDuration = 15 * time.Second

	// DefaultToneFrequency is the cue pitch in Hz.
	DefaultToneFrequency = 800

	// DefaultTonePeak is the gain at the end of the attack.
	DefaultTonePeak = 0.3

	// DefaultToneFloor is the gain the decay ends at.
	DefaultToneFloor = 0.001

	// DefaultToneAttack is the linear attack length.
	DefaultToneAttack = 100 * time.Millisecond

	// DefaultToneLength is the total cue length.
	DefaultToneLength = 500 * time.Millisecond

	// DefaultSampleRate is the cue sample rate.
	DefaultSampleRate = 44100

	// DefaultFilePermissions is the permission used when saving settings.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errHTTPAddressRequired is returned when the HTTP address is missing.
	errHTTPAddressRequired = errors.New("http address must be provided")
	// errInvalidTiming is returned when alarm timings contradict each other.
	errInvalidTiming = errors.New("invalid alarm timing")
	// errInvalidTone is returned when the cue shape cannot be rendered.
	errInvalidTone = errors.New("invalid tone")
	// errUnknownLevel is returned for an access log level zap does not know.
	errUnknownLevel = errors.New("unknown access log level")
)

//nolint:gochecknoglobals // Static lookup table.
var knownLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Default returns the settings used when no settings file exists.
func Default() *Config {
	cfg := &Config{
		HTTPAddress: DefaultHTTPAddress,
		GRPCAddress: DefaultGRPCAddress,
		Speaker:     true,
	}

	// Defaults are always valid.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from path and validates it. A missing file at the
// default path yields Default(); a missing file at an explicit path is an error.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields, fills defaults and rejects settings the
// clock cannot run with.
//
//nolint:cyclop // A flat list of checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg.HTTPAddress == "" {
		return errHTTPAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.HTTPAddress); err != nil {
		return fmt.Errorf("invalid http address: %w", err)
	}

	if cfg.GRPCAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.GRPCAddress); err != nil {
			return fmt.Errorf("invalid grpc address: %w", err)
		}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}

	if cfg.AccessLogLevel == "" {
		cfg.AccessLogLevel = DefaultAccessLogLevel
	}

	if !knownLevels[strings.ToLower(cfg.AccessLogLevel)] {
		return fmt.Errorf("%w: %q", errUnknownLevel, cfg.AccessLogLevel)
	}

	if _, err := language.Parse(cfg.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", cfg.Locale, err)
	}

	if _, err := cfg.Location(); err != nil {
		return err
	}

	if err := validateAlarm(&cfg.Alarm); err != nil {
		return err
	}

	return validateTone(&cfg.Tone)
}

// Location resolves TimeZone, defaulting to the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}

	return loc, nil
}

func validateAlarm(a *Alarm) error {
	if a.TickInterval <= 0 {
		a.TickInterval = DefaultTickInterval
	}

	if a.CueInterval <= 0 {
		a.CueInterval = DefaultCueInterval
	}

	if a.Duration <= 0 {
		a.Duration = DefaultAlarmDuration
	}

	if a.Duration < a.CueInterval {
		return fmt.Errorf("%w: duration %s is shorter than cue interval %s", errInvalidTiming, a.Duration, a.CueInterval)
	}

	if a.TickInterval > time.Minute {
		return fmt.Errorf("%w: tick interval %s would skip minutes", errInvalidTiming, a.TickInterval)
	}

	return nil
}

func validateTone(t *Tone) error {
	if t.Frequency <= 0 {
		t.Frequency = DefaultToneFrequency
	}

	if t.Peak <= 0 {
		t.Peak = DefaultTonePeak
	}

	if t.Floor <= 0 {
		t.Floor = DefaultToneFloor
	}

	if t.Attack <= 0 {
		t.Attack = DefaultToneAttack
	}

	if t.Length <= 0 {
		t.Length = DefaultToneLength
	}

	if t.SampleRate <= 0 {
		t.SampleRate = DefaultSampleRate
	}

	switch {
	case t.Peak > 1:
		return fmt.Errorf("%w: peak %.3f above 1", errInvalidTone, t.Peak)
	case t.Floor >= t.Peak:
		return fmt.Errorf("%w: floor %.3f not below peak %.3f", errInvalidTone, t.Floor, t.Peak)
	case t.Attack >= t.Length:
		return fmt.Errorf("%w: attack %s not shorter than length %s", errInvalidTone, t.Attack, t.Length)
	case t.Frequency*2 >= float64(t.SampleRate):
		return fmt.Errorf("%w: frequency %.0fHz above Nyquist for %dHz", errInvalidTone, t.Frequency, t.SampleRate)
	}

	if t.File != "" {
		if _, err := os.Stat(t.File); err != nil {
			return fmt.Errorf("%w: cue file: %w", errInvalidTone, err)
		}
	}

	return nil
}

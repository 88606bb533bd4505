package alarm

import (
	"errors"
	"fmt"
	"time"
)

// State is the runtime state of the alarm.
type State int

const (
	// StateIdle means no target is set or the alarm is disabled.
	StateIdle State = iota
	// StateArmed means the alarm is enabled and waits for its target minute.
	StateArmed
	// StateSounding means cues are playing until a manual stop or the deadline.
	StateSounding
)

// String returns the lower-case state name used on the wire.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateSounding:
		return "sounding"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	for _, st := range []State{StateIdle, StateArmed, StateSounding} {
		if st.String() == s {
			return st, nil
		}
	}

	return StateIdle, fmt.Errorf("unknown alarm state %q", s)
}

// Status is the line shown under the clock.
type Status int

const (
	// StatusNone shows nothing: the alarm is enabled but has no target.
	StatusNone Status = iota
	// StatusOff shows that the alarm is disabled.
	StatusOff
	// StatusArmed shows the target the alarm waits for.
	StatusArmed
	// StatusSounding shows that the alarm is ringing.
	StatusSounding
)

// String returns the status name used on the wire.
func (s Status) String() string {
	switch s {
	case StatusOff:
		return "off"
	case StatusArmed:
		return "armed"
	case StatusSounding:
		return "sounding"
	default:
		return "none"
	}
}

// TargetLayout is the time layout of alarm targets and minute keys.
const TargetLayout = "15:04"

// ErrInvalidTarget is returned for targets that are not 24-hour "HH:MM".
var ErrInvalidTarget = errors.New("target must be a 24-hour HH:MM time")

// ParseTarget validates a target. The empty string clears the target.
func ParseTarget(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	if len(s) != len(TargetLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}

	t, err := time.Parse(TargetLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}

	return t.Format(TargetLayout), nil
}

// Config is what the user controls: the target minute and the enable flag.
type Config struct {
	// Target is "" or a 24-hour "HH:MM".
	Target string
	// Enabled is the user's on/off toggle.
	Enabled bool
}

// Snapshot is a point-in-time copy of the alarm.
type Snapshot struct {
	Config

	// State is the runtime state.
	State State
	// SoundingSince is when the current sounding started; zero otherwise.
	SoundingSince time.Time
	// Cues counts cues played in the current sounding.
	Cues int
}

// Status derives the displayed status line. Sounding wins over everything;
// a disabled alarm shows off; an enabled alarm shows its target if it has one.
func (s *Snapshot) Status() Status {
	switch {
	case s.State == StateSounding:
		return StatusSounding
	case !s.Enabled:
		return StatusOff
	case s.Target != "":
		return StatusArmed
	default:
		return StatusNone
	}
}

// Clone returns a copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

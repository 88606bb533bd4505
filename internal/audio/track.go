package audio

import (
	"context"
	"errors"
	"sync"

	"github.com/faiface/beep"
)

// ErrUnavailable means no audio output exists. Callers treat it as a
// silent fallback, never as a failure of the alarm.
var ErrUnavailable = errors.New("audio output unavailable")

// Track mixes the cues in flight. It is a never-ending beep.Streamer meant to
// be played once by an output device; Play adds a cue and Stop silences
// every cue in flight.
type Track struct {
	cue *Cue

	mu     sync.Mutex
	mixer  beep.Mixer
	active int
}

// NewTrack creates a track playing cue.
func NewTrack(cue *Cue) *Track {
	return &Track{cue: cue}
}

// Play starts one cue. Cues may overlap.
func (t *Track) Play(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active++
	t.mixer.Add(beep.Seq(t.cue.Streamer(), beep.Callback(func() {
		// Runs inside Stream, which holds mu.
		t.active--
	})))

	return nil
}

// Stop drops every cue in flight. Stopping a track whose cues have already
// finished does nothing.
func (t *Track) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == 0 {
		return
	}

	t.mixer.Clear()
	t.active = 0
}

// Active returns the number of cues still playing.
func (t *Track) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.active
}

// Stream implements beep.Streamer.
func (t *Track) Stream(samples [][2]float64) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.mixer.Stream(samples)
}

// Err implements beep.Streamer.
func (t *Track) Err() error {
	return nil
}

// Discard is a player for hosts configured without audio output.
type Discard struct{}

// Play does nothing.
func (Discard) Play(context.Context) error { return nil }

// Stop does nothing.
func (Discard) Stop() {}

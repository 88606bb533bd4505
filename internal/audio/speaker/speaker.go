// Package speaker plays cues on the host audio device.
package speaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"

	"github.com/oshokin/alarm-clock/internal/audio"
	"github.com/oshokin/alarm-clock/internal/logger"
)

// bufferLength is the device buffer; shorter means lower cue latency.
const bufferLength = 50 * time.Millisecond

// Output opens the audio device on the first cue. When the device cannot be
// opened it logs one warning and every later Play returns audio.ErrUnavailable.
type Output struct {
	track *audio.Track
	rate  beep.SampleRate

	once    sync.Once
	openErr error
}

// New creates an output for cue. Nothing is opened until the first Play.
func New(cue *audio.Cue) *Output {
	return &Output{
		track: audio.NewTrack(cue),
		rate:  cue.Format().SampleRate,
	}
}

// Play starts one cue on the device.
func (o *Output) Play(ctx context.Context) error {
	o.once.Do(func() { o.open(ctx) })

	if o.openErr != nil {
		return o.openErr
	}

	return o.track.Play(ctx)
}

// Stop silences every cue in flight; a no-op when they already finished.
func (o *Output) Stop() {
	o.track.Stop()
}

// Close releases the device if it was opened.
func (o *Output) Close() {
	o.once.Do(func() { o.openErr = audio.ErrUnavailable })

	if o.openErr == nil {
		speaker.Close()
	}
}

func (o *Output) open(ctx context.Context) {
	if err := speaker.Init(o.rate, o.rate.N(bufferLength)); err != nil {
		o.openErr = fmt.Errorf("%w: %w", audio.ErrUnavailable, err)

		logger.WarnKV(ctx, "Audio output is not available, cues will be silent", "error", err)

		return
	}

	speaker.Play(o.track)

	logger.DebugKV(ctx, "Audio output opened", "sample_rate", int(o.rate))
}

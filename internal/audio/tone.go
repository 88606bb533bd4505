package audio

import (
	"math"
	"time"

	"github.com/faiface/beep"
)

// Shape describes a synthesized cue: a sine wave with a linear attack from
// silence to Peak followed by an exponential decay to Floor at Length.
type Shape struct {
	Frequency float64
	Peak      float64
	Floor     float64
	Attack    time.Duration
	Length    time.Duration
}

// DefaultShape is an 800Hz beep reaching 0.3 after 100ms and fading to
// 0.001 at 500ms.
func DefaultShape() Shape {
	return Shape{
		Frequency: 800,
		Peak:      0.3,
		Floor:     0.001,
		Attack:    100 * time.Millisecond,
		Length:    500 * time.Millisecond,
	}
}

// Gain returns the envelope value at offset d into the cue.
func (s Shape) Gain(d time.Duration) float64 {
	switch {
	case d <= 0:
		return 0
	case d < s.Attack:
		return s.Peak * float64(d) / float64(s.Attack)
	case d >= s.Length:
		return s.Floor
	}

	progress := float64(d-s.Attack) / float64(s.Length-s.Attack)

	return s.Peak * math.Pow(s.Floor/s.Peak, progress)
}

// Tone streams the cue described by s at sample rate sr. It ends after
// Length worth of samples.
func Tone(sr beep.SampleRate, s Shape) beep.Streamer {
	total := sr.N(s.Length)
	step := 2 * math.Pi * s.Frequency / float64(sr)
	pos := 0

	return beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= total {
			return 0, false
		}

		n := 0

		for i := range samples {
			if pos >= total {
				break
			}

			v := s.Gain(sr.D(pos)) * math.Sin(step*float64(pos))
			samples[i][0], samples[i][1] = v, v
			pos++
			n++
		}

		return n, true
	})
}

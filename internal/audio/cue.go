package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/wav"
)

// resampleQuality is beep's resampler quality for cue files.
const resampleQuality = 4

// ErrUnsupportedFormat is returned for cue files other than wav, mp3 or flac.
var ErrUnsupportedFormat = errors.New("unsupported cue file format")

// Cue is a rendered sound kept in memory.
type Cue struct {
	buffer *beep.Buffer
}

// NewCue renders a synthesized tone.
func NewCue(sr beep.SampleRate, s Shape) *Cue {
	buffer := beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: 1, Precision: 2})
	buffer.Append(Tone(sr, s))

	return &Cue{buffer: buffer}
}

// LoadCue decodes a wav, mp3 or flac file and resamples it to sr.
func LoadCue(path string, sr beep.SampleRate) (*Cue, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open cue file: %w", err)
	}

	defer func() {
		// The decoder may already have closed it.
		_ = f.Close()
	}()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err != nil {
		return nil, fmt.Errorf("decode cue file: %w", err)
	}

	defer func() {
		_ = streamer.Close()
	}()

	var source beep.Streamer = streamer
	if format.SampleRate != sr {
		source = beep.Resample(resampleQuality, format.SampleRate, sr, streamer)
	}

	buffer := beep.NewBuffer(beep.Format{SampleRate: sr, NumChannels: format.NumChannels, Precision: 2})
	buffer.Append(source)

	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("read cue file: %w", err)
	}

	return &Cue{buffer: buffer}, nil
}

// Format returns the cue's format.
func (c *Cue) Format() beep.Format {
	return c.buffer.Format()
}

// Len returns the cue length in samples.
func (c *Cue) Len() int {
	return c.buffer.Len()
}

// Duration returns the cue length.
func (c *Cue) Duration() time.Duration {
	return c.buffer.Format().SampleRate.D(c.buffer.Len())
}

// Streamer returns a fresh streamer over the whole cue.
func (c *Cue) Streamer() beep.StreamSeeker {
	return c.buffer.Streamer(0, c.buffer.Len())
}

// EncodeWAV writes the cue as a 16-bit WAV file.
func (c *Cue) EncodeWAV(w io.Writer) error {
	var buf seekBuffer
	if err := wav.Encode(&buf, c.Streamer(), c.Format()); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}

	if _, err := w.Write(buf.data); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}

	return nil
}

// seekBuffer is an in-memory io.WriteSeeker; wav.Encode seeks back to patch
// the header sizes.
type seekBuffer struct {
	data []byte
	pos  int
}

var errNegativeOffset = errors.New("negative seek offset")

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}

	n := copy(b.data[b.pos:], p)
	b.pos += n

	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var base int64

	switch whence {
	case io.SeekCurrent:
		base = int64(b.pos)
	case io.SeekEnd:
		base = int64(len(b.data))
	}

	next := base + offset
	if next < 0 {
		return 0, errNegativeOffset
	}

	b.pos = int(next)

	return next, nil
}

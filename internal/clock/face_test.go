package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(h, m, s int) time.Time {
	return time.Date(2024, time.March, 10, h, m, s, 0, time.UTC)
}

// TestHandsAt checks the rotation formulas at well-known instants.
func TestHandsAt(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		at   time.Time
		want Hands
	}{
		{"midnight", at(0, 0, 0), Hands{Hour: -90, Minute: -90, Second: -90}},
		{"quarter past second", at(0, 0, 15), Hands{Hour: -90, Minute: -88.5, Second: 0}},
		{"half past", at(0, 30, 0), Hands{Hour: -75, Minute: 90, Second: -90}},
		{"one o'clock", at(1, 0, 0), Hands{Hour: -60, Minute: -90, Second: -90}},
		{"three o'clock", at(3, 0, 0), Hands{Hour: 0, Minute: -90, Second: -90}},
		{"fifteen hundred", at(15, 0, 0), Hands{Hour: 0, Minute: -90, Second: -90}},
		{"late", at(23, 59, 59), Hands{Hour: 269.5, Minute: 269.9, Second: 264}},
	}

	for _, tc := range cases {
		got := HandsAt(tc.at)
		require.InDelta(t, tc.want.Hour, got.Hour, 1e-9, tc.name)
		require.InDelta(t, tc.want.Minute, got.Minute, 1e-9, tc.name)
		require.InDelta(t, tc.want.Second, got.Second, 1e-9, tc.name)
	}
}

// TestNewFace checks mark counts and a few anchor positions.
func TestNewFace(t *testing.T) {
	t.Parallel()

	f := NewFace()
	require.Len(t, f.HourMarks, 12)
	require.Len(t, f.MinuteMarks, 48)
	require.Len(t, f.Numerals, 12)

	// First hour mark points at 12 o'clock.
	top := f.HourMarks[0]
	require.InDelta(t, FaceCenter, top.From.X, 1e-9)
	require.InDelta(t, FaceCenter-HourMarkInner, top.From.Y, 1e-9)
	require.InDelta(t, FaceCenter-MarkOuterRadius, top.To.Y, 1e-9)

	// Numeral 3 sits on the right, shifted down to its baseline.
	three := f.Numerals[2]
	require.Equal(t, "3", three.Label)
	require.InDelta(t, FaceCenter+NumeralRadius, three.At.X, 1e-9)
	require.InDelta(t, FaceCenter+NumeralBaseline, three.At.Y, 1e-9)

	require.Equal(t, "12", f.Numerals[11].Label)
}

// TestHandSegments places hand tips at their lengths from the centre.
func TestHandSegments(t *testing.T) {
	t.Parallel()

	hour, minute, second := HandsAt(at(3, 30, 15)).HandSegments()

	require.Equal(t, Point{X: FaceCenter, Y: FaceCenter}, hour.From)
	require.Equal(t, Point{X: FaceCenter, Y: FaceCenter}, minute.From)

	// Minute hand just past 6 o'clock points down.
	require.Greater(t, minute.To.Y, float64(FaceCenter+MinuteHandLen-1))

	// Second hand at 15s points right.
	require.InDelta(t, FaceCenter+SecondHandLen, second.To.X, 1e-9)
	require.InDelta(t, FaceCenter, second.To.Y, 1e-9)
}

// TestReading derives the minute key and the minute start.
func TestReading(t *testing.T) {
	t.Parallel()

	r := Reading{Time: time.Date(2024, 5, 1, 7, 5, 42, 123, time.UTC)}
	require.Equal(t, "07:05", r.Minute())
	require.Equal(t, time.Date(2024, 5, 1, 7, 5, 0, 0, time.UTC), r.MinuteStart())
	require.Equal(t, HandsAt(r.Time), r.Hands())
}

package clock

import (
	"math"
	"strconv"
	"time"
)

// Hands holds hand rotations in degrees as drawn on the face: 0° points at
// 3 o'clock, positive is clockwise, so 12 o'clock is -90°. Each value is the
// clock-face angle (0° at 12) minus 90.
type Hands struct {
	Hour   float64
	Minute float64
	Second float64
}

// HandsAt computes hand rotations. The hour hand advances with the minutes
// and the minute hand with the seconds; the second hand jumps per second.
func HandsAt(t time.Time) Hands {
	h, m, s := t.Clock()

	return Hands{
		Hour:   float64(h%12)*30 + float64(m)*0.5 - 90,
		Minute: float64(m)*6 + float64(s)*0.1 - 90,
		Second: float64(s)*6 - 90,
	}
}

// Point is a position in face coordinates.
type Point struct {
	X float64
	Y float64
}

// Segment is a straight line on the face.
type Segment struct {
	From Point
	To   Point
}

// Numeral is an hour label placed on the face.
type Numeral struct {
	Label string
	At    Point
}

// Face layout in a 400x400 view box.
const (
	FaceSize        = 400
	FaceCenter      = 200
	OuterRimRadius  = 195
	WoodRimRadius   = 185
	DialRadius      = 177
	MarkOuterRadius = 180
	HourMarkInner   = 160
	MinuteMarkInner = 170
	NumeralRadius   = 150
	NumeralBaseline = 6
	HourHandLength  = 80
	MinuteHandLen   = 110
	SecondHandLen   = 120
)

// Face is the static part of the dial: tick marks and numerals.
type Face struct {
	HourMarks   []Segment
	MinuteMarks []Segment
	Numerals    []Numeral
}

// NewFace lays out 12 hour marks, 48 minute marks (every minute position
// not shared with an hour) and the numerals 1 to 12.
func NewFace() *Face {
	f := &Face{
		HourMarks:   make([]Segment, 0, 12),
		MinuteMarks: make([]Segment, 0, 48),
		Numerals:    make([]Numeral, 0, 12),
	}

	for i := range 60 {
		deg := float64(i*6) - 90
		if i%5 == 0 {
			f.HourMarks = append(f.HourMarks, radial(deg, HourMarkInner, MarkOuterRadius))
			continue
		}

		f.MinuteMarks = append(f.MinuteMarks, radial(deg, MinuteMarkInner, MarkOuterRadius))
	}

	for i := 1; i <= 12; i++ {
		at := polar(float64(i*30)-90, NumeralRadius)
		at.Y += NumeralBaseline

		f.Numerals = append(f.Numerals, Numeral{Label: strconv.Itoa(i), At: at})
	}

	return f
}

// HandSegments returns the three hands as segments from the centre.
func (h Hands) HandSegments() (hour, minute, second Segment) {
	return radial(h.Hour, 0, HourHandLength),
		radial(h.Minute, 0, MinuteHandLen),
		radial(h.Second, 0, SecondHandLen)
}

func radial(deg, inner, outer float64) Segment {
	return Segment{From: polar(deg, inner), To: polar(deg, outer)}
}

func polar(deg, r float64) Point {
	rad := deg * math.Pi / 180

	return Point{
		X: FaceCenter + r*math.Cos(rad),
		Y: FaceCenter + r*math.Sin(rad),
	}
}

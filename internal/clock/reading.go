package clock

import "time"

// MinuteLayout formats the zero-padded 24-hour minute key.
const MinuteLayout = "15:04"

// Reading is one sample of the wall clock.
type Reading struct {
	Time time.Time
}

// Minute returns the zero-padded "HH:MM" key compared against alarm targets.
func (r Reading) Minute() string {
	return r.Time.Format(MinuteLayout)
}

// MinuteStart returns the first instant of the reading's calendar minute in
// its own location. Two readings share a minute iff their MinuteStart is equal.
func (r Reading) MinuteStart() time.Time {
	t := r.Time

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
}

// Hands returns the hand rotations at the reading.
func (r Reading) Hands() Hands {
	return HandsAt(r.Time)
}

// Package controller implements the alarm state machine.
//
// The Controller compares each clock reading with the user's target minute,
// and while the alarm sounds it owns one session: a repeating cue ticker and
// a deadline timer that are always released together.
package controller

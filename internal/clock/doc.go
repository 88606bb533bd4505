// Package clock samples the wall clock and derives everything the face needs
// from a single instant: the "HH:MM" minute key, the locale readout and the
// hand geometry.
package clock

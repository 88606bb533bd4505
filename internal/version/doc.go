// Package version exposes build metadata of alarm-clock and alarm-clockctl.
//
// Version, Commit and BuildTime are injected with -ldflags; local builds keep
// the defaults.
package version

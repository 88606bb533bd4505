// Package config defines the settings of the alarm clock binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Config holds listen addresses, display locale and time zone, alarm timing
// and the shape of the synthesized cue.
package config

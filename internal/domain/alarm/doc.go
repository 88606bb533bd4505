// Package alarm contains the domain types of the alarm clock.
//
// It defines the runtime State enum, the user-set Config, the Snapshot handed
// to renderers and transports, and parsing of "HH:MM" targets.
package alarm

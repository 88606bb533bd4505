// Package client implements alarm-clockctl: it connects to a running alarm
// clock over gRPC and shows, sets, toggles or watches the alarm.
package client

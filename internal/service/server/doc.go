// Package server runs the alarm-clock process: the clock ticker, the alarm
// controller, the browser face over HTTP and the gRPC control API, all bound
// to one context and stopped together.
package server

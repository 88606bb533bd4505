// Package logger wraps zap for the alarm clock binaries:
//   - a global sugared logger with a compact console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and runtime level changes,
//   - shorthand functions (Infof, WarnKV, ErrorKV, ...).
//
// Components take a context and log through the logger stored in it, so a
// tick, a websocket client or a gRPC call can carry its own fields.
package logger

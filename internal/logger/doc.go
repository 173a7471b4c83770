// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder that colors levels on a TTY,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - key-value helpers (DebugKV, InfoKV, WarnKV, ErrorKV).
//
// Every installer step accepts a context and extracts the logger from it,
// so step and release fields are attached once and reused.
package logger

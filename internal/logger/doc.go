// Package logger provides a small wrapper around zap to offer:
//   - a sugared logger with a sane console encoder writing to stderr,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and verbosity mapping utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// The command builds one logger from the parsed flags and stores it in the
// context; services extract it from there, so there is no mutable global.
package logger

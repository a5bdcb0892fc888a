// Package logger defines the structured logging contract used by the SDK.
// The default implementation is a thin adapter over zerolog; callers can
// plug any implementation of Logger to route SDK logs into their own stack.
package logger

import "time"

// Logger creates log events at the usual severity levels and supports
// attaching contextual fields. Implementations must be safe for
// concurrent use.
type Logger interface {
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent
	WithFields(fields map[string]any) Logger
}

// LogEvent is a structured log event under construction. Field methods
// return the event for chaining; Msg/Msgf finalize and emit it.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
	Bytes(key string, val []byte) LogEvent
}

// Package events provides structured logging for the agent's runtime
// events, following the error taxonomy in the design: every failure path
// either publishes a synthetic result or logs exactly one of these events.
package events

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger wraps slog with agent-specific event methods so call sites read as
// "what happened" rather than assembled format strings.
type Logger struct {
	logger *slog.Logger
	client string
}

// New creates a Logger with JSON output to stdout at Info level, tagged
// with the client name.
func New(client string) *Logger {
	return NewWithWriter(client, os.Stdout)
}

// NewWithWriter creates a Logger writing JSON to w at Info level. Useful
// for tests.
func NewWithWriter(client string, w io.Writer) *Logger {
	return NewWithLevel(client, w, slog.LevelInfo)
}

// NewWithLevel creates a Logger writing JSON to w at the given level —
// the concrete backing for cmd/sentryd's --log-level flag.
func NewWithLevel(client string, w io.Writer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{
		logger: slog.New(handler).With("client", client),
		client: client,
	}
}

// ParseLevel maps a --log-level flag value to a slog.Level, defaulting to
// Info on anything unrecognized.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StateTransition logs a lifecycle state change.
func (l *Logger) StateTransition(from, to string) {
	l.logger.Info("state_transition", "from", from, "to", to)
}

// PublishError logs a transport publish failure. Not retried.
func (l *Logger) PublishError(pipe string, payload []byte, err error) {
	l.logger.Warn("publish_error", "pipe", pipe, "payload", string(payload), "error", err.Error())
}

// DecodeError logs an undecodable inbound transport message. The message is dropped.
func (l *Logger) DecodeError(raw []byte, err error) {
	l.logger.Warn("decode_error", "raw", string(raw), "error", err.Error())
}

// DuplicateCheck logs a command request dropped because the same check name
// is already executing.
func (l *Logger) DuplicateCheck(name string) {
	l.logger.Warn("duplicate_check", "check", name)
}

// UnknownExtension logs a request dropped because no extension nor command
// was resolvable. Per the documented asymmetry with safe mode, this is a
// log only — no synthetic result is published.
func (l *Logger) UnknownExtension(name string) {
	l.logger.Warn("unknown_extension", "check", name)
}

// BindFailure logs a fatal socket bind error.
func (l *Logger) BindFailure(addr string, err error) {
	l.logger.Error("bind_failure", "addr", addr, "error", err.Error())
}

// Signal logs receipt of a termination signal.
func (l *Logger) Signal(sig string) {
	l.logger.Warn("signal_received", "signal", sig)
}

// Info logs a free-form informational event with structured fields.
func (l *Logger) Info(event string, args ...any) {
	l.logger.Info(event, args...)
}

// Warn logs a free-form warning event with structured fields.
func (l *Logger) Warn(event string, args ...any) {
	l.logger.Warn(event, args...)
}

var (
	global     *Logger
	globalMu   sync.RWMutex
	globalNoop = Noop()
)

// SetGlobal sets the process-wide logger instance.
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// Global returns the process-wide logger, or a shared no-op logger if unset.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if global != nil {
		return global
	}
	return globalNoop
}

// Noop returns a Logger that discards everything. Useful in tests that
// don't care about log output.
func Noop() *Logger {
	return NewWithWriter("", io.Discard)
}

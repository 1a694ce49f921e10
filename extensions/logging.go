// Package extensions ships pluggable Logger backends and a debug tree
// renderer on top of the core operation package, mirroring how the
// teacher's own extensions subpackage layers optional collaborators over
// its core scope/flow engine.
package extensions

import (
	"log/slog"

	"github.com/pumped-fn/operation"
	"github.com/rs/zerolog"
)

// SlogLogger adapts a *slog.Logger to operation.Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger as an operation.Logger.
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Debug(msg string, kv ...any) { l.logger.Debug(msg, kv...) }
func (l *SlogLogger) Info(msg string, kv ...any)  { l.logger.Info(msg, kv...) }
func (l *SlogLogger) Warn(msg string, kv ...any)  { l.logger.Warn(msg, kv...) }
func (l *SlogLogger) Error(msg string, kv ...any) { l.logger.Error(msg, kv...) }

var _ operation.Logger = (*SlogLogger)(nil)

// ZerologLogger adapts a zerolog.Logger to operation.Logger.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps logger as an operation.Logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

func (l *ZerologLogger) Debug(msg string, kv ...any) { l.event(l.logger.Debug(), msg, kv) }
func (l *ZerologLogger) Info(msg string, kv ...any)  { l.event(l.logger.Info(), msg, kv) }
func (l *ZerologLogger) Warn(msg string, kv ...any)  { l.event(l.logger.Warn(), msg, kv) }
func (l *ZerologLogger) Error(msg string, kv ...any) { l.event(l.logger.Error(), msg, kv) }

func (l *ZerologLogger) event(evt *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		evt = evt.Interface(key, kv[i+1])
	}
	evt.Msg(msg)
}

var _ operation.Logger = (*ZerologLogger)(nil)

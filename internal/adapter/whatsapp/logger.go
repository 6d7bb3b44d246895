package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// slogLogger routes whatsmeow's printf-style logging into slog. whatsmeow is chatty at
// debug level, so it carries its own minimum level independent of the app logger.
type slogLogger struct {
	logger *slog.Logger
	min    slog.Level
	module string
}

// NewLogger returns a waLog.Logger that writes to logger at or above min.
func NewLogger(logger *slog.Logger, min slog.Level) waLog.Logger {
	return &slogLogger{logger: logger, min: min, module: "whatsmeow"}
}

func (l *slogLogger) log(level slog.Level, msg string, args []any) {
	if level < l.min || !l.logger.Enabled(context.Background(), level) {
		return
	}
	l.logger.Log(context.Background(), level, fmt.Sprintf(msg, args...), "module", l.module)
}

func (l *slogLogger) Debugf(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *slogLogger) Infof(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *slogLogger) Warnf(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *slogLogger) Errorf(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *slogLogger) Sub(module string) waLog.Logger {
	return &slogLogger{logger: l.logger, min: l.min, module: l.module + "/" + module}
}

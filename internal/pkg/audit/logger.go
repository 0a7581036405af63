package audit

import (
	"io"
	"log/slog"

	"bibliotrack/internal/core/domain"
)

// Custom slog levels for the two severities slog does not ship with
const (
	LevelTrace    = slog.Level(-8)
	LevelCritical = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace:    "TRACE",
	LevelCritical: "CRITICAL",
}

// NewLogger builds the leveled mirror logger for audit events.
// TRACE and CRITICAL are rendered under their own names instead of
// slog's DEBUG-4 / ERROR+4 notation.
func NewLogger(w io.Writer) *slog.Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: LevelTrace,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				if name, ok := levelNames[level]; ok {
					a.Value = slog.StringValue(name)
				}
			}
			return a
		},
	})
	return slog.New(handler)
}

// Level maps a persisted audit level onto its slog level
func Level(level domain.LogLevel) slog.Level {
	switch level {
	case domain.LogLevelTrace:
		return LevelTrace
	case domain.LogLevelDebug:
		return slog.LevelDebug
	case domain.LogLevelInformation:
		return slog.LevelInfo
	case domain.LogLevelWarning:
		return slog.LevelWarn
	case domain.LogLevelError:
		return slog.LevelError
	case domain.LogLevelCritical:
		return LevelCritical
	}
	return slog.LevelDebug
}

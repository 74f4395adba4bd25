package utils

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a configured level name onto slog, defaulting to info. "warning"
// is accepted as an alias of warn.
func ParseLevel(name string) slog.Level {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "warning" {
		name = "warn"
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds the process logger writing to w. attrs are attached to every record.
func NewLogger(w io.Writer, level string, json bool, attrs ...slog.Attr) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if json {
		handler = slog.NewJSONHandler(w, opts)
	}
	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}
	return slog.New(handler)
}

// Package logging は log/slog のロガーを設定から組み立てる。
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New は level と format からロガーを生成する。
// format が "json" ならJSON、それ以外はテキストで出力する。
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup はロガーを生成して slog のデフォルトに設定する。
func Setup(w io.Writer, level, format string) *slog.Logger {
	logger := New(w, level, format)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel はログレベル名を slog.Level に変換する。未知の名前は Info とする。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

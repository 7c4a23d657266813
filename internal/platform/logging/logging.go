// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package logging builds the process logger and defines the security severities
used by the keychain lifecycle.

Two levels sit above ERROR:

  - ALERT: suspicious misses (unknown token, unknown aidn, aidn mismatch).
  - FATAL: integrity violations and referential breakage. Never exits the process.
*/
package logging

import (
	"context"
	"io"
	"log/slog"

	"github.com/taibuivan/kreativeid/internal/platform/constants"
)

// # Levels

const (
	LevelAlert = slog.Level(12)
	LevelFatal = slog.Level(16)
)

// ReplaceLevel renders [LevelAlert] and [LevelFatal] by name instead of "ERROR+4".
func ReplaceLevel(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}

	level, ok := attr.Value.Any().(slog.Level)
	if !ok {
		return attr
	}

	switch {
	case level >= LevelFatal:
		attr.Value = slog.StringValue("FATAL")
	case level >= LevelAlert:
		attr.Value = slog.StringValue("ALERT")
	}
	return attr
}

/*
New builds the JSON logger used across the service.

Parameters:
  - writer: io.Writer (usually os.Stdout)
  - debug: bool (lowers the minimum level to DEBUG)

Returns:
  - *slog.Logger: Logger tagged with the application name
*/
func New(writer io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: ReplaceLevel,
	})

	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// # Helpers

// Alert logs msg at [LevelAlert].
func Alert(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelAlert, msg, args...)
}

// Fatal logs msg at [LevelFatal].
func Fatal(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelFatal, msg, args...)
}

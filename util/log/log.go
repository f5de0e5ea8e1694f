package log

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

/*
Context-tagged logging over log/slog. Callers attach key/value tags to a
context with AddTags, and every log call made with that context carries the
tags. Records go to slog.Default's handler, so binaries control format and
level globally.
*/

////////////////////////////////////////////////////////////////////////////////

type contextKey int

const tagKey contextKey = iota

// AddTags returns a context whose log calls carry the given key/value pairs
// in addition to any already present.
func AddTags(ctx context.Context, kvs ...any) context.Context {
	if len(kvs)%2 != 0 {
		panic("log: AddTags requires an even number of arguments")
	}
	existing, _ := ctx.Value(tagKey).([]any)
	merged := make([]any, 0, len(existing)+len(kvs))
	merged = append(merged, existing...)
	merged = append(merged, kvs...)
	return context.WithValue(ctx, tagKey, merged)
}

// Debugf logs a formatted message at debug level.
func Debugf(ctx context.Context, format string, args ...any) {
	logf(ctx, slog.LevelDebug, format, args...)
}

// Infof logs a formatted message at info level.
func Infof(ctx context.Context, format string, args ...any) {
	logf(ctx, slog.LevelInfo, format, args...)
}

// Warnf logs a formatted message at warn level.
func Warnf(ctx context.Context, format string, args ...any) {
	logf(ctx, slog.LevelWarn, format, args...)
}

// Errorf logs a formatted message at error level.
func Errorf(ctx context.Context, format string, args ...any) {
	logf(ctx, slog.LevelError, format, args...)
}

// Debugw logs a message with key/value attributes at debug level.
func Debugw(ctx context.Context, msg string, keyvals ...any) {
	logw(ctx, slog.LevelDebug, msg, keyvals...)
}

// Infow logs a message with key/value attributes at info level.
func Infow(ctx context.Context, msg string, keyvals ...any) {
	logw(ctx, slog.LevelInfo, msg, keyvals...)
}

// Warnw logs a message with key/value attributes at warn level.
func Warnw(ctx context.Context, msg string, keyvals ...any) {
	logw(ctx, slog.LevelWarn, msg, keyvals...)
}

// Errorw logs a message with key/value attributes at error level.
func Errorw(ctx context.Context, msg string, keyvals ...any) {
	logw(ctx, slog.LevelError, msg, keyvals...)
}

func logf(ctx context.Context, level slog.Level, format string, args ...any) {
	emit(ctx, level, fmt.Sprintf(format, args...))
}

func logw(ctx context.Context, level slog.Level, msg string, keyvals ...any) {
	emit(ctx, level, msg, keyvals...)
}

func emit(ctx context.Context, level slog.Level, msg string, keyvals ...any) {
	handler := slog.Default().Handler()
	if !handler.Enabled(ctx, level) {
		return
	}
	// skip Callers, emit, logf/logw, and the exported wrapper to record the
	// call site.
	var pcs [1]uintptr
	runtime.Callers(4, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	for i := 0; i+1 < len(keyvals); i += 2 {
		r.Add(keyvals[i].(string), keyvals[i+1])
	}
	tags, _ := ctx.Value(tagKey).([]any)
	for i := 0; i+1 < len(tags); i += 2 {
		r.Add(tags[i].(string), tags[i+1])
	}
	if err := handler.Handle(ctx, r); err != nil {
		slog.ErrorContext(ctx, "error handling log record", "error", err)
	}
}

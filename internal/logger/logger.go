package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"
)

var (
	level  = new(slog.LevelVar)
	handle *slog.Logger
)

func init() {
	SetOutput(os.Stderr)
}

// SetOutput redirects all log output to w. Tests use it to capture logs.
func SetOutput(w io.Writer) {
	handle = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	}))
}

func SetDebugMode(enabled bool) {
	if enabled {
		level.Set(slog.LevelDebug)
		Debug("Debug mode enabled")
		return
	}
	level.Set(slog.LevelInfo)
}

func IsDebugMode() bool {
	return level.Level() <= slog.LevelDebug
}

func Debug(format string, args ...interface{}) {
	output(slog.LevelDebug, format, args...)
}

func Info(format string, args ...interface{}) {
	output(slog.LevelInfo, format, args...)
}

func Warn(format string, args ...interface{}) {
	output(slog.LevelWarn, format, args...)
}

func Error(format string, args ...interface{}) {
	output(slog.LevelError, format, args...)
}

// output records the caller of the exported helper as the log source.
func output(lvl slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !handle.Enabled(ctx, lvl) {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), lvl, fmt.Sprintf(format, args...), pcs[0])
	_ = handle.Handler().Handle(ctx, r)
}

// Request logging function for HTTP requests
func LogRequest(requestID, method, path, remoteAddr string) {
	handle.Debug("http request",
		"request_id", requestID,
		"method", method,
		"path", path,
		"remote", remoteAddr)
}

// Response logging function for HTTP responses
func LogResponse(requestID, method, path string, statusCode int, duration time.Duration) {
	lvl := slog.LevelDebug
	if statusCode >= 500 {
		lvl = slog.LevelWarn
	}
	handle.Log(context.Background(), lvl, "http response",
		"request_id", requestID,
		"method", method,
		"path", path,
		"status", statusCode,
		"duration", duration.String())
}

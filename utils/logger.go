package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	// InfoLogger logs informational messages
	InfoLogger *slog.Logger
	// ErrorLogger logs error messages
	ErrorLogger *slog.Logger
	// DebugLogger logs debug messages
	DebugLogger *slog.Logger
)

// InitLogger initializes the loggers. Each level goes to its own daily JSON
// file under dir; errors are mirrored to stderr.
func InitLogger(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %v", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	open := func(name string) (*os.File, error) {
		return os.OpenFile(
			filepath.Join(dir, fmt.Sprintf("%s-%s.log", name, timestamp)),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0644,
		)
	}

	infoFile, err := open("info")
	if err != nil {
		return fmt.Errorf("failed to open info log file: %v", err)
	}
	errorFile, err := open("error")
	if err != nil {
		return fmt.Errorf("failed to open error log file: %v", err)
	}
	debugFile, err := open("debug")
	if err != nil {
		return fmt.Errorf("failed to open debug log file: %v", err)
	}

	SetLoggers(infoFile, io.MultiWriter(errorFile, os.Stderr), debugFile)
	return nil
}

// SetLoggers points the three loggers at arbitrary writers
func SetLoggers(info, errs, debug io.Writer) {
	InfoLogger = slog.New(slog.NewJSONHandler(info, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ErrorLogger = slog.New(slog.NewJSONHandler(errs, &slog.HandlerOptions{Level: slog.LevelError, AddSource: true}))
	DebugLogger = slog.New(slog.NewJSONHandler(debug, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	if InfoLogger != nil {
		InfoLogger.Info(fmt.Sprintf(format, v...))
	}
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Error(fmt.Sprintf(format, v...))
	}
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	if DebugLogger != nil {
		DebugLogger.Debug(fmt.Sprintf(format, v...))
	}
}

// LogEvent logs a message with key/value metadata at the given level
func LogEvent(level slog.Level, message string, metadata ...any) {
	logger := InfoLogger
	switch {
	case level >= slog.LevelError:
		logger = ErrorLogger
	case level < slog.LevelInfo:
		logger = DebugLogger
	}
	if logger != nil {
		logger.Log(context.Background(), level, message, metadata...)
	}
}

// LogRequest logs HTTP request details
func LogRequest(method, path, ip, requestID string, status int, duration time.Duration) {
	LogEvent(slog.LevelInfo, "request",
		"method", method,
		"path", path,
		"ip", ip,
		"request_id", requestID,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	LogEvent(slog.LevelError, "panic recovered", "error", err.Error(), "stack", string(stack))
}

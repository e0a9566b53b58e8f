// Package logging is the human-readable application log.
//
// Every helper is a no-op until Init or InitWriter is called, so library
// packages can log unconditionally and tests stay quiet.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Version is reported in the startup line.
const Version = "0.1.0"

var (
	// Logger is the global logger instance, nil until initialized.
	Logger *log.Logger

	logFile *os.File
)

// Init opens <dataDir>/logs/feedterm-YYYY-MM-DD.log and logs at level
// ("debug", "info", "warn", "error"). Returns the log file path.
func Init(dataDir, level string) (string, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return "", fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("feedterm-%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to open log file: %w", err)
	}

	logFile = f
	initWriter(f, lvl)
	Logger.Info("feedterm started", "version", Version, "pid", os.Getpid())
	return logPath, nil
}

// InitWriter logs to w instead of a file.
func InitWriter(w io.Writer, level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	initWriter(w, lvl)
	return nil
}

func initWriter(w io.Writer, lvl log.Level) {
	Logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           lvl,
	})
}

// Close logs shutdown and closes the log file.
func Close() {
	if Logger != nil {
		Logger.Info("feedterm shutting down")
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	Logger = nil
}

func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

// Package logger is a centralized zap wrapper for the whole process. It
// initializes the log level and encoder, and lets the target writers
// (stdout/stderr, or a rotated log file) be swapped at runtime. Uses
// zap.AtomicLevel for dynamic level changes and a mutex to guard the
// package-level state.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// mu guards every package-level logger variable below.
	mu sync.Mutex
	// log is the current zap.Logger used throughout the application.
	log *zap.Logger
	// logLevel drives the dynamic log level without rebuilding the core's encoder.
	logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	// encoderCfg holds the message formatting settings, refreshed on Init.
	encoderCfg = defaultEncoderConfig()
	// stdoutWriter is the destination for normal log output.
	stdoutWriter = zapcore.Lock(zapcore.AddSync(os.Stdout))
	// stderrWriter is the destination for the logger's own error output.
	stderrWriter = zapcore.Lock(zapcore.AddSync(os.Stderr))
	// fileSync, when set by InitFile, rotates the log file alongside stdout.
	fileSync *lumberjack.Logger
)

const (
	logFileMaxSizeMB  = 50
	logFileMaxBackups = 5
	logFileMaxAgeDays = 14
)

// defaultEncoderConfig builds a console encoder with colors and a short
// caller. The time format is fixed (YYYY-MM-DD HH:MM:SS); switch to a JSON
// encoder for machine-readable output.
func defaultEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// rebuildLoggerLocked recreates the global logger from the current stream
// and level settings. The caller must already hold mu. AddCallerSkip(1)
// hides the logger.* wrapper functions from the caller stack. The previous
// logger, if any, is synced first to flush its buffers.
func rebuildLoggerLocked() {
	encoder := zapcore.NewConsoleEncoder(encoderCfg)
	core := zapcore.NewCore(encoder, stdoutWriter, logLevel)
	if fileSync != nil {
		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(fileSync), logLevel)
		core = zapcore.NewTee(core, fileCore)
	}
	if log != nil {
		_ = log.Sync()
	}
	log = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.ErrorOutput(stderrWriter))
}

// Init initializes the global zap logger and sets its level. Valid levels:
// debug, info (default), warn, error, compared case-insensitively.
func Init(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(level) {
	case "debug":
		logLevel.SetLevel(zap.DebugLevel)
	case "warn":
		logLevel.SetLevel(zap.WarnLevel)
	case "error":
		logLevel.SetLevel(zap.ErrorLevel)
	default:
		logLevel.SetLevel(zap.InfoLevel)
	}

	encoderCfg = defaultEncoderConfig()
	rebuildLoggerLocked()
}

// InitFile additionally tees every log line as JSON into a size/age-rotated
// file at path, on top of whatever console writers are already set. A no-op
// when path is empty (LOG_FILE unset): console-only logging, the teacher's
// default.
func InitFile(path string) {
	if path == "" {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	fileSync = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		Compress:   true,
	}
	rebuildLoggerLocked()
}

// SetWriters redirects the console log streams and rebuilds the core. Safe
// to call at runtime (e.g. to route output through the operator console).
// A nil argument falls back to the corresponding os.Std{out,err} stream.
func SetWriters(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if stdout == nil {
		stdoutWriter = zapcore.Lock(zapcore.AddSync(os.Stdout))
	} else {
		stdoutWriter = zapcore.Lock(zapcore.AddSync(stdout))
	}
	if stderr == nil {
		stderrWriter = zapcore.Lock(zapcore.AddSync(os.Stderr))
	} else {
		stderrWriter = zapcore.Lock(zapcore.AddSync(stderr))
	}

	rebuildLoggerLocked()
}

// Logger returns the current zap.Logger, lazily building it on first use.
// This is the raw API (not Sugared); prefer passing structured zap.Field
// values over formatting strings.
func Logger() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()

	if log == nil {
		rebuildLoggerLocked()
	}
	return log
}

// IsDebugEnabled reports whether the debug level is currently enabled.
func IsDebugEnabled() bool {
	return Logger().Level() <= zap.DebugLevel
}

// Debug writes a structured Debug-level message.
func Debug(msg string, fields ...zap.Field) { Logger().Debug(msg, fields...) }

// Info writes a structured Info-level message.
func Info(msg string, fields ...zap.Field) { Logger().Info(msg, fields...) }

// Warn writes a structured Warn-level message.
func Warn(msg string, fields ...zap.Field) { Logger().Warn(msg, fields...) }

// Error writes a structured Error-level message.
func Error(msg string, fields ...zap.Field) { Logger().Error(msg, fields...) }

// Fatal writes a structured Fatal-level message and terminates the process.
func Fatal(msg string, fields ...zap.Field) {
	Logger().Fatal(msg, fields...)
	_ = Logger().Sync() // flush buffers before os.Exit
	os.Exit(1)
}

// Debugf formats msg via fmt.Sprintf. Use sparingly: formatting allocates;
// prefer structured fields on hot paths.
func Debugf(msg string, a ...any) { Logger().Debug(fmt.Sprintf(msg, a...)) }

// Infof formats msg via fmt.Sprintf. Prefer Info with fields on hot paths.
func Infof(msg string, a ...any) { Logger().Info(fmt.Sprintf(msg, a...)) }

// Warnf formats msg via fmt.Sprintf. Prefer passing data via zap.Field.
func Warnf(msg string, a ...any) { Logger().Warn(fmt.Sprintf(msg, a...)) }

// Errorf formats msg via fmt.Sprintf. Prefer Error with fields on critical paths.
func Errorf(msg string, a ...any) { Logger().Error(fmt.Sprintf(msg, a...)) }

// Package logger holds the process-wide zap logger used by the viewer.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the global logger instance. It discards everything until Init
// is called, so packages can log from tests without setup.
var Log = zap.NewNop()

// Sugar is the sugared logger for convenient logging.
var Sugar = Log.Sugar()

// Log file rotation.
const (
	fileMaxSizeMB  = 20
	fileMaxBackups = 3
	fileMaxAgeDays = 14
)

// Options selects the level and the sinks of the global logger.
type Options struct {
	Level string
	// Console receives coloured human-readable lines; nil disables it.
	Console io.Writer
	// File receives JSON lines, rotated by size; empty disables it.
	File string
}

// Init logs to stderr and, when logFile is set, to a rotated JSON file.
func Init(level, logFile string) error {
	return Setup(Options{Level: level, Console: os.Stderr, File: logFile})
}

// Setup replaces the global logger with one built from opts.
func Setup(opts Options) error {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	var cores []zapcore.Core
	if opts.Console != nil {
		enc := zapcore.NewConsoleEncoder(consoleEncoding())
		cores = append(cores, zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(opts.Console)), lvl))
	}
	if opts.File != "" {
		enc := zapcore.NewJSONEncoder(fileEncoding())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotatingFile(opts.File)), lvl))
	}

	// an empty tee is a no-op core
	Log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	Sugar = Log.Sugar()
	return nil
}

func consoleEncoding() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.NameKey = "component"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.ConsoleSeparator = " "
	cfg.StacktraceKey = ""
	return cfg
}

// fileEncoding writes JSON so runs can be grepped with jq.
func fileEncoding() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.NameKey = "component"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	return cfg
}

func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    fileMaxSizeMB,
		MaxBackups: fileMaxBackups,
		MaxAge:     fileMaxAgeDays,
		Compress:   true,
		LocalTime:  true,
	}
}

// ParseLevel accepts zap level names plus "warning". Empty means info.
func ParseLevel(level string) (zapcore.Level, error) {
	name := strings.ToLower(strings.TrimSpace(level))
	switch name {
	case "":
		return zapcore.InfoLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil {
		return lvl, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}

// Named returns a child logger tagged with a component name.
func Named(component string) *zap.Logger {
	return Log.WithOptions(zap.AddCallerSkip(-1)).Named(component)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}

// Debug logs a debug message.
func Debug(msg string, fields ...zap.Field) {
	Log.Debug(msg, fields...)
}

// Info logs an info message.
func Info(msg string, fields ...zap.Field) {
	Log.Info(msg, fields...)
}

// Warn logs a warning message.
func Warn(msg string, fields ...zap.Field) {
	Log.Warn(msg, fields...)
}

// Error logs an error message.
func Error(msg string, fields ...zap.Field) {
	Log.Error(msg, fields...)
}

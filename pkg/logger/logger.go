package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Fields type is an alias for logrus.Fields
type Fields = logrus.Fields

// Logger is a wrapper around logrus.Logger
type Logger struct {
	*logrus.Logger
	module string
}

// Global logger instance
var globalLogger *Logger

// Configuration for the logger
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Module     string `mapstructure:"module"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Init initializes the global logger with the provided configuration
func Init(config Config) error {
	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(level)

	// Set formatter based on config
	if config.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			CallerPrettyfier: callerPrettyfier,
			TimestampFormat:  "2006-01-02 15:04:05",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:          true,
			CallerPrettyfier:       callerPrettyfier,
			DisableSorting:         true,
			DisableTimestamp:       false,
			DisableLevelTruncation: true,
			PadLevelText:           true,
			TimestampFormat:        "2006-01-02 15:04:05",
		})
	}

	outputs := []io.Writer{os.Stderr}

	// File output is optional; the CLI stays usable without it
	if config.File != "" {
		logDir := filepath.Dir(config.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create log directory %s: %v\n", logDir, err)
		} else {
			rotateLogger := &lumberjack.Logger{
				Filename:   config.File,
				MaxSize:    config.MaxSize,
				MaxAge:     config.MaxAge,
				MaxBackups: config.MaxBackups,
				Compress:   config.Compress,
			}
			outputs = append(outputs, rotateLogger)
		}
	}

	if len(outputs) > 1 {
		logger.SetOutput(io.MultiWriter(outputs...))
	} else {
		logger.SetOutput(outputs[0])
	}

	logger.SetReportCaller(true)

	globalLogger = &Logger{
		Logger: logger,
		module: config.Module,
	}

	return nil
}

// DefaultLogPath returns the default log file path under the user cache
// directory. Returns an empty string when no cache directory is available;
// logging then goes to stderr only.
func DefaultLogPath() string {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(cacheDir, "relpack", "relpack.log")
}

// callerPrettyfier is used to format the caller information
func callerPrettyfier(f *runtime.Frame) (string, string) {
	// Walk up the stack until we find the actual caller
	pcs := make([]uintptr, 15)
	n := runtime.Callers(4, pcs) // Start from 4 to skip more internal frames
	if n == 0 {
		return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		// Skip logrus and our logger package frames
		if !strings.Contains(frame.File, "pkg/logger") &&
			!strings.Contains(frame.File, "sirupsen/logrus") {
			return "", fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
		}
		if !more {
			break
		}
	}

	// Fallback to original frame if we couldn't find a better one
	return "", fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
}

// NewLogger creates a new logger instance with the specified module
func NewLogger(module string) *Logger {
	if globalLogger == nil {
		// Sane default so package code can log before Init runs
		if err := Init(Config{Level: "info", Format: "text", Module: module}); err != nil {
			panic(fmt.Sprintf("logger fallback init failed: %v", err))
		}
	}

	return &Logger{
		Logger: globalLogger.Logger,
		module: module,
	}
}

// withModule adds the module field to the entry
func (l *Logger) withModule(fields Fields) *logrus.Entry {
	if l.module != "" {
		if fields == nil {
			fields = Fields{}
		}
		fields["module"] = l.module
	}
	return l.WithFields(fields)
}

// Debug logs a message at the debug level
func (l *Logger) Debug(args ...any) {
	l.withModule(nil).Debug(args...)
}

// Debugf logs a formatted message at the debug level
func (l *Logger) Debugf(format string, args ...any) {
	l.withModule(nil).Debugf(format, args...)
}

// Info logs a message at the info level
func (l *Logger) Info(args ...any) {
	l.withModule(nil).Info(args...)
}

// Infof logs a formatted message at the info level
func (l *Logger) Infof(format string, args ...any) {
	l.withModule(nil).Infof(format, args...)
}

// Warn logs a message at the warn level
func (l *Logger) Warn(args ...any) {
	l.withModule(nil).Warn(args...)
}

// Warnf logs a formatted message at the warn level
func (l *Logger) Warnf(format string, args ...any) {
	l.withModule(nil).Warnf(format, args...)
}

// Error logs a message at the error level
func (l *Logger) Error(args ...any) {
	l.withModule(nil).Error(args...)
}

// Errorf logs a formatted message at the error level
func (l *Logger) Errorf(format string, args ...any) {
	l.withModule(nil).Errorf(format, args...)
}

// Fatal logs a message at the fatal level and then exits
func (l *Logger) Fatal(args ...any) {
	l.withModule(nil).Fatal(args...)
}

// Fatalf logs a formatted message at the fatal level and then exits
func (l *Logger) Fatalf(format string, args ...any) {
	l.withModule(nil).Fatalf(format, args...)
}

// WithFields adds fields to the logger
func (l *Logger) WithFields(fields Fields) *logrus.Entry {
	if l.module != "" {
		if fields == nil {
			fields = Fields{}
		}
		fields["module"] = l.module
	}
	return l.Logger.WithFields(fields)
}

// WithError adds an error to the logger
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.WithFields(Fields{"error": err})
}

// Fatalf logs through the global logger when initialized, stderr otherwise
func Fatalf(format string, args ...any) {
	if globalLogger != nil {
		globalLogger.Fatalf(format, args...)
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

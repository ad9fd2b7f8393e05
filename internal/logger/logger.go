// Package logger builds the slog handler used across the host.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/bindery/internal/envvar"
)

// Option configures the logger.
type Option func(*options)

type options struct {
	logToFile bool
	logFile   string
	level     slog.Level
}

// WithLogToFile enables mirroring logs to a rotated file.
func WithLogToFile(enabled bool) Option {
	return func(o *options) { o.logToFile = enabled }
}

// WithLogFile sets the log file path used when file logging is enabled.
func WithLogFile(path string) Option {
	return func(o *options) { o.logFile = path }
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// New creates a slog.Logger with a tinted console handler. In anything but
// a development environment the console output drops source locations and
// the file mirror is rotated by lumberjack.
func New(opts ...Option) *slog.Logger {
	o := options{
		logFile: "logs/bindery.log",
		level:   slog.LevelInfo,
	}
	for _, opt := range opts {
		opt(&o)
	}

	dev := os.Getenv(envvar.BinderyEnv) == "development"
	if dev {
		o.level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if o.logToFile {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   o.logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}

	handler := tint.NewHandler(w, &tint.Options{
		Level:      o.level,
		TimeFormat: time.TimeOnly,
		AddSource:  dev,
	})

	return slog.New(handler)
}

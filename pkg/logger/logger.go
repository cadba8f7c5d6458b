// Package logger provides structured logging backed by logrus.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls the logger output.
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // json or text
	Output     string // stdout, stderr or file
	FilePrefix string // base path used when Output is file
}

// Logger wraps a logrus entry so services can chain WithField/WithError.
type Logger struct {
	*logrus.Entry
}

// New builds a logger from the provided configuration.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}

	l.SetOutput(resolveOutput(cfg))

	return &Logger{Entry: logrus.NewEntry(l)}
}

// NewDefault returns an info-level JSON logger tagged with the component name.
func NewDefault(name string) *Logger {
	log := New(LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
	return log.Named(name)
}

// Named returns a logger carrying a component field.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Entry: l.Entry.WithField("component", name)}
}

// WithField returns a logger with an extra field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithFields returns a logger with extra fields attached.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithFields(fields)}
}

// WithError returns a logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

func resolveOutput(cfg LoggingConfig) io.Writer {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "demande-service"
		}
		path := fmt.Sprintf("%s-%s.log", prefix, time.Now().Format("2006-01-02"))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				return f
			}
		}
		return os.Stdout
	default:
		return os.Stdout
	}
}

// Package log is a small structured-logging facade wrapping logrus, grounded on
// the shape of the vendored logger package's interface: short message plus a
// fields map, rather than printf-style formatting, and a WithField for
// per-component sub-loggers.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is an alias for the map carried alongside every log line.
type Fields = logrus.Fields

// Logger is the facade every domain package logs through.
type Logger interface {
	Debug(msg string, fields Fields)
	Info(msg string, fields Fields)
	Warn(msg string, fields Fields)
	Error(msg string, fields Fields)

	// WithField returns a child Logger that always carries the given field.
	WithField(key string, val interface{}) Logger

	SetLevel(level string)
}

type entry struct {
	e *logrus.Entry
}

// New builds a Logger writing JSON lines to stderr at info level, the default
// posture for both the server and client binaries.
func New() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	l.SetLevel(logrus.InfoLevel)

	return &entry{e: logrus.NewEntry(l)}
}

func (l *entry) Debug(msg string, fields Fields) { l.e.WithFields(fields).Debug(msg) }
func (l *entry) Info(msg string, fields Fields)  { l.e.WithFields(fields).Info(msg) }
func (l *entry) Warn(msg string, fields Fields)  { l.e.WithFields(fields).Warn(msg) }
func (l *entry) Error(msg string, fields Fields) { l.e.WithFields(fields).Error(msg) }

func (l *entry) WithField(key string, val interface{}) Logger {
	return &entry{e: l.e.WithField(key, val)}
}

func (l *entry) SetLevel(level string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.e.Logger.SetLevel(lvl)
	}
}

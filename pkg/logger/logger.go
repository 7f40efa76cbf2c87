// Package logger wraps logrus with the teacher's leveled, colorized
// console style (pkg/logger/logger.go: Debug/Info/Warn/Error/Success,
// Section, Banner) behind a small interface so conn and cmd/democlient
// depend on a seam rather than a concrete backend.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the leveled, structured logging surface the rest of the
// module depends on. WithField returns a Logger scoped to one extra
// field, matching logrus's chained-entry idiom.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger that writes colorized, leveled lines to stderr,
// matching the teacher's console-first logging style. level is one of
// "debug", "info", "warn", "error"; an unrecognized value falls back to
// info.
func New(level string) Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	base.SetLevel(parsed)
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

// Noop is a Logger that discards everything, used by tests and by
// components that were not handed a real logger.
var Noop Logger = noopLogger{}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{})           {}
func (noopLogger) Infof(string, ...interface{})            {}
func (noopLogger) Warnf(string, ...interface{})            {}
func (noopLogger) Errorf(string, ...interface{})           {}
func (n noopLogger) WithField(string, interface{}) Logger { return n }

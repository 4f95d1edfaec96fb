// Package logger provides leveled structured logging.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger is a leveled logger bound to a component.
type Logger struct {
	entry *logrus.Entry
}

var defaultLogger = newLogger(os.Stderr, logrus.InfoLevel, "text")

func newLogger(out io.Writer, level logrus.Level, format string) *Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if strings.ToLower(format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.000000"})
	}
	return &Logger{entry: logrus.NewEntry(l)}
}

// ParseLevel maps a config level name to a logrus level; unknown names
// fall back to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Init initializes the default logger with the specified level and format.
func Init(level string, format string) {
	InitWithOutput(os.Stderr, level, format)
}

// InitWithOutput is Init writing to out.
func InitWithOutput(out io.Writer, level string, format string) {
	defaultLogger = newLogger(out, ParseLevel(level), format)
}

// With returns a logger that tags every line with component.
func With(component string) *Logger {
	return &Logger{entry: defaultLogger.entry.WithField("component", component)}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.entry.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Info(format string, args ...interface{}) { l.entry.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warn(format string, args ...interface{}) { l.entry.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Error(format string, args ...interface{}) { l.entry.Error(fmt.Sprintf(format, args...)) }

func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

func Fatal(format string, args ...interface{}) {
	defaultLogger.entry.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}

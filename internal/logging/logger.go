package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// std is the process-wide backend shared by every component logger.
// It is logrus' standard logger so packages below logging share it too.
var std = logrus.StandardLogger()

func init() {
	configure(std, os.Stdout)
}

func newBackend(out io.Writer) *logrus.Logger {
	return configure(logrus.New(), out)
}

func configure(backend *logrus.Logger, out io.Writer) *logrus.Logger {
	backend.SetOutput(out)
	backend.SetLevel(logrus.InfoLevel)
	backend.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return backend
}

// ParseLevel converts a config value such as "debug" into a LogLevel
func ParseLevel(raw string) (LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return LogLevelDebug, nil
	case "", "INFO":
		return LogLevelInfo, nil
	case "WARN", "WARNING":
		return LogLevelWarn, nil
	case "ERROR":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LogLevelDebug:
		return logrus.DebugLevel
	case LogLevelWarn:
		return logrus.WarnLevel
	case LogLevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetLevel sets the minimum level for all component loggers
func SetLevel(level LogLevel) {
	std.SetLevel(level.logrusLevel())
}

// SetOutput redirects all component loggers
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// AddOutput tees all component loggers into an additional writer
func AddOutput(w io.Writer) {
	std.SetOutput(io.MultiWriter(std.Out, w))
}

// Logger provides structured logging for a single component
type Logger struct {
	component string
	backend   *logrus.Logger
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		backend:   std,
	}
}

// NewLoggerWithOutput creates a component logger with its own backend
// writing only to w. Used for dedicated log files.
func NewLoggerWithOutput(component string, w io.Writer) *Logger {
	return &Logger{
		component: component,
		backend:   newBackend(w),
	}
}

// Component returns the component name
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) entry(err error, context map[string]interface{}) *logrus.Entry {
	fields := logrus.Fields{"component": l.component}
	for k, v := range context {
		fields[k] = v
	}
	e := l.backend.WithFields(fields)
	if err != nil {
		e = e.WithError(err)
	}
	return e
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.entry(nil, nil).Debug(message)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(message string, context map[string]interface{}) {
	l.entry(nil, context).Debug(message)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.entry(nil, nil).Info(message)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.entry(nil, nil).Infof(format, args...)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(message string, context map[string]interface{}) {
	l.entry(nil, context).Info(message)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.entry(nil, nil).Warn(message)
}

// WarnWithContext logs a warning message with context
func (l *Logger) WarnWithContext(message string, context map[string]interface{}) {
	l.entry(nil, context).Warn(message)
}

// Error logs an error message
func (l *Logger) Error(message string, err error) {
	l.entry(err, nil).Error(message)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(message string, err error, context map[string]interface{}) {
	l.entry(err, context).Error(message)
}

// WithContext returns a logger that includes context on every entry
func (l *Logger) WithContext(context map[string]interface{}) *ContextLogger {
	return &ContextLogger{
		logger:  l,
		context: context,
	}
}

// ContextLogger is a logger with pre-set context
type ContextLogger struct {
	logger  *Logger
	context map[string]interface{}
}

// Debug logs a debug message with pre-set context
func (cl *ContextLogger) Debug(message string) {
	cl.logger.entry(nil, cl.context).Debug(message)
}

// Info logs an info message with pre-set context
func (cl *ContextLogger) Info(message string) {
	cl.logger.entry(nil, cl.context).Info(message)
}

// Warn logs a warning message with pre-set context
func (cl *ContextLogger) Warn(message string) {
	cl.logger.entry(nil, cl.context).Warn(message)
}

// Error logs an error message with pre-set context
func (cl *ContextLogger) Error(message string, err error) {
	cl.logger.entry(err, cl.context).Error(message)
}

// Package logging provides the structured logger used across the flux CLI.
//
// Entries are teed to the console and to a rotated JSON log file. String fields
// and sugared key/value pairs pass through the sensitive-data filter, so Hub
// tokens never reach either output.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnvVar names the environment variable that overrides the log level.
const LevelEnvVar = "FLUX_LOG_LEVEL"

// Options configures NewLogger.
type Options struct {
	// Development selects human-readable console output and debug level
	Development bool

	// FilePath is the rotated JSON log file; empty disables file output
	FilePath string

	// FileConfig controls rotation; zero fields use defaults
	FileConfig FileWriterConfig

	// Console receives console output; nil means os.Stderr
	Console io.Writer

	// QuietConsole limits the console to warnings and errors; the file keeps
	// the configured level
	QuietConsole bool
}

// Logger wraps zap.Logger with sensitive data redaction.
//
// Example:
//
//	logger, err := logging.NewLogger(logging.Options{FilePath: "flux.log"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("weights ready", zap.String("variant", "dev"))
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger
}

// NewLogger creates a Logger for the given options. The level defaults to debug
// in development and info otherwise, and FLUX_LOG_LEVEL overrides both.
func NewLogger(opts Options) (*Logger, error) {
	level := InfoLevel
	if opts.Development {
		level = DebugLevel
	}
	level = ParseLogLevel(LevelEnvVar, level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var fileWriter zapcore.WriteSyncer
	if opts.FilePath != "" {
		if err := EnsureLogDirectory(opts.FilePath); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		fileWriter = NewFileWriterWithConfig(opts.FilePath, opts.FileConfig)
	}

	consoleLevel := level
	if opts.QuietConsole && consoleLevel < WarnLevel {
		consoleLevel = WarnLevel
	}

	core := NewMultiCore(consoleLevel, level, zapcore.AddSync(console), fileWriter, opts.Development)
	return NewLoggerFromCore(core), nil
}

// NewLoggerFromCore wraps an existing core, such as a zaptest observer.
func NewLoggerFromCore(core zapcore.Core) *Logger {
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{zap: z, sugar: z.Sugar()}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return NewLoggerFromCore(zapcore.NewNopCore())
}

// Sync flushes buffered entries. Call it before exiting.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, l.redactFields(fields)...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, l.redactFields(fields)...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, l.redactFields(fields)...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, l.redactFields(fields)...)
}

// Infow logs loosely-typed key/value pairs at info level.
func (l *Logger) Infow(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Warnw logs loosely-typed key/value pairs at warn level.
func (l *Logger) Warnw(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, l.redactKeysAndValues(keysAndValues)...)
}

// Debugf logs a formatted message at debug level. Arguments are not redacted.
func (l *Logger) Debugf(template string, args ...interface{}) {
	l.sugar.Debugf(template, args...)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	z := l.zap.With(l.redactFields(fields)...)
	return l.derive(z)
}

// Named returns a child logger with a sub-name, such as "download" or "generate".
func (l *Logger) Named(name string) *Logger {
	return l.derive(l.zap.Named(name))
}

func (l *Logger) derive(z *zap.Logger) *Logger {
	return &Logger{zap: z, sugar: z.Sugar()}
}

func (l *Logger) redactFields(fields []zap.Field) []zap.Field {
	if len(fields) == 0 {
		return fields
	}

	result := make([]zap.Field, len(fields))
	for i, field := range fields {
		result[i] = redactField(field)
	}
	return result
}

func redactField(field zap.Field) zap.Field {
	if IsSensitiveField(field.Key) {
		return zap.String(field.Key, RedactedPlaceholder)
	}

	switch field.Type {
	case zapcore.StringType:
		if ContainsSensitiveData(field.String) {
			return zap.String(field.Key, RedactSensitiveData(field.String))
		}
	case zapcore.ErrorType:
		// Download errors can carry the request URL and headers
		if err, ok := field.Interface.(error); ok && err != nil && ContainsSensitiveData(err.Error()) {
			return zap.String(field.Key, RedactSensitiveData(err.Error()))
		}
	}

	return field
}

func (l *Logger) redactKeysAndValues(keysAndValues []interface{}) []interface{} {
	if len(keysAndValues) == 0 {
		return keysAndValues
	}

	result := make([]interface{}, len(keysAndValues))
	copy(result, keysAndValues)

	// Even indices are keys, odd indices are values
	for i := 0; i < len(result)-1; i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}
		if value, ok := result[i+1].(string); ok {
			result[i+1] = RedactField(key, value)
		} else if IsSensitiveField(key) {
			result[i+1] = RedactedPlaceholder
		}
	}

	return result
}

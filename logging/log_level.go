package logging

import (
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

// levelNames lists the levels an operator may select. Fatal and panic are
// excluded: the CLI never wants a log call to end the process.
var levelNames = map[string]zapcore.Level{
	"debug":   DebugLevel,
	"info":    InfoLevel,
	"warn":    WarnLevel,
	"warning": WarnLevel,
	"error":   ErrorLevel,
}

// ParseLogLevel reads the level from envVarName, falling back to defaultLevel.
func ParseLogLevel(envVarName string, defaultLevel zapcore.Level) zapcore.Level {
	return ParseLogLevelString(os.Getenv(envVarName), defaultLevel)
}

// ParseLogLevelString maps a case-insensitive level name to a zap level.
// Unknown names yield defaultLevel.
func ParseLogLevelString(levelStr string, defaultLevel zapcore.Level) zapcore.Level {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(levelStr))]; ok {
		return level
	}
	return defaultLevel
}

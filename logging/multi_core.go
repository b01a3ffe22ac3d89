package logging

import (
	"go.uber.org/zap/zapcore"
)

// NewMultiCore tees entries to a console writer and an optional file writer,
// each filtered at its own level.
//
// The file output always uses JSON. The console uses the colored console encoder
// in development and JSON otherwise. A nil fileWriter yields a console-only core.
func NewMultiCore(consoleLevel, fileLevel zapcore.Level, consoleWriter, fileWriter zapcore.WriteSyncer, isDev bool) zapcore.Core {
	var consoleEncoder zapcore.Encoder
	if isDev {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig())
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}
	consoleCore := zapcore.NewCore(consoleEncoder, consoleWriter, consoleLevel)

	if fileWriter == nil {
		return consoleCore
	}

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(NewEncoderConfig()), fileWriter, fileLevel)
	return zapcore.NewTee(consoleCore, fileCore)
}

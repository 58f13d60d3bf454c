// Package logging provides zap logger helpers backed by a rotatable file sink.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger writing to stdout and, when sink is non-nil, the
// rotating log file.
func New(development bool, sink zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	level := zapcore.InfoLevel
	if development {
		devCfg := zap.NewDevelopmentEncoderConfig()
		devCfg.TimeKey = "ts"
		devCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(devCfg)
		level = zapcore.DebugLevel
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	out := zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout))
	if sink != nil {
		out = zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stdout), sink)
	}
	return zap.New(zapcore.NewCore(enc, out, level), zap.AddCaller())
}

// MustSync flushes the logger, writing any failure to stderr. Best effort.
func MustSync(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", err)
	}
}

package main

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger writes human-readable logs to w: everything with --verbose,
// errors only with --quiet, warnings otherwise.
func newLogger(f commonFlags, w io.Writer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	level := zapcore.WarnLevel
	switch {
	case f.verbose:
		encCfg = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
	case f.quiet:
		level = zapcore.ErrorLevel
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

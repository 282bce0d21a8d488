// Package logging builds the zap logger used across a run.
package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production-encoded logger writing to w. The level is warn,
// or debug when verbose; quiet yields a no-op logger and wins over verbose.
func New(w io.Writer, verbose, quiet bool) *zap.Logger {
	if quiet {
		return zap.NewNop()
	}
	level := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level))
}

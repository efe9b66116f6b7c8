package duex

import (
	"go.uber.org/zap"
)

// Logger is the sink every runtime event flows through. Deliberately kept
// to gorox's own narrow shape (hemi.Logger: Logf + Close) so any sink,
// not just zap, can be plugged in.
type Logger interface {
	Logf(f string, v ...any)
	Close()
}

// zapLogger is the default Logger, backed by go.uber.org/zap.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger builds the default Logger. mute silences everything by
// returning the same no-op Logger the gateway uses when no logger is
// configured.
func NewZapLogger(mute bool) Logger {
	if mute {
		return noopLogger{}
	}
	zl, err := zap.NewProduction()
	if err != nil {
		return noopLogger{}
	}
	return &zapLogger{sugar: zl.Sugar()}
}

func (l *zapLogger) Logf(f string, v ...any) { l.sugar.Infof(f, v...) }
func (l *zapLogger) Close()                  { _ = l.sugar.Sync() }

type noopLogger struct{}

func (noopLogger) Logf(f string, v ...any) {}
func (noopLogger) Close()                  {}

// Package obslog is the ambient structured-logging layer shared by the
// optimizer orchestrator and the signal dispatcher, grounded on
// tangzhangming-nova's use of go.uber.org/zap.
package obslog

import "go.uber.org/zap"

// Logger is a thin wrapper around a zap.SugaredLogger so callers in this
// module log with simple key/value pairs instead of threading zap.Field
// construction through every call site.
type Logger struct {
	s *zap.SugaredLogger
}

// New builds a production-configured logger.
func New() (*Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return &Logger{s: z.Sugar()}, nil
}

// NewDevelopment builds a development-configured logger (human-readable,
// lower default level) for CLI use.
func NewDevelopment() (*Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &Logger{s: z.Sugar()}, nil
}

// Nop returns a Logger that discards everything, the default for
// Optimizer/Dispatcher construction when the caller doesn't care to wire
// one in.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

func (l *Logger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }
func (l *Logger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }

func (l *Logger) Sync() error { return l.s.Sync() }

package logging

import "go.uber.org/zap"

// NewZapFactory returns a Factory backed by a *zap.Logger, for installing
// structured console/file logging with WithLogger into the context the
// engine packages read from. Each module gets a child logger tagged with a
// "module" field.
func NewZapFactory(base *zap.Logger) Factory {
	return func(module string) Logger {
		return &zapLogger{s: base.Sugar().With("module", module)}
	}
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Debug(args ...interface{})                 { l.s.Debug(args...) }
func (l *zapLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *zapLogger) Debugw(msg string, kv ...interface{})      { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(args ...interface{})                  { l.s.Info(args...) }
func (l *zapLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *zapLogger) Warn(args ...interface{})                  { l.s.Warn(args...) }
func (l *zapLogger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *zapLogger) Error(args ...interface{})                 { l.s.Error(args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

package logging

// Broadcast returns a Logger that forwards every call to all of loggers, in
// order. Used by WithAdditionalLogger to fan a module's log lines out to
// more than one sink (e.g. the per-run log file and the process-wide
// console logger) without either sink knowing about the other.
func Broadcast(loggers ...Logger) Logger {
	return broadcastLogger(loggers)
}

type broadcastLogger []Logger

func (b broadcastLogger) Debug(args ...interface{}) {
	for _, l := range b {
		l.Debug(args...)
	}
}

func (b broadcastLogger) Debugf(format string, args ...interface{}) {
	for _, l := range b {
		l.Debugf(format, args...)
	}
}

func (b broadcastLogger) Debugw(msg string, kv ...interface{}) {
	for _, l := range b {
		l.Debugw(msg, kv...)
	}
}

func (b broadcastLogger) Info(args ...interface{}) {
	for _, l := range b {
		l.Info(args...)
	}
}

func (b broadcastLogger) Infof(format string, args ...interface{}) {
	for _, l := range b {
		l.Infof(format, args...)
	}
}

func (b broadcastLogger) Warn(args ...interface{}) {
	for _, l := range b {
		l.Warn(args...)
	}
}

func (b broadcastLogger) Warnf(format string, args ...interface{}) {
	for _, l := range b {
		l.Warnf(format, args...)
	}
}

func (b broadcastLogger) Error(args ...interface{}) {
	for _, l := range b {
		l.Error(args...)
	}
}

func (b broadcastLogger) Errorf(format string, args ...interface{}) {
	for _, l := range b {
		l.Errorf(format, args...)
	}
}

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// ToWriter returns a Factory whose loggers write plain lines to w, one per
// call, guarded by a mutex so concurrent modules sharing w don't interleave
// partial lines. Used in tests.
func ToWriter(w io.Writer) Factory {
	mu := &sync.Mutex{}

	return func(module string) Logger {
		return &writerLogger{w: w, mu: mu}
	}
}

type writerLogger struct {
	w  io.Writer
	mu *sync.Mutex
}

func (l *writerLogger) writeLine(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *writerLogger) Debug(args ...interface{})                 { l.writeLine(fmt.Sprint(args...)) }
func (l *writerLogger) Debugf(format string, args ...interface{}) { l.writeLine(fmt.Sprintf(format, args...)) }
func (l *writerLogger) Info(args ...interface{})                  { l.writeLine(fmt.Sprint(args...)) }
func (l *writerLogger) Infof(format string, args ...interface{})  { l.writeLine(fmt.Sprintf(format, args...)) }
func (l *writerLogger) Warn(args ...interface{})                  { l.writeLine(fmt.Sprint(args...)) }
func (l *writerLogger) Warnf(format string, args ...interface{})  { l.writeLine(fmt.Sprintf(format, args...)) }
func (l *writerLogger) Error(args ...interface{})                 { l.writeLine(fmt.Sprint(args...)) }
func (l *writerLogger) Errorf(format string, args ...interface{}) { l.writeLine(fmt.Sprintf(format, args...)) }

func (l *writerLogger) Debugw(msg string, kv ...interface{}) {
	l.writeLine(msg + "\t" + encodeKV(kv))
}

func encodeKV(kv []interface{}) string {
	m := make(map[string]interface{}, len(kv)/2)

	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}

		m[key] = kv[i+1]
	}

	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}

	return string(b)
}

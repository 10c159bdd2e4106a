package lib

import "testing"

// Logger receives the log events of the components. Print and Printf are used
// for protocol traces, the other methods are levelled events.
type Logger interface {
	Print(a ...any)
	Printf(format string, a ...any)
	Debugf(format string, a ...any)
	Infof(format string, a ...any)
	Warnf(format string, a ...any)
	Errorf(format string, a ...any)
}

type NoLog struct{}

func (l *NoLog) Print(a ...any)                 {}
func (l *NoLog) Printf(format string, a ...any) {}
func (l *NoLog) Debugf(format string, a ...any) {}
func (l *NoLog) Infof(format string, a ...any)  {}
func (l *NoLog) Warnf(format string, a ...any)  {}
func (l *NoLog) Errorf(format string, a ...any) {}

// OrNoLog returns logger, or a NoLog when logger is nil
func OrNoLog(logger Logger) Logger {
	if logger == nil {
		return &NoLog{}
	}
	return logger
}

type TestLogger struct {
	t      *testing.T
	prefix string
}

func NewTestLogger(t *testing.T, prefix string) *TestLogger {
	return &TestLogger{
		t:      t,
		prefix: prefix,
	}
}

func (l *TestLogger) Print(a ...any) {
	if l.prefix == "" {
		l.t.Log(a...)
	} else {
		l.t.Log(append([]any{l.prefix + ":"}, a...)...)
	}
}

func (l *TestLogger) Printf(format string, a ...any) {
	if l.prefix != "" {
		format = l.prefix + ": " + format
	}
	l.t.Logf(format, a...)
}

func (l *TestLogger) Debugf(format string, a ...any) {
	l.Printf("DEBUG "+format, a...)
}

func (l *TestLogger) Infof(format string, a ...any) {
	l.Printf("INFO  "+format, a...)
}

func (l *TestLogger) Warnf(format string, a ...any) {
	l.Printf("WARN  "+format, a...)
}

func (l *TestLogger) Errorf(format string, a ...any) {
	l.Printf("ERROR "+format, a...)
}

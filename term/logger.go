package term

import "github.com/creativeprojects/feedme/lib"

// Logger sends the log events of the components to the console.
// Protocol traces (Print and Printf) are only displayed at trace level.
type Logger struct {
	prefix string
}

var _ lib.Logger = &Logger{}

func NewLogger(prefix string) *Logger {
	if prefix != "" {
		prefix = "[" + prefix + "] "
	}
	return &Logger{prefix: prefix}
}

func (l *Logger) Print(a ...any) {
	if l.prefix == "" {
		Trace(a...)
		return
	}
	Trace(append([]any{l.prefix[:len(l.prefix)-1]}, a...)...)
}

func (l *Logger) Printf(format string, a ...any) {
	Tracef(l.prefix+format, a...)
}

func (l *Logger) Debugf(format string, a ...any) {
	Debugf(l.prefix+format, a...)
}

func (l *Logger) Infof(format string, a ...any) {
	Infof(l.prefix+format, a...)
}

func (l *Logger) Warnf(format string, a ...any) {
	Warnf(l.prefix+format, a...)
}

func (l *Logger) Errorf(format string, a ...any) {
	Errorf(l.prefix+format, a...)
}

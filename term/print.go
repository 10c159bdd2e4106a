package term

import (
	"sync"

	"github.com/pterm/pterm"
)

type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var (
	lvl   = LevelInfo
	lvlMu sync.RWMutex
)

func SetLevel(level Level) {
	lvlMu.Lock()
	defer lvlMu.Unlock()
	lvl = level
}

func GetLevel() Level {
	lvlMu.RLock()
	defer lvlMu.RUnlock()
	return lvl
}

func enabled(level Level) bool {
	return level >= GetLevel()
}

func Trace(a ...interface{}) {
	if !enabled(LevelTrace) {
		return
	}
	pterm.FgGray.Println(a...)
}

func Tracef(format string, a ...interface{}) {
	if !enabled(LevelTrace) {
		return
	}
	pterm.FgGray.Printfln(format, a...)
}

func Debugf(format string, a ...interface{}) {
	if !enabled(LevelDebug) {
		return
	}
	pterm.FgLightCyan.Printfln(format, a...)
}

func Infof(format string, a ...interface{}) {
	if !enabled(LevelInfo) {
		return
	}
	pterm.FgLightGreen.Printfln(format, a...)
}

func Warnf(format string, a ...interface{}) {
	if !enabled(LevelWarn) {
		return
	}
	pterm.FgYellow.Printfln(format, a...)
}

func Error(a ...interface{}) {
	pterm.FgLightRed.Println(a...)
}

func Errorf(format string, a ...interface{}) {
	pterm.FgLightRed.Printfln(format, a...)
}

package logger

import (
	"sync"
)

// Level strings accepted from configuration (log.level in config.yml).
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	root *Logger
	once sync.Once
)

// Get returns the process-wide root logger. The first call fixes the level;
// later calls return the same instance regardless of the argument, so the
// level read from configuration at startup wins.
func Get(level string) *Logger {
	once.Do(func() {
		root = newZapLogger(level)
	})
	return root
}

// Named returns a child logger tagged with a component name. The bridge
// convention is one child per subsystem (envi, poller, http) so log lines
// can be traced back to the goroutine family that wrote them.
func (l *Logger) Named(component string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(component)}
}

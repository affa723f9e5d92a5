package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
	ColorRed    = "\033[31m"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var (
	mu          sync.RWMutex
	globalLevel           = LogLevelInfo
	output      io.Writer = os.Stdout
)

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// SetGlobalLevel changes the level picked up by loggers created afterwards.
func SetGlobalLevel(level LogLevel) {
	mu.Lock()
	globalLevel = level
	mu.Unlock()
}

// SetOutput redirects all loggers. Tests use it to silence or capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	output = w
	mu.Unlock()
}

type Log struct {
	level     LogLevel
	component string
	err       error
}

func New() *Log {
	mu.RLock()
	defer mu.RUnlock()
	return &Log{level: globalLevel}
}

// Named returns a logger that prefixes every line with the component name.
func Named(component string) *Log {
	l := New()
	l.component = component
	return l
}

func (l *Log) SetLevel(level LogLevel) {
	l.level = level
}

func (l *Log) WithError(err error) *Log {
	return &Log{level: l.level, component: l.component, err: err}
}

func (l *Log) timestamp() string {
	return time.Now().Format("15:04:05")
}

func (l *Log) write(color, icon, msg string) {
	if l.component != "" {
		msg = "[" + l.component + "] " + msg
	}
	mu.RLock()
	w := output
	mu.RUnlock()
	if l.err != nil {
		fmt.Fprintf(w, "%s[%s]%s %s %s: %v%s\n", color, l.timestamp(), ColorReset, icon, msg, l.err, ColorReset)
		return
	}
	fmt.Fprintf(w, "%s[%s]%s %s %s%s\n", color, l.timestamp(), ColorReset, icon, msg, ColorReset)
}

func (l *Log) Debug(msg string) {
	if l.level > LogLevelDebug {
		return
	}
	l.write(ColorCyan, "🔍", msg)
}

func (l *Log) Info(msg string) {
	if l.level > LogLevelInfo {
		return
	}
	l.write(ColorBlue, "ℹ️ ", msg)
}

// Success logs a completed action at info level.
func (l *Log) Success(msg string) {
	if l.level > LogLevelInfo {
		return
	}
	l.write(ColorGreen, "✅", msg)
}

func (l *Log) Warn(msg string) {
	if l.level > LogLevelWarn {
		return
	}
	l.write(ColorYellow, "⚠️ ", msg)
}

func (l *Log) Error(msg string) {
	l.write(ColorRed, "❌", msg)
}

package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger defines a simple interface for logging.
// This allows for easy replacement with a more sophisticated logger if needed.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})
}

// defaultLogger is a basic implementation of the Logger interface.
type defaultLogger struct {
	debugLogger *log.Logger
	infoLogger  *log.Logger
	warnLogger  *log.Logger
	errorLogger *log.Logger
	fatalLogger *log.Logger
	logLevel    LogLevel
	noColor     bool
	silent      bool
}

// LogLevel defines the verbosity of the logger.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorDim    = "\033[2m"
)

// Callbacks let a terminal progress bar get out of the way of log lines.
var (
	logCallbackMu sync.RWMutex
	beforeLogHook func()
	afterLogHook  func()
)

// RegisterLogCallbacks installs hooks that run around every printed log line.
func RegisterLogCallbacks(before, after func()) {
	logCallbackMu.Lock()
	defer logCallbackMu.Unlock()
	beforeLogHook = before
	afterLogHook = after
}

// UnregisterLogCallbacks removes the hooks installed by RegisterLogCallbacks.
func UnregisterLogCallbacks() {
	RegisterLogCallbacks(nil, nil)
}

func colorize(s string, color string, noColor bool) string {
	if noColor {
		return s
	}
	return color + s + colorReset
}

// NewDefaultLogger creates a new logger with specified options. Every level goes to
// stderr so that stdout carries only the report. Colors are disabled automatically
// when stderr is not a terminal.
func NewDefaultLogger(level LogLevel, noColor bool, silent bool) Logger {
	return NewLoggerWithWriters(level, noColor || !IsTerminal(os.Stderr.Fd()), silent, os.Stderr, os.Stderr)
}

// NewLoggerWithWriters creates a logger writing debug/info/warn lines to out and
// error/fatal lines to errOut.
func NewLoggerWithWriters(level LogLevel, noColor bool, silent bool, out, errOut io.Writer) Logger {
	flags := 0
	emptyPrefix := ""

	debugOut, infoOut, warnOut := out, out, out
	if silent {
		debugOut = io.Discard
		infoOut = io.Discard
		warnOut = io.Discard
	}

	return &defaultLogger{
		debugLogger: log.New(debugOut, emptyPrefix, flags),
		infoLogger:  log.New(infoOut, emptyPrefix, flags),
		warnLogger:  log.New(warnOut, emptyPrefix, flags),
		errorLogger: log.New(errOut, emptyPrefix, flags),
		fatalLogger: log.New(errOut, emptyPrefix, flags),
		logLevel:    level,
		noColor:     noColor,
		silent:      silent,
	}
}

func (l *defaultLogger) prefix(levelStr string, levelColor string) string {
	currentTime := time.Now().Format("15:04:05")
	return fmt.Sprintf("%s [%s] ",
		colorize(fmt.Sprintf("[%s]", currentTime), colorDim, l.noColor),
		colorize(levelStr, levelColor, l.noColor),
	)
}

func (l *defaultLogger) logInternal(logger *log.Logger, levelStr string, levelColor string, format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)

	logCallbackMu.RLock()
	before, after := beforeLogHook, afterLogHook
	logCallbackMu.RUnlock()

	if before != nil {
		before()
	}
	logger.Print(l.prefix(levelStr, levelColor) + message)
	if after != nil {
		after()
	}
}

func (l *defaultLogger) Debugf(format string, v ...interface{}) {
	if l.silent && l.logLevel > LevelDebug {
		return
	}
	if l.logLevel <= LevelDebug {
		l.logInternal(l.debugLogger, "DEBUG", colorBlue, format, v...)
	}
}

func (l *defaultLogger) Infof(format string, v ...interface{}) {
	if l.silent && l.logLevel > LevelInfo {
		return
	}
	if l.logLevel <= LevelInfo {
		l.logInternal(l.infoLogger, "INFO", colorGreen, format, v...)
	}
}

func (l *defaultLogger) Warnf(format string, v ...interface{}) {
	if l.silent && l.logLevel > LevelWarn {
		return
	}
	if l.logLevel <= LevelWarn {
		l.logInternal(l.warnLogger, "WARN", colorYellow, format, v...)
	}
}

func (l *defaultLogger) Errorf(format string, v ...interface{}) {
	if l.logLevel <= LevelError {
		l.logInternal(l.errorLogger, "ERROR", colorRed, format, v...)
	}
}

func (l *defaultLogger) Fatalf(format string, v ...interface{}) {
	l.fatalLogger.Fatal(l.prefix("FATAL", colorRed) + fmt.Sprintf(format, v...))
}

// NoOpLogger discards everything. Fatalf still exits.
type NoOpLogger struct{}

func (*NoOpLogger) Debugf(string, ...interface{}) {}
func (*NoOpLogger) Infof(string, ...interface{})  {}
func (*NoOpLogger) Warnf(string, ...interface{})  {}
func (*NoOpLogger) Errorf(string, ...interface{}) {}
func (*NoOpLogger) Fatalf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", v...)
	os.Exit(1)
}

// StringToLogLevel converts a log level string to LogLevel type.
// Defaults to LevelInfo if the string is unrecognized.
func StringToLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "info", "":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	default:
		fmt.Fprintf(os.Stderr, "Unknown log level string '%s', defaulting to INFO.\n", levelStr)
		return LevelInfo
	}
}

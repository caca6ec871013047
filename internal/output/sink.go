package output

import (
	"github.com/rafabd1/Parallax/internal/utils"
)

// Sink receives human-readable status lines from a running campaign.
// Implementations must be safe for concurrent use and return quickly.
type Sink interface {
	Report(msg string)
}

// Tracker is implemented by sinks that also display counted progress.
type Tracker interface {
	SetTotal(total int)
	Advance()
}

// SinkFunc adapts a plain function to a Sink. A nil SinkFunc discards messages.
type SinkFunc func(msg string)

func (f SinkFunc) Report(msg string) {
	if f != nil {
		f(msg)
	}
}

type nopSink struct{}

func (nopSink) Report(string) {}

// Nop discards every message.
var Nop Sink = nopSink{}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop
	}
	return s
}

// LogSink forwards messages to a Logger at a fixed level.
type LogSink struct {
	logger utils.Logger
	level  utils.LogLevel
}

// NewLogSink creates a sink that logs every message at level.
func NewLogSink(logger utils.Logger, level utils.LogLevel) *LogSink {
	return &LogSink{logger: logger, level: level}
}

func (s *LogSink) Report(msg string) {
	switch s.level {
	case utils.LevelDebug:
		s.logger.Debugf("%s", msg)
	case utils.LevelWarn:
		s.logger.Warnf("%s", msg)
	case utils.LevelError, utils.LevelFatal:
		s.logger.Errorf("%s", msg)
	default:
		s.logger.Infof("%s", msg)
	}
}

// MultiSink fans messages out to several sinks. Tracker calls reach every member
// that implements Tracker.
type MultiSink []Sink

func (m MultiSink) Report(msg string) {
	for _, s := range m {
		if s != nil {
			s.Report(msg)
		}
	}
}

func (m MultiSink) SetTotal(total int) {
	for _, s := range m {
		if t, ok := s.(Tracker); ok {
			t.SetTotal(total)
		}
	}
}

func (m MultiSink) Advance() {
	for _, s := range m {
		if t, ok := s.(Tracker); ok {
			t.Advance()
		}
	}
}

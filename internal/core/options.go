package core

import (
	"fmt"
	"time"

	"github.com/rafabd1/Parallax/internal/config"
)

// Options controls one Runner.
type Options struct {
	SampleCount        int
	MaxCombinationSize int
	Suppression        bool
	AttemptTimeout     time.Duration
	DeadlineBuffer     time.Duration
	OverallDeadline    time.Duration // replaces the computed deadline when > 0
	Concurrency        int
	QueueSize          int
	ShutdownGrace      time.Duration
}

// DefaultOptions mirrors config.DefaultConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

// OptionsFromConfig extracts the engine settings from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SampleCount:        cfg.SampleCount,
		MaxCombinationSize: cfg.MaxCombinationSize,
		Suppression:        cfg.Suppression,
		AttemptTimeout:     cfg.AttemptTimeout,
		DeadlineBuffer:     cfg.DeadlineBuffer,
		OverallDeadline:    cfg.OverallDeadline,
		Concurrency:        cfg.Concurrency,
		QueueSize:          cfg.Concurrency * 4,
		ShutdownGrace:      cfg.ShutdownGrace,
	}
}

// Validate rejects settings the engine cannot run with.
func (o Options) Validate() error {
	switch {
	case o.SampleCount < 1:
		return fmt.Errorf("%w: sample count must be at least 1, got %d", ErrInvalidConfig, o.SampleCount)
	case o.MaxCombinationSize < 1:
		return fmt.Errorf("%w: max combination size must be at least 1, got %d", ErrInvalidConfig, o.MaxCombinationSize)
	case o.AttemptTimeout <= 0:
		return fmt.Errorf("%w: attempt timeout must be positive, got %s", ErrInvalidConfig, o.AttemptTimeout)
	case o.DeadlineBuffer < 0:
		return fmt.Errorf("%w: deadline buffer cannot be negative", ErrInvalidConfig)
	case o.OverallDeadline < 0:
		return fmt.Errorf("%w: overall deadline cannot be negative", ErrInvalidConfig)
	case o.Concurrency < 1:
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, o.Concurrency)
	case o.QueueSize < 0:
		return fmt.Errorf("%w: queue size cannot be negative", ErrInvalidConfig)
	case o.ShutdownGrace < 0:
		return fmt.Errorf("%w: shutdown grace cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Deadline returns the campaign budget for total combinations: every attempt
// timing out plus the buffer, unless OverallDeadline is set. It saturates
// instead of overflowing.
func (o Options) Deadline(total int) time.Duration {
	if o.OverallDeadline > 0 {
		return o.OverallDeadline
	}
	attempts := satMul(int64(max(total, 0)), int64(max(o.SampleCount, 0)))
	budget := satMul(int64(max(o.AttemptTimeout, 0)), attempts)
	return time.Duration(satAdd(budget, int64(max(o.DeadlineBuffer, 0))))
}

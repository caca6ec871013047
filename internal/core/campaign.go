package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rafabd1/Parallax/internal/httpmsg"
	"github.com/rafabd1/Parallax/internal/output"
	"github.com/rafabd1/Parallax/internal/utils"
)

// CombinationResult holds the samples collected for one combination. It is only
// produced when at least one attempt succeeded.
type CombinationResult struct {
	Index       int // position in enumeration order
	Combination Combination
	Description string
	Request     *httpmsg.Request
	Samples     []ProbeSample
}

// CampaignResult is the outcome of one RunAll call.
type CampaignResult struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Deadline  time.Duration
	Base      *httpmsg.Request
	Total     int // combinations enumerated
	Cancelled int // combinations dropped by the deadline or interruption
	Results   []CombinationResult
}

// Campaign is the state of a run in progress.
type Campaign struct {
	ID           string
	Base         *httpmsg.Request
	Combinations []Combination
	Deadline     time.Duration
	start        time.Time
}

func newCampaign(base *httpmsg.Request, combos []Combination, deadline time.Duration) *Campaign {
	return &Campaign{
		ID:           uuid.NewString(),
		Base:         base,
		Combinations: combos,
		Deadline:     deadline,
		start:        time.Now(),
	}
}

// remaining returns the unused part of the campaign deadline.
func (c *Campaign) remaining() time.Duration {
	return c.Deadline - time.Since(c.start)
}

// Runner executes campaigns on a shared bounded worker pool.
type Runner struct {
	opts   Options
	pool   *utils.WorkerPool
	prober *Prober
	pacer  Pacer
	sink   output.Sink
	logger utils.Logger

	closed       atomic.Bool
	shutdownOnce sync.Once
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithPacer throttles every attempt through p.
func WithPacer(p Pacer) RunnerOption {
	return func(r *Runner) {
		r.pacer = p
	}
}

// NewRunner validates opts and starts the worker pool. sink may be nil.
func NewRunner(opts Options, transport Transport, sink output.Sink, logger utils.Logger, options ...RunnerOption) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is nil", ErrInvalidConfig)
	}
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	r := &Runner{
		opts:   opts,
		sink:   output.OrNop(sink),
		logger: logger,
	}
	for _, o := range options {
		o(r)
	}
	r.prober = NewProber(transport, r.pacer, r.sink, logger)
	r.pool = utils.NewWorkerPool(context.Background(), opts.Concurrency, opts.QueueSize)
	logger.Debugf("[Runner] Worker pool started with %d workers (queue %d).", opts.Concurrency, opts.QueueSize)
	return r, nil
}

// Options returns the settings the runner was built with.
func (r *Runner) Options() Options {
	return r.opts
}

// RunAll probes every combination of mutations against base and returns the
// results in enumeration order. Per-attempt failures and deadline expiry only
// shrink the result set; an error is returned only when the campaign cannot start.
func (r *Runner) RunAll(ctx context.Context, base *httpmsg.Request, mutations []Mutation) (*CampaignResult, error) {
	if err := r.opts.Validate(); err != nil {
		return nil, err
	}
	if base == nil {
		return nil, ErrNilRequest
	}
	if r.closed.Load() {
		return nil, ErrRunnerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	combos := Enumerate(mutations, r.opts.MaxCombinationSize, r.opts.Suppression)
	total := len(combos)
	c := newCampaign(base, combos, r.opts.Deadline(total))
	startedAt := time.Now()

	if r.opts.Suppression {
		if skipped := CountCombinations(len(mutations), r.opts.MaxCombinationSize) - total; skipped > 0 {
			r.logger.Debugf("[Runner] Suppressed %d conflicting combination(s).", skipped)
		}
	}
	r.sink.Report(fmt.Sprintf("Testing %d mutation combinations...", total))
	tracker, _ := r.sink.(output.Tracker)
	if tracker != nil {
		tracker.SetTotal(total)
	}
	r.logger.Debugf("[Runner] Campaign %s: %d combination(s), %d sample(s) each, deadline %s.", c.ID, total, r.opts.SampleCount, c.Deadline)

	runCtx, cancel := context.WithTimeout(ctx, c.Deadline)
	defer cancel()

	futures := make([]*utils.Future, 0, total)
	for i, combo := range combos {
		f, err := r.pool.Submit(runCtx, r.task(base, combo, i, total))
		if err != nil {
			r.logger.Warnf("[Runner] Stopped submitting at combination %d/%d: %v", i+1, total, err)
			break
		}
		futures = append(futures, f)
	}

	results := make([]CombinationResult, 0, len(futures))
	cancelled := total - len(futures)
	timeoutReported := false
	for _, f := range futures {
		// past the deadline Wait only collects tasks that already finished
		remaining := c.remaining()
		if remaining <= 0 && !timeoutReported {
			r.sink.Report("Overall timeout reached, collecting available results...")
			timeoutReported = true
		}

		v, err := f.Wait(remaining)
		switch {
		case errors.Is(err, utils.ErrWaitTimeout):
			if remaining > 0 {
				r.sink.Report("Mutation timed out, skipping...")
			}
			f.Cancel()
			cancelled++
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			cancelled++
		case err != nil:
			r.logger.Warnf("[Runner] Combination task failed: %v", err)
		default:
			if res, ok := v.(*CombinationResult); ok && res != nil {
				results = append(results, *res)
			}
		}
		if tracker != nil {
			tracker.Advance()
		}
	}

	r.sink.Report(fmt.Sprintf("Completed testing %d mutations successfully", len(results)))
	if cancelled > 0 {
		r.logger.Debugf("[Runner] Campaign %s: %d combination(s) cancelled.", c.ID, cancelled)
	}

	return &CampaignResult{
		ID:        c.ID,
		StartedAt: startedAt,
		Duration:  time.Since(c.start),
		Deadline:  c.Deadline,
		Base:      base,
		Total:     total,
		Cancelled: cancelled,
		Results:   results,
	}, nil
}

func (r *Runner) task(base *httpmsg.Request, combo Combination, index, total int) utils.Job {
	return func(ctx context.Context) (interface{}, error) {
		mutated, desc := ApplyCombination(base, combo)
		r.sink.Report(fmt.Sprintf("Testing mutation %d/%d: %s", index+1, total, desc))

		samples := r.prober.Probe(ctx, mutated, desc, r.opts.SampleCount, r.opts.AttemptTimeout)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(samples) == 0 {
			r.logger.Debugf("[Runner] No successful attempts for %s.", desc)
			return nil, nil
		}
		return &CombinationResult{
			Index:       index,
			Combination: combo,
			Description: desc,
			Request:     mutated,
			Samples:     samples,
		}, nil
	}
}

// Shutdown stops the worker pool. Queued and running tasks get ShutdownGrace to
// finish before they are cancelled. Later calls return immediately.
func (r *Runner) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.closed.Store(true)
		if !r.pool.Shutdown(r.opts.ShutdownGrace) {
			r.logger.Warnf("[Runner] Worker pool did not drain within %s; remaining tasks were cancelled.", r.opts.ShutdownGrace)
		}
	})
}

package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rafabd1/Parallax/internal/httpmsg"
	"github.com/rafabd1/Parallax/internal/output"
	"github.com/rafabd1/Parallax/internal/utils"
)

// Transport delivers a raw request and reads one response. Send must return
// once ctx is done.
type Transport interface {
	Send(ctx context.Context, req *httpmsg.Request) (*httpmsg.Response, error)
}

// Pacer throttles attempts per target. Wait blocks until an attempt may start
// or ctx is done; Record feeds the outcome back.
type Pacer interface {
	Wait(ctx context.Context, target httpmsg.Target) error
	Record(target httpmsg.Target, statusCode int, err error)
}

// SlotAcquirer is implemented by transports that cap connections per target.
// The slot is held for the whole attempt but taken before its clock starts, so
// local queueing never counts as target latency.
type SlotAcquirer interface {
	Acquire(ctx context.Context, target httpmsg.Target) (release func(), err error)
}

// ProbeSample is one successful attempt.
type ProbeSample struct {
	Attempt  int
	Response *httpmsg.Response
	Elapsed  time.Duration
}

// ElapsedMillis returns the attempt round trip in whole milliseconds.
func (s ProbeSample) ElapsedMillis() int64 {
	return s.Elapsed.Milliseconds()
}

// Prober sends a request a fixed number of times and keeps the successful samples.
type Prober struct {
	transport Transport
	pacer     Pacer
	sink      output.Sink
	logger    utils.Logger
}

// NewProber creates a Prober. pacer may be nil.
func NewProber(transport Transport, pacer Pacer, sink output.Sink, logger utils.Logger) *Prober {
	if logger == nil {
		logger = &utils.NoOpLogger{}
	}
	return &Prober{
		transport: transport,
		pacer:     pacer,
		sink:      output.OrNop(sink),
		logger:    logger,
	}
}

// Probe runs sampleCount sequential attempts of req, each bounded by attemptTimeout.
// Failed attempts are reported to the sink and dropped. When ctx ends the remaining
// attempts are abandoned and the samples gathered so far are returned.
func (p *Prober) Probe(ctx context.Context, req *httpmsg.Request, label string, sampleCount int, attemptTimeout time.Duration) []ProbeSample {
	samples := make([]ProbeSample, 0, sampleCount)
	for attempt := 1; attempt <= sampleCount; attempt++ {
		if ctx.Err() != nil {
			p.logger.Debugf("[Prober] Abandoning %d remaining attempt(s) for %s: %v", sampleCount-attempt+1, label, ctx.Err())
			break
		}
		if sample, ok := p.attempt(ctx, req, label, attempt, attemptTimeout); ok {
			samples = append(samples, sample)
		}
	}
	return samples
}

func (p *Prober) attempt(ctx context.Context, req *httpmsg.Request, label string, attempt int, timeout time.Duration) (ProbeSample, bool) {
	if p.pacer != nil {
		if err := p.pacer.Wait(ctx, req.Target); err != nil {
			p.logger.Debugf("[Prober] Pacer wait for %s interrupted: %v", req.Target, err)
			return ProbeSample{}, false
		}
	}

	if slots, ok := p.transport.(SlotAcquirer); ok {
		release, err := slots.Acquire(ctx, req.Target)
		if err != nil {
			p.logger.Debugf("[Prober] Waiting for a connection slot to %s interrupted: %v", req.Target, err)
			return ProbeSample{}, false
		}
		defer release()
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.transport.Send(attemptCtx, req)
	elapsed := time.Since(start)

	if p.pacer != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		p.pacer.Record(req.Target, status, err)
	}

	switch {
	case ctx.Err() != nil:
		// campaign ended mid-attempt; the outcome is not attributable to the mutation
		p.logger.Debugf("[Prober] Attempt %d for %s interrupted: %v", attempt, label, ctx.Err())
		return ProbeSample{}, false
	case isTimeout(err) || attemptCtx.Err() == context.DeadlineExceeded:
		p.sink.Report("Request timeout for: " + label)
	case err != nil:
		p.sink.Report(fmt.Sprintf("Request error for %s: %v", label, err))
	case resp == nil:
		p.sink.Report("No response for mutation: " + label)
	default:
		p.sink.Report(fmt.Sprintf("Response received: %d in %dms", resp.StatusCode, elapsed.Milliseconds()))
		return ProbeSample{Attempt: attempt, Response: resp, Elapsed: elapsed}, true
	}
	return ProbeSample{}, false
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrPoolClosed is returned by Submit once Shutdown has been called.
	ErrPoolClosed = errors.New("worker pool is closed, cannot submit new jobs")
	// ErrWaitTimeout is returned by Future.Wait when the job did not finish in time.
	ErrWaitTimeout = errors.New("timed out waiting for job")
)

// Job represents a function to be executed by a worker.
// ctx is cancelled when the future is cancelled, when the submitting context ends,
// or when the pool is forced down.
type Job func(ctx context.Context) (interface{}, error)

// Future is the handle for a submitted Job.
type Future struct {
	job    Job
	ctx    context.Context
	cancel context.CancelFunc
	stop   func() bool
	done   chan struct{}
	result interface{}
	err    error
}

// Done is closed once the job has finished or was skipped because it was cancelled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Cancel requests cooperative cancellation. A job still in the queue is skipped;
// a running job sees its context cancelled.
func (f *Future) Cancel() {
	f.cancel()
}

// Wait blocks up to timeout for the job outcome.
func (f *Future) Wait(timeout time.Duration) (interface{}, error) {
	if timeout <= 0 {
		select {
		case <-f.done:
			return f.result, f.err
		default:
			return nil, ErrWaitTimeout
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		return nil, ErrWaitTimeout
	}
}

func (f *Future) run() {
	defer close(f.done)
	defer f.cancel()
	defer f.stop()
	defer func() {
		if r := recover(); r != nil {
			f.result = nil
			f.err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	if err := f.ctx.Err(); err != nil {
		f.err = err
		return
	}
	f.result, f.err = f.job(f.ctx)
}

// WorkerPool runs jobs on a fixed number of goroutines.
type WorkerPool struct {
	numWorkers int
	jobQueue   chan *Future
	ctx        context.Context
	cancel     context.CancelFunc // forces running jobs to stop
	shutdownWg sync.WaitGroup     // To wait for all workers to finish during shutdown
	stopped    chan struct{}
	mu         sync.RWMutex // protects isClosed and closing jobQueue
	isClosed   bool
}

// NewWorkerPool creates and starts a new WorkerPool.
func NewWorkerPool(parentCtx context.Context, numWorkers int, queueSize int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(parentCtx)
	wp := &WorkerPool{
		numWorkers: numWorkers,
		jobQueue:   make(chan *Future, queueSize),
		ctx:        ctx,
		cancel:     cancel,
		stopped:    make(chan struct{}),
	}

	wp.start()
	return wp
}

// start initializes the workers.
func (wp *WorkerPool) start() {
	wp.shutdownWg.Add(wp.numWorkers)
	for i := 0; i < wp.numWorkers; i++ {
		go wp.worker()
	}

	go func() {
		wp.shutdownWg.Wait()
		close(wp.stopped)
	}()
}

// worker drains the queue until it is closed. Cancelled jobs are skipped quickly.
func (wp *WorkerPool) worker() {
	defer wp.shutdownWg.Done()
	for f := range wp.jobQueue {
		f.run()
	}
}

// Size returns the number of workers.
func (wp *WorkerPool) Size() int {
	return wp.numWorkers
}

// Submit queues job and returns its Future. It blocks while the queue is full,
// until ctx is done or the pool is closed.
func (wp *WorkerPool) Submit(ctx context.Context, job Job) (*Future, error) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.isClosed {
		return nil, ErrPoolClosed
	}

	jobCtx, cancel := context.WithCancel(ctx)
	f := &Future{
		job:    job,
		ctx:    jobCtx,
		cancel: cancel,
		stop:   context.AfterFunc(wp.ctx, cancel),
		done:   make(chan struct{}),
	}

	select {
	case wp.jobQueue <- f:
		return f, nil
	case <-ctx.Done():
		f.stop()
		cancel()
		return nil, ctx.Err()
	case <-wp.ctx.Done():
		f.stop()
		cancel()
		return nil, ErrPoolClosed
	}
}

// MinForcedDrain is the least time Shutdown waits for workers after cancelling
// their jobs, whatever grace was given.
const MinForcedDrain = time.Second

// Shutdown stops accepting jobs and waits up to grace for queued and running jobs
// to finish. After that it cancels every remaining job and waits up to grace again,
// but never less than MinForcedDrain.
// It reports whether the pool drained without being forced. Calling it more than
// once is safe.
func (wp *WorkerPool) Shutdown(grace time.Duration) bool {
	wp.mu.Lock()
	if !wp.isClosed {
		wp.isClosed = true
		close(wp.jobQueue) // workers exit after draining what is left
	}
	wp.mu.Unlock()
	defer wp.cancel()

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-wp.stopped:
		return true
	case <-timer.C:
	}

	wp.cancel()
	drain := grace
	if drain < MinForcedDrain {
		drain = MinForcedDrain
	}
	forced := time.NewTimer(drain)
	defer forced.Stop()
	select {
	case <-wp.stopped:
	case <-forced.C:
	}
	return false
}

// Stopped is closed once every worker goroutine has exited.
func (wp *WorkerPool) Stopped() <-chan struct{} {
	return wp.stopped
}

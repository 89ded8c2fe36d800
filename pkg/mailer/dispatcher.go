package mailer

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/ticketblaster/pkg/errors"
)

// Result is the outcome of one dispatched job.
type Result struct {
	JobID    string
	Err      error
	Duration time.Duration
}

type job struct {
	id   string
	run  func(context.Context) error
	done func(Result)
}

// closeGrace is how long Close lets a running job finish before cancelling
// its context.
const closeGrace = 2 * time.Second

// Dispatcher runs jobs on a single background worker. Only one job may be
// queued or running at a time; Submit rejects others with BUSY.
type Dispatcher struct {
	jobs   chan job
	busy   atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
	logger *log.Logger
	grace  time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker. Jobs receive a context derived from ctx.
func NewDispatcher(ctx context.Context, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	ctx, cancel := context.WithCancel(ctx)
	d := &Dispatcher{
		jobs:   make(chan job, 1),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		grace:  closeGrace,
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// Busy reports whether a job is queued or running.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Submit queues run. done is called exactly once with the result, from the
// worker goroutine, after the dispatcher is ready for the next job.
func (d *Dispatcher) Submit(run func(context.Context) error, done func(Result)) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", errors.New(errors.ErrCodeInternal, "dispatcher is closed")
	}
	if !d.busy.CompareAndSwap(false, true) {
		return "", errors.New(errors.ErrCodeBusy, "a send is already in progress")
	}

	j := job{id: uuid.NewString(), run: run, done: done}
	d.jobs <- j
	d.logger.Debug("job queued", "job", j.id)
	return j.id, nil
}

// Close stops the worker. A pending job gets a short grace period to
// finish; after that its context is cancelled and Close waits for it to
// return.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(d.grace):
		d.logger.Warn("cancelling unfinished job", "grace", d.grace)
		d.cancel()
		<-stopped
	}
	d.cancel()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.execute(j)
	}
}

func (d *Dispatcher) execute(j job) {
	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("job panicked", "job", j.id, "panic", r)
			err = errors.New(errors.ErrCodeInternal, "send aborted: %v", r)
		}
		res := Result{JobID: j.id, Err: err, Duration: time.Since(start)}
		d.busy.Store(false)
		if j.done != nil {
			j.done(res)
		}
	}()
	err = j.run(d.ctx)
}

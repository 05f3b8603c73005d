package fsclient

import (
	stderrors "errors"

	"github.com/uber/fsdriver/src/fsdriver/entity"
	"go.uber.org/multierr"
)

var errShuttingDown = stderrors.New("fsclient: session is shutting down")

// job is one queued unit of work: a request and the one-shot completion
// its submitter is awaiting.
type job struct {
	run  func() (entity.CompilerOutput, error)
	done chan jobResult
}

type jobResult struct {
	output entity.CompilerOutput
	err    error
}

// requestQueue is a single-consumer FIFO serializer: at most one job
// executes at a time, and jobs complete in submission order.
type requestQueue struct {
	jobs    chan job
	closed  chan struct{}
	stopped chan struct{}
}

func newRequestQueue() *requestQueue {
	q := &requestQueue{
		jobs:    make(chan job, 256),
		closed:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *requestQueue) run() {
	defer close(q.stopped)
	for {
		select {
		case <-q.closed:
			return
		default:
		}

		select {
		case j := <-q.jobs:
			out, err := j.run()
			j.done <- jobResult{output: out, err: err}
		case <-q.closed:
			return
		}
	}
}

// submit enqueues run and blocks until it has executed, returning its
// result. Submissions from multiple goroutines serialize in arrival
// order on the channel.
func (q *requestQueue) submit(run func() (entity.CompilerOutput, error)) (entity.CompilerOutput, error) {
	j := job{run: run, done: make(chan jobResult, 1)}
	select {
	case q.jobs <- j:
	case <-q.closed:
		return entity.CompilerOutput{}, errShuttingDown
	}

	res := <-j.done
	return res.output, res.err
}

// shutdown stops the worker and drains any jobs still queued, returning
// their aggregated errors.
func (q *requestQueue) shutdown() error {
	close(q.closed)
	<-q.stopped

	var errs error
	for {
		select {
		case j := <-q.jobs:
			j.done <- jobResult{err: errShuttingDown}
			errs = multierr.Append(errs, errShuttingDown)
		default:
			return errs
		}
	}
}

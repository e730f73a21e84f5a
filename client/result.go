package client

import (
	"sync"
	"sync/atomic"
)

// State is the lifecycle position of a request.
type State int32

const (
	StateIdle State = iota
	StateSent
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}

	return "unknown"
}

// Result represents an in-flight or settled request. It settles exactly once.
type Result struct {
	id    string
	state atomic.Int32
	done  chan struct{}
	resp  *Response
	err   error

	mu    sync.Mutex
	abort func()
}

func newResult(id string) *Result {
	return &Result{
		id:   id,
		done: make(chan struct{}),
	}
}

// ID returns the request id, which is also logged and traced.
func (r *Result) ID() string { return r.id }

// State returns the current lifecycle state.
func (r *Result) State() State { return State(r.state.Load()) }

// Done returns a channel that is closed once the request settled and the
// callbacks of the settling event returned.
func (r *Result) Done() <-chan struct{} { return r.done }

// Await blocks until the request settles.
//
// A successful request returns its response and a nil error. A response
// without a success status, and a transport failure, return the response
// along with a *[RejectedError]. A failure while preparing the request or
// processing the response returns a nil response and [ErrRejected]; its
// cause is only reported to [Options.OnError].
func (r *Result) Await() (*Response, error) {
	<-r.done
	return r.resp, r.err
}

// Err blocks until the request settles and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Cancel aborts the request if it is in flight.
func (r *Result) Cancel() {
	r.mu.Lock()
	abort := r.abort
	r.mu.Unlock()

	if abort != nil {
		abort()
	}
}

func (r *Result) setAbort(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abort = fn
}

// markSent moves an idle result to sent.
func (r *Result) markSent() bool {
	return r.state.CompareAndSwap(int32(StateIdle), int32(StateSent))
}

// settle records the outcome if the result is not settled yet. Only the
// caller that settled may publish.
func (r *Result) settle(resp *Response, err error) bool {
	next := StateSucceeded
	if err != nil {
		next = StateFailed
	}

	for {
		cur := State(r.state.Load())
		if cur == StateSucceeded || cur == StateFailed {
			return false
		}
		if r.state.CompareAndSwap(int32(cur), int32(next)) {
			r.resp, r.err = resp, err
			return true
		}
	}
}

// publish releases waiters.
func (r *Result) publish() {
	close(r.done)
}

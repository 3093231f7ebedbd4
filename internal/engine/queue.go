package engine

import (
	"sync"

	"github.com/roach88/blocklog/internal/ir"
)

// request is a submitted transaction waiting for the Run loop.
type request struct {
	tx   ir.Transaction
	done chan result // buffered, size 1
}

type result struct {
	receipt ir.Receipt
	err     error
}

func newRequest(tx ir.Transaction) *request {
	return &request{tx: tx, done: make(chan result, 1)}
}

// respond delivers the outcome without blocking; a request is answered once.
func (r *request) respond(receipt ir.Receipt, err error) {
	select {
	case r.done <- result{receipt: receipt, err: err}:
	default:
	}
}

// requestQueue is a thread-safe FIFO of pending transactions.
//
// Submitters enqueue from any goroutine while the Run loop dequeues. The
// signal channel lets the loop wait on availability and context
// cancellation in one select.
type requestQueue struct {
	mu       sync.Mutex
	requests []*request
	closed   bool
	signal   chan struct{} // buffered, size 1
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]*request, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds r to the back of the queue.
// Returns false if the queue is closed.
func (q *requestQueue) Enqueue(r *request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.requests = append(q.requests, r)

	// Non-blocking; the buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front request without blocking.
func (q *requestQueue) TryDequeue() (*request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return nil, false
	}

	r := q.requests[0]
	q.requests[0] = nil // release for GC

	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}

	return r, true
}

// Drain removes and returns every pending request.
func (q *requestQueue) Drain() []*request {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := q.requests
	q.requests = nil
	return pending
}

// Wait returns a channel that signals when requests may be available.
// The channel is closed by Close.
func (q *requestQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Closed reports whether Close was called.
func (q *requestQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close stops accepting requests and wakes the Run loop.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Package sink implements the result sink shared by parallel entity runs.
//
// A sink is created by the orchestrating caller and handed to each entity
// per run. It is append-only from the producers' side and makes no ordering
// promise between producers; payloads carry their entity and instance so
// the consumer can correlate them.
package sink

import (
	"errors"
	"sync"

	"github.com/roach88/dutkit/internal/ir"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("result sink is closed")

// Publisher is the handle an entity may publish its outputs to.
type Publisher interface {
	Publish(p ir.Payload) error
}

// Queue is an unbounded multi-producer FIFO of payloads.
//
// The queue uses a channel for signaling so consumers can wait with select
// alongside a context.
type Queue struct {
	mu       sync.Mutex
	payloads []ir.Payload
	closed   bool
	signal   chan struct{} // buffered, size 1
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		payloads: make([]ir.Payload, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// Publish appends a payload. Safe for concurrent use.
func (q *Queue) Publish(p ir.Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.payloads = append(q.payloads, p)

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// TryReceive removes and returns the oldest payload without blocking.
func (q *Queue) TryReceive() (ir.Payload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.payloads) == 0 {
		return ir.Payload{}, false
	}
	p := q.payloads[0]
	// Drop the reference so sample buffers can be collected.
	q.payloads[0] = ir.Payload{}
	q.payloads = q.payloads[1:]
	return p, true
}

// Drain removes and returns every queued payload.
func (q *Queue) Drain() []ir.Payload {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.payloads
	q.payloads = make([]ir.Payload, 0, 16)
	return out
}

// Wait returns a channel that signals when payloads may be available.
// It is closed by Close.
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued payloads.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.payloads)
}

// Close stops further publication and wakes waiters.
// Queued payloads remain receivable.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

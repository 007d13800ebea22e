// Package publish implements the FIFO of in-flight PublishRequest
// envelopes awaiting a notification to pair with (spec.md §3, §4.4, §9).
package publish

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lAndbz/opcua-processor/ua"
)

// ErrTooManyPublishRequests is returned by Push when the queue has a
// positive bound and is already full (spec.md §9 Open Question (d)).
var ErrTooManyPublishRequests = errors.New("publish: BadTooManyPublishRequests")

// Slot is a captured incoming PublishRequest envelope, spec.md §3
// PublishRequestSlot.
type Slot struct {
	RequestHeader  ua.RequestHeader
	AlgoHeader     interface{} // *ua.AsymmetricAlgorithmHeader or *ua.SymmetricAlgorithmHeader
	SequenceHeader ua.SequenceHeader
}

// Queue is a bounded, mutex-guarded FIFO. Pushed by the read thread on
// every PublishRequest, popped by forward_publish_response on the
// subscription engine's thread (spec.md §5).
type Queue struct {
	mu     sync.Mutex
	slots  []Slot
	max    int // 0 = unbounded
	closed bool
}

// NewQueue returns an empty Queue. max <= 0 means unbounded, matching the
// original's undefended behaviour (spec.md §9 Open Question (d), left as
// an extension point but wired here).
func NewQueue(max int) *Queue {
	return &Queue{max: max}
}

// Push enqueues a slot. Returns ErrTooManyPublishRequests without
// mutating the queue if a positive bound is configured and already
// reached.
func (q *Queue) Push(s Slot) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	if q.max > 0 && len(q.slots) >= q.max {
		return ErrTooManyPublishRequests
	}
	q.slots = append(q.slots, s)
	return nil
}

// Pop removes and returns the head slot, FIFO order (spec.md §5:
// "pop from the FIFO head in the order notifications arrive"). ok is
// false if the queue is empty or closed — the caller logs and drops
// (spec.md §4.4 forward_publish_response, §7 "Callback-on-empty-queue").
func (q *Queue) Pop() (Slot, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.slots) == 0 {
		return Slot{}, false
	}
	s := q.slots[0]
	q.slots = q.slots[1:]
	return s, true
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.slots)
}

// Close drains the queue and makes future Push/Pop no-ops, the
// cancellation contract for connection loss / SecureClose (spec.md §5:
// "make forward_publish_response a no-op").
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.slots = nil
}

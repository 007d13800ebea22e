package processor

import (
	"sync"

	"github.com/lAndbz/opcua-processor/channel"
	"github.com/lAndbz/opcua-processor/publish"
	"github.com/lAndbz/opcua-processor/ua"
)

// connState holds the shared mutable state spec.md §9 calls out as the
// only state shared between the read thread and foreign-thread publish
// callbacks: the secure channel record (via channel.Manager), the
// outgoing sequence counter, and the send path itself. One mutex orders
// all three, matching the teacher's single send-mutex-plus-counter
// shape (SagerNet-smux Session.writeFrameInternal).
type connState struct {
	writer *frameWriter

	mu       sync.Mutex
	seq      uint32 // next outgoing sequence number, starts at 1 (spec.md §3)
	closed   bool

	channels *channel.Manager
	queue    *publish.Queue
}

func newConnState(w *frameWriter, channels *channel.Manager, queue *publish.Queue) *connState {
	return &connState{writer: w, seq: 1, channels: channels, queue: queue}
}

// close marks the connection as shut down: the send path becomes a
// silent no-op (spec.md §5: "the send path checks a closed flag under
// the send mutex and returns silently") and the publish queue is
// drained so late callbacks have nothing to pop.
func (c *connState) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.queue.Close()
}

// send is the single serialisation point for every outgoing frame:
// it assigns the next sequence number and stamps the current channel
// id/token id while holding the send mutex, then writes the frame,
// exactly spec.md §4.4's send_response contract and §4.2/§5's ordering
// guarantees.
//
// Each stamper is called with the assigned sequence number and the
// current channel record, so the caller can stamp them onto its sequence
// and algorithm headers. Both must be set before parts are encoded, so
// they are applied via the stampers rather than returned after the fact.
func (c *connState) send(hdr ua.Header, stampers []func(seqNum uint32, record channel.Record), parts ...encoder) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	record, _ := c.channels.Current()
	seqNum := c.seq
	c.seq++

	for _, stamp := range stampers {
		stamp(seqNum, record)
	}

	return c.writer.write(hdr, parts...)
}

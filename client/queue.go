package client

import (
	"sync"

	"github.com/luma/relay/protocol"
)

type delivery struct {
	entry   *entry
	payload *protocol.Payload
}

// eventQueue is an unbounded FIFO between the read loop and the event loop.
// push never blocks, so a slow subscriber can not stall the read loop.
type eventQueue struct {
	mu     sync.Mutex
	items  []delivery
	closed bool

	// signal holds at most one pending wake up
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		signal: make(chan struct{}, 1),
	}
}

func (q *eventQueue) push(d delivery) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	q.items = append(q.items, d)
	q.mu.Unlock()

	q.wake()
}

// close stops accepting deliveries. pop drains what is left, then reports
// false.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.wake()
}

func (q *eventQueue) pop() (delivery, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			d := q.items[0]
			q.items[0] = delivery{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return d, true
		}

		if q.closed {
			q.mu.Unlock()
			return delivery{}, false
		}
		q.mu.Unlock()

		<-q.signal
	}
}

func (q *eventQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

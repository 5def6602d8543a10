package engine

import "sync"

// Dispatch is one command waiting for delivery.
//
// Command has already had its wait annotations removed. Timing is enforced by
// the producing runner before enqueue, so a Dispatch carries no delay.
type Dispatch struct {
	// Seq is the logical clock value assigned at enqueue.
	Seq int64 `json:"seq"`
	// RunID identifies the running instance that produced the command.
	RunID string `json:"run_id"`
	// MacroID identifies the macro the run was spawned from.
	MacroID string `json:"macro_id"`
	// Command is the text forwarded to the sink.
	Command string `json:"command"`
}

// deliveryQueue is a thread-safe FIFO queue of dispatches.
//
// The queue is unbounded so a runner never blocks on enqueue. Every runner
// goroutine is a producer; the tick consumer is the only reader.
type deliveryQueue struct {
	mu     sync.Mutex
	items  []Dispatch
	closed bool
}

// newDeliveryQueue creates an empty queue.
func newDeliveryQueue() *deliveryQueue {
	return &deliveryQueue{
		items: make([]Dispatch, 0, 64),
	}
}

// Enqueue adds a dispatch to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *deliveryQueue) Enqueue(d Dispatch) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, d)
	return true
}

// TryDequeue removes the front dispatch without blocking.
// Returns (Dispatch{}, false) if the queue is empty.
func (q *deliveryQueue) TryDequeue() (Dispatch, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Dispatch{}, false
	}

	d := q.items[0]

	// Clear the slot so the backing array does not pin the command string.
	q.items[0] = Dispatch{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return d, true
}

// Len returns the current queue length.
func (q *deliveryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close rejects further enqueues. Items already queued can still be dequeued.
func (q *deliveryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

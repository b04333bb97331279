package loader

import "sync"

// Frames schedules callbacks for the next animation frame
type Frames interface {
	RequestFrame(fn func())
}

// FrameQueue is a manually ticked frame scheduler. Callbacks requested
// during a tick run on the following tick.
type FrameQueue struct {
	mu      sync.Mutex
	pending []func()
}

// NewFrameQueue creates an empty queue
func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

// RequestFrame queues fn for the next tick
func (q *FrameQueue) RequestFrame(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, fn)
}

// Tick runs every callback queued before it started and returns how many ran
func (q *FrameQueue) Tick() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Pending returns the number of queued callbacks
func (q *FrameQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Settle ticks until the queue is empty or maxTicks have run, returning the
// number of ticks
func (q *FrameQueue) Settle(maxTicks int) int {
	ticks := 0
	for ticks < maxTicks && q.Pending() > 0 {
		q.Tick()
		ticks++
	}
	return ticks
}

package config

import "sync"

// Mutation is a single admin-originated change, applied at a tick
// boundary so no subsystem ever observes a change mid-tick.
// Apply runs on the scheduler goroutine; errors are surfaced to whoever
// submitted the mutation through the Result channel, never by panicking
// the tick loop.
type Mutation struct {
	Apply  func() error
	Result chan<- error
}

// Queue buffers admin mutations between ticks. Producers (the admin HTTP
// surface, consolectl) call Submit from arbitrary goroutines; the
// scheduler alone calls Drain, once per tick, before stepping any
// subsystem.
type Queue struct {
	mu      sync.Mutex
	pending []Mutation
}

func NewQueue() *Queue {
	return &Queue{}
}

// Submit enqueues a mutation for application at the next tick boundary.
// It does not block for the result; callers that need the outcome should
// pass a buffered Result channel.
func (q *Queue) Submit(m Mutation) {
	q.mu.Lock()
	q.pending = append(q.pending, m)
	q.mu.Unlock()
}

// Drain applies every queued mutation in submission order and returns the
// count applied. Called once per tick by the scheduler.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, m := range batch {
		err := m.Apply()
		if m.Result != nil {
			m.Result <- err
		}
	}
	return len(batch)
}

package webnav

import (
	"sync"

	"github.com/roach88/navexpect/internal/engine"
)

// Queue is an unbounded FIFO between a host callback and the engine.
//
// Push never blocks, so host listeners can enqueue from inside their event
// callbacks. The consumer side either polls with TryPop and Wait or reads
// the channel returned by Events.
type Queue struct {
	mu     sync.Mutex
	events []engine.ObservedEvent
	closed bool
	signal chan struct{} // buffered, size 1

	pumpOnce sync.Once
	out      chan engine.ObservedEvent
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		events: make([]engine.ObservedEvent, 0, 32),
		signal: make(chan struct{}, 1),
		out:    make(chan engine.ObservedEvent),
	}
}

// Push appends ev. It returns false once the queue is closed.
func (q *Queue) Push(ev engine.ObservedEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, ev)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryPop removes the front event without blocking.
func (q *Queue) TryPop() (engine.ObservedEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return engine.ObservedEvent{}, false
	}
	ev := q.events[0]
	q.events[0] = engine.ObservedEvent{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return ev, true
}

// Wait returns a channel that fires when events may be available. It is
// closed by Close.
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops accepting events. Events already queued are still delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

func (q *Queue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Events returns a channel fed from the queue in FIFO order. It closes once
// the queue is closed and drained. The feeding goroutine starts on the
// first call; the consumer must keep reading until the channel closes.
func (q *Queue) Events() <-chan engine.ObservedEvent {
	q.pumpOnce.Do(func() { go q.pump() })
	return q.out
}

func (q *Queue) pump() {
	defer close(q.out)
	for {
		for {
			ev, ok := q.TryPop()
			if !ok {
				break
			}
			q.out <- ev
		}
		if q.drained() {
			return
		}
		<-q.signal
	}
}

package mailbox

import "context"

// Mailbox is a single-slot buffer. It is NOT a queue: it holds at most one
// pending job, and TryPut refuses a second one.
type Mailbox[T any] struct {
	ch chan T
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1)}
}

// TryPut stores a job only if the slot is empty and reports whether it did.
func (m *Mailbox[T]) TryPut(j T) bool {
	select {
	case m.ch <- j:
		return true
	default:
		return false
	}
}

// Take blocks until a job is available or ctx is done.
func (m *Mailbox[T]) Take(ctx context.Context) (T, bool) {
	select {
	case j := <-m.ch:
		return j, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// TryTake returns the pending job, if any. It never blocks.
func (m *Mailbox[T]) TryTake() (T, bool) {
	select {
	case j := <-m.ch:
		return j, true
	default:
		var zero T
		return zero, false
	}
}

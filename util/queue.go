package util

// Queue implements a parameterized First-In-First-Out (FIFO) data structure.
// It is not safe for concurrent use.
type Queue[T any] struct {
	items []T
}

// Push appends an element to the back of the queue.
func (q *Queue[T]) Push(item T) {
	q.items = append(q.items, item)
}

// Drain removes and returns every element in FIFO order.
func (q *Queue[T]) Drain() []T {
	items := q.items
	q.items = nil
	return items
}

// Clear drops all queued elements.
func (q *Queue[T]) Clear() {
	q.items = nil
}

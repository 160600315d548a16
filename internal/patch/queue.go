// Package patch carries parameter changes from a control goroutine to the
// audio goroutine without locks or allocation.
package patch

import "sync/atomic"

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 256

// Queue is a single-producer/single-consumer ring of patches. One goroutine
// may Push and one other goroutine may Pop; the storage is sized once by New.
type Queue[T any] struct {
	data []T
	mask uint64
	// Padding keeps producer and consumer indices on separate cache lines.
	_    [8]uint64
	tail atomic.Uint64 // written by the producer
	_    [8]uint64
	head atomic.Uint64 // written by the consumer
	_    [8]uint64
}

// New creates a queue whose capacity is minCap rounded up to a power of two.
func New[T any](minCap int) *Queue[T] {
	if minCap <= 0 {
		minCap = DefaultCapacity
	}
	size := 1
	for size < minCap {
		size <<= 1
	}
	return &Queue[T]{
		data: make([]T, size),
		mask: uint64(size - 1),
	}
}

// Cap returns the number of patches the queue can hold.
func (q *Queue[T]) Cap() int { return len(q.data) }

// Len returns the number of pending patches. It is a snapshot.
func (q *Queue[T]) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Push enqueues v. It never blocks; false means the queue was full and v
// was dropped.
func (q *Queue[T]) Push(v T) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.data)) {
		return false
	}
	q.data[tail&q.mask] = v
	q.tail.Store(tail + 1)
	return true
}

// Pop dequeues the oldest patch.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	head := q.head.Load()
	if head == q.tail.Load() {
		return zero, false
	}
	slot := &q.data[head&q.mask]
	v := *slot
	*slot = zero
	q.head.Store(head + 1)
	return v, true
}

// Drain pops every patch that was pending when it was called and hands
// each one to apply in enqueue order. Patches pushed while draining wait
// for the next call. It returns the number of patches applied.
func (q *Queue[T]) Drain(apply func(T)) int {
	head := q.head.Load()
	tail := q.tail.Load()
	var zero T
	n := 0
	for ; head != tail; head++ {
		slot := &q.data[head&q.mask]
		v := *slot
		*slot = zero
		apply(v)
		n++
	}
	q.head.Store(head)
	return n
}

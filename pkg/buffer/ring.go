package buffer

import (
	"sync"
)

// Ring is a thread-safe fixed-capacity ring buffer with drop-oldest
// overflow semantics.
type Ring[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	stats    *Statistics
	metrics  *ringMetrics
	onDrop   func(T)
}

// Option configures a Ring.
type Option[T any] func(*Ring[T]) error

// WithDropCallback invokes fn for every item evicted by overflow or
// Clear. The callback runs outside the ring's lock.
func WithDropCallback[T any](fn func(T)) Option[T] {
	return func(r *Ring[T]) error {
		r.onDrop = fn
		return nil
	}
}

// NewRing creates a ring buffer with the given capacity. Capacity
// below one is raised to one.
func NewRing[T any](capacity int, options ...Option[T]) (*Ring[T], error) {
	if capacity <= 0 {
		capacity = 1
	}
	r := &Ring[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
	}
	for _, opt := range options {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Write adds an item, evicting the oldest unread item when full.
func (r *Ring[T]) Write(item T) {
	var dropped T
	var didDrop bool

	r.mu.Lock()
	if r.size == r.capacity {
		dropped = r.items[r.tail]
		didDrop = true
		r.tail = (r.tail + 1) % r.capacity
		r.size--
		r.stats.Drop()
		if r.metrics != nil {
			r.metrics.recordDrop()
		}
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % r.capacity
	r.size++
	r.stats.Write()
	r.stats.UpdateSize(int64(r.size))
	if r.metrics != nil {
		r.metrics.recordWrite(r.size, r.capacity)
	}
	r.mu.Unlock()

	if didDrop && r.onDrop != nil {
		r.onDrop(dropped)
	}
}

// Read retrieves and removes the oldest item. Returns false when empty.
func (r *Ring[T]) Read() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}

	item := r.items[r.tail]
	r.items[r.tail] = zero // release for GC
	r.tail = (r.tail + 1) % r.capacity
	r.size--
	r.stats.Read()
	r.stats.UpdateSize(int64(r.size))
	if r.metrics != nil {
		r.metrics.recordRead(r.size, r.capacity)
	}
	return item, true
}

// Peek returns the oldest item without removing it.
func (r *Ring[T]) Peek() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[r.tail], true
}

// Len returns the current number of buffered items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return r.capacity
}

// Clear discards all buffered items.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	var zero T
	var evicted []T
	if r.onDrop != nil && r.size > 0 {
		evicted = make([]T, 0, r.size)
		for i := 0; i < r.size; i++ {
			evicted = append(evicted, r.items[(r.tail+i)%r.capacity])
		}
	}
	for i := range r.items {
		r.items[i] = zero
	}
	r.head, r.tail, r.size = 0, 0, 0
	r.stats.UpdateSize(0)
	if r.metrics != nil {
		r.metrics.updateSize(0, r.capacity)
	}
	r.mu.Unlock()

	for _, item := range evicted {
		r.onDrop(item)
	}
}

// Stats returns the ring's statistics counters.
func (r *Ring[T]) Stats() *Statistics {
	return r.stats
}

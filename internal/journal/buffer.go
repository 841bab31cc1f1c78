package journal

import (
	"sync"
)

// Buffer is a thread-safe ring buffer that doubles its capacity when it
// reaches 70% full. Push never blocks, so producers are insulated from
// slow persistence.
type Buffer[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	closed   bool

	// Stats
	totalPushed int64
	totalPopped int64
	resizeCount int
}

// NewBuffer creates a buffer with the given initial capacity.
func NewBuffer[T any](initialCapacity int) *Buffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &Buffer[T]{
		items:    make([]T, initialCapacity),
		capacity: initialCapacity,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Push adds an item, growing the buffer if it is at 70% capacity.
// Returns false if the buffer is closed.
func (b *Buffer[T]) Push(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold {
		b.grow()
	}

	b.items[b.tail] = item
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalPushed++

	b.cond.Signal()
	return true
}

// Pop removes and returns the oldest item, blocking until one is
// available or the buffer is closed. Returns false once the buffer is
// closed and drained.
func (b *Buffer[T]) Pop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 && b.closed {
		var zero T
		return zero, false
	}

	return b.popLocked(), true
}

// TryPop removes the oldest item without blocking.
func (b *Buffer[T]) TryPop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}

	return b.popLocked(), true
}

// Drain removes up to max items (all items when max <= 0) in one lock
// acquisition, for batch consumers.
func (b *Buffer[T]) Drain(max int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = b.popLocked()
	}
	return result
}

// Close closes the buffer. Push returns false afterwards; consumers
// receive the remaining items, then the closed signal.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.cond.Broadcast()
}

// Len returns the current number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity.
func (b *Buffer[T]) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Count       int
	Capacity    int
	TotalPushed int64
	TotalPopped int64
	ResizeCount int
}

// Stats returns buffer statistics.
func (b *Buffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:       b.count,
		Capacity:    b.capacity,
		TotalPushed: b.totalPushed,
		TotalPopped: b.totalPopped,
		ResizeCount: b.resizeCount,
	}
}

// popLocked removes the head item. Caller holds mu and has checked
// count > 0.
func (b *Buffer[T]) popLocked() T {
	item := b.items[b.head]
	var zero T
	b.items[b.head] = zero // drop the reference for GC
	b.head = (b.head + 1) % b.capacity
	b.count--
	b.totalPopped++
	return item
}

// grow doubles the capacity. Caller holds mu.
func (b *Buffer[T]) grow() {
	newCapacity := b.capacity * 2
	newItems := make([]T, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newItems, b.items[b.head:b.tail])
		} else {
			// Wrapped: [head...end) then [0...tail)
			n := copy(newItems, b.items[b.head:])
			copy(newItems[n:], b.items[:b.tail])
		}
	}

	b.items = newItems
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
	b.resizeCount++
}

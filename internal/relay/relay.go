// Package relay hands events from the capture and timing goroutines to the output goroutine.
//
// A Relay is a bounded FIFO ring. Head and tail are free-running counters that are
// only masked when indexing the slots, so the queue is empty when they are equal and
// full when they differ by the capacity.
package relay

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrFull is returned by Enqueue when the relay holds Cap events.
	ErrFull = errors.New("relay full")
	// ErrInvalidCapacity is returned by New for a capacity outside [1, MaxCapacity].
	ErrInvalidCapacity = errors.New("invalid relay capacity")
)

// MaxCapacity is the largest capacity New accepts.
const MaxCapacity = 1 << 16

// Relay is a bounded, non-blocking FIFO.
//
// The consumer side (Peek, Dequeue) must be used by a single goroutine and never
// takes a lock. Producers may be several goroutines; they are serialized by a
// producer-only mutex, so events from different producers are ordered by who
// acquired it first.
type Relay[T any] struct {
	slots    []T
	mask     uint32
	capacity uint32

	head atomic.Uint32 // next slot to read, owned by the consumer
	tail atomic.Uint32 // next slot to write, owned by the producers

	produce sync.Mutex
	signal  chan struct{}
	dropped atomic.Uint64
}

// New creates a relay holding at most capacity events.
func New[T any](capacity int) (*Relay[T], error) {
	if capacity <= 0 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidCapacity, capacity, MaxCapacity)
	}

	// Slots are rounded up to a power of two so indices can be masked. The
	// capacity check still uses the exact requested bound.
	size := uint32(1)
	for size < uint32(capacity) {
		size <<= 1
	}

	return &Relay[T]{
		slots:    make([]T, size),
		mask:     size - 1,
		capacity: uint32(capacity),
		signal:   make(chan struct{}, 1),
	}, nil
}

// Enqueue appends v to the tail. It returns ErrFull without modifying the relay
// when Cap events are already pending.
func (r *Relay[T]) Enqueue(v T) error {
	r.produce.Lock()
	defer r.produce.Unlock()

	tail := r.tail.Load()
	if tail-r.head.Load() >= r.capacity {
		r.dropped.Add(1)
		return ErrFull
	}

	r.slots[tail&r.mask] = v
	r.tail.Store(tail + 1)

	// Non-blocking; a buffer of one coalesces wake-ups.
	select {
	case r.signal <- struct{}{}:
	default:
	}
	return nil
}

// Peek returns the head without removing it.
func (r *Relay[T]) Peek() (T, bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		var zero T
		return zero, false
	}
	return r.slots[head&r.mask], true
}

// Dequeue removes and returns the head.
func (r *Relay[T]) Dequeue() (T, bool) {
	var zero T
	head := r.head.Load()
	if head == r.tail.Load() {
		return zero, false
	}
	v := r.slots[head&r.mask]
	r.slots[head&r.mask] = zero
	r.head.Store(head + 1)
	return v, true
}

// Wait returns a channel that receives after an Enqueue. Use it with select to
// sleep while the relay is empty:
//
//	for {
//		if v, ok := r.Dequeue(); ok {
//			...
//			continue
//		}
//		select {
//		case <-ctx.Done():
//			return
//		case <-r.Wait():
//		}
//	}
func (r *Relay[T]) Wait() <-chan struct{} {
	return r.signal
}

// Len returns the number of pending events.
func (r *Relay[T]) Len() int {
	head := r.head.Load()
	return int(r.tail.Load() - head)
}

// Cap returns the maximum number of pending events.
func (r *Relay[T]) Cap() int {
	return int(r.capacity)
}

// Dropped returns how many Enqueue calls failed with ErrFull.
func (r *Relay[T]) Dropped() uint64 {
	return r.dropped.Load()
}

// Package loopbuf stores recorded MIDI events keyed by their loop-relative timestamp.
package loopbuf

import (
	"errors"
	"fmt"
	"sync"

	"github.com/leandrodaf/midilooper/sdk/contracts"
)

var (
	// ErrCapacity is returned when a new timestamp cannot be stored because the buffer is full.
	ErrCapacity = errors.New("loop buffer at capacity")
	// ErrInvalidCapacity is returned by New for a non-positive capacity.
	ErrInvalidCapacity = errors.New("loop buffer capacity must be positive")
)

// Outcome describes what an Insert did to the buffer.
type Outcome int

const (
	// Refused means nothing was stored.
	Refused Outcome = iota
	// Stored means the event took a free slot.
	Stored
	// Overwritten means the event replaced the one already recorded at its timestamp.
	Overwritten
	// Evicted means the oldest entry was removed to make room for the event.
	Evicted
)

type entry struct {
	event contracts.MIDI
	seq   uint64
}

// Buffer maps timestamps to events with a fixed upper bound on the number of entries.
//
// Insert and Lookup may be called from different goroutines. Each call holds the
// lock only for the map access itself.
type Buffer struct {
	mu       sync.Mutex
	entries  map[uint32]entry
	capacity int
	policy   contracts.CapacityPolicy
	seq      uint64
}

// New creates an empty buffer holding at most capacity distinct timestamps.
func New(capacity int, policy contracts.CapacityPolicy) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer{
		entries:  make(map[uint32]entry, capacity),
		capacity: capacity,
		policy:   policy,
	}, nil
}

// Insert records ev at timestamp, replacing any event already there.
//
// When the buffer is full and timestamp is new, DropNewest returns ErrCapacity and
// leaves the buffer unchanged; EvictOldest removes the least recently written entry
// and stores ev.
func (b *Buffer) Insert(timestamp uint32, ev contracts.MIDI) (Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	if _, exists := b.entries[timestamp]; exists {
		b.entries[timestamp] = entry{event: ev, seq: b.seq}
		return Overwritten, nil
	}

	if len(b.entries) < b.capacity {
		b.entries[timestamp] = entry{event: ev, seq: b.seq}
		return Stored, nil
	}

	if b.policy != contracts.EvictOldest {
		return Refused, ErrCapacity
	}

	delete(b.entries, b.oldestLocked())
	b.entries[timestamp] = entry{event: ev, seq: b.seq}
	return Evicted, nil
}

// oldestLocked returns the timestamp of the entry with the lowest write sequence.
// The buffer must be non-empty.
func (b *Buffer) oldestLocked() uint32 {
	var (
		oldestTS  uint32
		oldestSeq uint64
		first     = true
	)
	for ts, e := range b.entries {
		if first || e.seq < oldestSeq {
			oldestTS, oldestSeq, first = ts, e.seq, false
		}
	}
	return oldestTS
}

// Lookup returns a copy of the event recorded at timestamp.
func (b *Buffer) Lookup(timestamp uint32) (contracts.MIDI, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[timestamp]
	return e.event, ok
}

// Len returns the number of recorded timestamps.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Cap returns the maximum number of recorded timestamps.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Clear removes every recorded event.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.entries)
}

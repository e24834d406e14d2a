// Package nwring implements the fixed-capacity observation history kept
// per provider (spec.md §4.1: the last 5 samples, oldest evicted first).
package nwring

import "github.com/OpenTouch/night-watch/internal/nwtypes"

const Capacity = 5

// Buffer is a fixed-capacity FIFO of nwtypes.Observation. The zero value
// is ready to use.
type Buffer struct {
	items []nwtypes.Observation
}

// Push appends an observation, evicting the oldest one once Capacity is
// exceeded.
func (b *Buffer) Push(o nwtypes.Observation) {
	b.items = append(b.items, o)
	if len(b.items) > Capacity {
		b.items = b.items[len(b.items)-Capacity:]
	}
}

// Latest returns the most recently pushed observation, and false if the
// buffer is empty.
func (b *Buffer) Latest() (nwtypes.Observation, bool) {
	if len(b.items) == 0 {
		return nwtypes.Observation{}, false
	}
	return b.items[len(b.items)-1], true
}

// All returns the buffer contents, oldest first. The returned slice is a
// copy and safe for the caller to retain.
func (b *Buffer) All() []nwtypes.Observation {
	out := make([]nwtypes.Observation, len(b.items))
	copy(out, b.items)
	return out
}

// Len reports the number of observations currently held.
func (b *Buffer) Len() int { return len(b.items) }

// Package history holds the bounded window of most recent events that new
// web clients receive as a snapshot.
package history

import (
	"slices"

	"github.com/zsprackett/audioid-web/internal/events"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 50

// Buffer is an ordered, fixed-capacity sequence of events, oldest first.
// It is not safe for concurrent use.
type Buffer struct {
	items    []events.Event
	capacity int
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		items:    make([]events.Event, 0, capacity+1),
		capacity: capacity,
	}
}

// Append inserts e at the tail. Callers trim afterwards.
func (b *Buffer) Append(e events.Event) {
	b.items = append(b.items, e)
}

// TrimTo drops entries from the head until at most n remain.
func (b *Buffer) TrimTo(n int) {
	if n < 0 {
		n = 0
	}
	if extra := len(b.items) - n; extra > 0 {
		b.items = slices.Delete(b.items, 0, extra)
	}
}

// Trim enforces the buffer's own capacity.
func (b *Buffer) Trim() {
	b.TrimTo(b.capacity)
}

// Last returns the most recent entry for in-place revision, or nil when
// the buffer is empty. The pointer is only valid until the next Append/Trim.
func (b *Buffer) Last() *events.Event {
	if len(b.items) == 0 {
		return nil
	}
	return &b.items[len(b.items)-1]
}

// Snapshot returns a copy of the contents, oldest first.
func (b *Buffer) Snapshot() []events.Event {
	return slices.Clone(b.items)
}

func (b *Buffer) Len() int { return len(b.items) }

func (b *Buffer) Cap() int { return b.capacity }

// Package coalescer folds consecutive analyzer events with the same type and
// label into a single history entry whose duration keeps growing.
package coalescer

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/zsprackett/audioid-web/internal/events"
	"github.com/zsprackett/audioid-web/internal/history"
)

// Coalescer applies incoming events to a history buffer.
type Coalescer struct {
	buf   *history.Buffer
	clock clockwork.Clock
	newID func() string
}

func New(buf *history.Buffer, clock clockwork.Clock) *Coalescer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coalescer{
		buf:   buf,
		clock: clock,
		newID: uuid.NewString,
	}
}

// Apply records e and returns the message describing the affected entry.
//
// If the most recent entry has the same type and label, only its duration
// and updated time change ("update"). Otherwise e is appended with fresh
// created/updated times ("new"). The buffer is trimmed to capacity either way.
func (c *Coalescer) Apply(e events.Event) events.Message {
	now := c.clock.Now()

	if last := c.buf.Last(); last != nil && last.SameKind(e) {
		last.Duration = e.Duration
		last.Updated = now
		affected := *last
		c.buf.Trim()
		return events.Message{Message: events.KindUpdate, Data: affected}
	}

	e.ID = c.newID()
	e.Created = now
	e.Updated = now
	c.buf.Append(e)
	c.buf.Trim()
	return events.Message{Message: events.KindNew, Data: e}
}

// History returns a copy of the current buffer contents.
func (c *Coalescer) History() []events.Event {
	return c.buf.Snapshot()
}

// Len reports how many entries the buffer holds.
func (c *Coalescer) Len() int {
	return c.buf.Len()
}

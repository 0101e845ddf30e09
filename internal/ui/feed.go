package ui

import (
	"fmt"

	"github.com/zsprackett/audioid-web/internal/events"
)

// Feed mirrors the server's history window from the messages it pushes.
// It is only touched from the tview event loop.
type Feed struct {
	events   []events.Event
	capacity int
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 50
	}
	return &Feed{capacity: capacity}
}

// Apply folds one server message into the feed.
func (f *Feed) Apply(env events.Envelope) error {
	switch env.Message {
	case events.KindRecent:
		list, err := env.Events()
		if err != nil {
			return fmt.Errorf("decode recent: %w", err)
		}
		f.events = list
		f.trim()
	case events.KindNew:
		e, err := env.Event()
		if err != nil {
			return fmt.Errorf("decode new: %w", err)
		}
		f.events = append(f.events, e)
		f.trim()
	case events.KindUpdate:
		e, err := env.Event()
		if err != nil {
			return fmt.Errorf("decode update: %w", err)
		}
		if len(f.events) == 0 {
			// Joined between a snapshot and its update; treat it as new.
			f.events = append(f.events, e)
			return nil
		}
		f.events[len(f.events)-1] = e
	default:
		return fmt.Errorf("unknown message %q", env.Message)
	}
	return nil
}

func (f *Feed) trim() {
	if over := len(f.events) - f.capacity; over > 0 {
		f.events = f.events[over:]
	}
}

// Events returns the feed oldest first. Callers must not modify it.
func (f *Feed) Events() []events.Event {
	return f.events
}

func (f *Feed) Len() int {
	return len(f.events)
}

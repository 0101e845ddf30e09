// Package broadcast fans serialized messages out to connected subscribers.
package broadcast

import (
	"log/slog"

	"github.com/google/uuid"
)

// Subscriber is a connected client. Send must not block: implementations
// queue the message and drop it when the client cannot keep up.
type Subscriber interface {
	ID() uuid.UUID
	Send(data []byte) error
}

// Broadcaster tracks the current subscribers. It is not safe for
// concurrent use; the monitor loop owns it.
type Broadcaster struct {
	subs   map[uuid.UUID]Subscriber
	logger *slog.Logger
}

func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subs:   make(map[uuid.UUID]Subscriber),
		logger: logger,
	}
}

// Add sends snapshot to sub and then registers it, so the snapshot precedes
// every later Publish and no earlier message is ever replayed.
func (b *Broadcaster) Add(sub Subscriber, snapshot []byte) {
	if err := sub.Send(snapshot); err != nil {
		b.logger.Debug("broadcast: snapshot send failed", "subscriber", sub.ID(), "err", err)
	}
	b.subs[sub.ID()] = sub
}

// Remove forgets a subscriber. Unknown ids are ignored.
func (b *Broadcaster) Remove(id uuid.UUID) bool {
	if _, ok := b.subs[id]; !ok {
		return false
	}
	delete(b.subs, id)
	return true
}

// Publish sends data to every subscriber. It returns how many subscribers
// accepted the message; failures are skipped.
func (b *Broadcaster) Publish(data []byte) int {
	delivered := 0
	for id, sub := range b.subs {
		if err := sub.Send(data); err != nil {
			b.logger.Debug("broadcast: send failed", "subscriber", id, "err", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (b *Broadcaster) Len() int { return len(b.subs) }

package monitor

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/zsprackett/audioid-web/internal/broadcast"
	"github.com/zsprackett/audioid-web/internal/events"
)

// command is handled on the Run goroutine, interleaved with lines.
type command interface {
	apply(m *Monitor)
}

type subscribeCmd struct {
	sub   broadcast.Subscriber
	reply chan error
}

func (c subscribeCmd) apply(m *Monitor) {
	data, err := json.Marshal(events.Recent(m.coalescer.History()))
	if err != nil {
		c.reply <- fmt.Errorf("encode snapshot: %w", err)
		return
	}
	m.subs.Add(c.sub, data)
	m.metrics.SetSubscribers(m.subs.Len())
	m.logger.Debug("monitor: subscriber added", "subscriber", c.sub.ID(), "total", m.subs.Len())
	c.reply <- nil
}

type unsubscribeCmd struct {
	id uuid.UUID
}

func (c unsubscribeCmd) apply(m *Monitor) {
	if m.subs.Remove(c.id) {
		m.metrics.SetSubscribers(m.subs.Len())
		m.logger.Debug("monitor: subscriber removed", "subscriber", c.id, "total", m.subs.Len())
	}
}

type recentCmd struct {
	reply chan []events.Event
}

func (c recentCmd) apply(m *Monitor) {
	c.reply <- m.coalescer.History()
}

type statsCmd struct {
	reply chan Stats
}

func (c statsCmd) apply(m *Monitor) {
	c.reply <- Stats{Subscribers: m.subs.Len(), History: m.coalescer.Len()}
}

package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/zsprackett/audioid-web/internal/broadcast"
	"github.com/zsprackett/audioid-web/internal/coalescer"
	"github.com/zsprackett/audioid-web/internal/events"
	"github.com/zsprackett/audioid-web/internal/history"
	"github.com/zsprackett/audioid-web/internal/metrics"
)

// ErrSourceClosed is returned by Run when the analyzer output ends.
var ErrSourceClosed = errors.New("monitor: analyzer output closed")

// ErrStopped is returned to callers whose command arrives after Run exited.
var ErrStopped = errors.New("monitor: stopped")

// Journal receives every new or revised event.
type Journal interface {
	Record(e events.Event)
}

// Notifier is told about newly started events, on its own goroutine.
type Notifier interface {
	Notify(e events.Event)
}

type Options struct {
	Capacity int
	Clock    clockwork.Clock
	Journal  Journal
	Notifier Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Stats is a point-in-time view used by the health endpoint.
type Stats struct {
	Subscribers int `json:"subscribers"`
	History     int `json:"history"`
}

// Monitor owns the history window and the subscriber set. All state changes
// happen on the goroutine running Run, one line or command at a time.
type Monitor struct {
	coalescer *coalescer.Coalescer
	subs      *broadcast.Broadcaster
	journal   Journal
	notifier  Notifier
	metrics   *metrics.Metrics
	cmdCh     chan command
	done      chan struct{}
	logger    *slog.Logger
}

func New(opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		coalescer: coalescer.New(history.New(opts.Capacity), opts.Clock),
		subs:      broadcast.New(logger),
		journal:   opts.Journal,
		notifier:  opts.Notifier,
		metrics:   opts.Metrics,
		cmdCh:     make(chan command, 64),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Run drains lines in arrival order until the channel closes or ctx is done.
func (m *Monitor) Run(ctx context.Context, lines <-chan string) error {
	defer close(m.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return ErrSourceClosed
			}
			m.handleLine(line)
		case cmd := <-m.cmdCh:
			cmd.apply(m)
		}
	}
}

func (m *Monitor) handleLine(line string) {
	e := events.ParseLine(line)
	m.metrics.ObserveLine(e.Malformed())

	msg := m.coalescer.Apply(e)
	affected := msg.Data.(events.Event)
	if msg.Message == events.KindNew {
		m.logger.Info("monitor: event",
			"time", affected.Time,
			"type", affected.Type,
			"label", affected.Label,
			"duration", affected.Duration,
		)
	} else {
		m.logger.Debug("monitor: event updated",
			"label", affected.Label,
			"duration", affected.Duration,
		)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("monitor: encode message", "err", err)
		return
	}
	delivered := m.subs.Publish(data)
	m.metrics.ObserveMessage(msg.Message, delivered, m.coalescer.Len())

	if m.journal != nil {
		m.journal.Record(affected)
	}
	if m.notifier != nil && msg.Message == events.KindNew {
		go m.notifier.Notify(affected)
	}
}

// Subscribe registers sub. By the time it returns, sub has been sent the
// current history snapshot and will receive every later message.
func (m *Monitor) Subscribe(ctx context.Context, sub broadcast.Subscriber) error {
	reply := make(chan error, 1)
	if err := m.send(ctx, subscribeCmd{sub: sub, reply: reply}); err != nil {
		return err
	}
	return m.await(ctx, reply)
}

// Unsubscribe drops a subscriber. It does not wait for the loop.
func (m *Monitor) Unsubscribe(id uuid.UUID) {
	select {
	case m.cmdCh <- unsubscribeCmd{id: id}:
	case <-m.done:
	}
}

// Recent returns a copy of the current history window.
func (m *Monitor) Recent(ctx context.Context) ([]events.Event, error) {
	reply := make(chan []events.Event, 1)
	if err := m.send(ctx, recentCmd{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case list := <-reply:
		return list, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, ErrStopped
	}
}

func (m *Monitor) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := m.send(ctx, statsCmd{reply: reply}); err != nil {
		return Stats{}, err
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-m.done:
		return Stats{}, ErrStopped
	}
}

func (m *Monitor) send(ctx context.Context, cmd command) error {
	select {
	case m.cmdCh <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

func (m *Monitor) await(ctx context.Context, reply chan error) error {
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

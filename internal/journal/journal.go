// Package journal writes coalesced events to the SQLite store off the hot
// path and prunes rows past the retention window.
package journal

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zsprackett/audioid-web/internal/events"
)

const queueSize = 256

// Store is the subset of *db.DB the recorder needs.
type Store interface {
	UpsertEvent(e events.Event) error
	PruneBefore(cutoff time.Time) (int64, error)
}

type Config struct {
	Retention     time.Duration // zero disables pruning
	PruneInterval time.Duration
}

// Recorder serializes journal writes on its own goroutine. Record never
// blocks; when the queue is full the record is dropped and onDrop is called.
type Recorder struct {
	store  Store
	cfg    Config
	clock  clockwork.Clock
	queue  chan events.Event
	stop   chan struct{}
	wg     sync.WaitGroup
	onDrop func()
	logger *slog.Logger
}

func New(store Store, cfg Config, clock clockwork.Clock, onDrop func(), logger *slog.Logger) *Recorder {
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{
		store:  store,
		cfg:    cfg,
		clock:  clock,
		queue:  make(chan events.Event, queueSize),
		stop:   make(chan struct{}),
		onDrop: onDrop,
		logger: logger,
	}
}

func (r *Recorder) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.prune()
		ticker := r.clock.NewTicker(r.cfg.PruneInterval)
		defer ticker.Stop()
		for {
			select {
			case e := <-r.queue:
				r.write(e)
			case <-ticker.Chan():
				r.prune()
			case <-r.stop:
				r.drain()
				return
			}
		}
	}()
}

// Stop flushes queued records and waits for the writer to exit.
func (r *Recorder) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// Record queues e for writing.
func (r *Recorder) Record(e events.Event) {
	select {
	case r.queue <- e:
	default:
		r.logger.Warn("journal: queue full, dropping record", "label", e.Label)
		if r.onDrop != nil {
			r.onDrop()
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		default:
			return
		}
	}
}

func (r *Recorder) write(e events.Event) {
	if err := r.store.UpsertEvent(e); err != nil {
		r.logger.Warn("journal: write failed", "id", e.ID, "err", err)
	}
}

func (r *Recorder) prune() {
	if r.cfg.Retention <= 0 {
		return
	}
	n, err := r.store.PruneBefore(r.clock.Now().Add(-r.cfg.Retention))
	if err != nil {
		r.logger.Warn("journal: prune failed", "err", err)
		return
	}
	if n > 0 {
		r.logger.Debug("journal: pruned rows", "count", n)
	}
}

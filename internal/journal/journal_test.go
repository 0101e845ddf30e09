package journal_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zsprackett/audioid-web/internal/db"
	"github.com/zsprackett/audioid-web/internal/events"
	"github.com/zsprackett/audioid-web/internal/journal"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecorder_FlushesOnStop(t *testing.T) {
	store := openStore(t)
	rec := journal.New(store, journal.Config{}, nil, nil, discardLogger())
	rec.Start()

	now := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		rec.Record(events.Event{ID: id, Type: "on", Label: id, Created: now, Updated: now})
	}
	rec.Stop()

	count, err := store.CountEvents()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("expected 3 journal rows, got %d", count)
	}
}

func TestRecorder_PrunesOnStart(t *testing.T) {
	store := openStore(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC))
	old := clock.Now().Add(-10 * 24 * time.Hour)
	store.UpsertEvent(events.Event{ID: "old", Type: "on", Label: "x", Created: old, Updated: old})

	rec := journal.New(store, journal.Config{Retention: 7 * 24 * time.Hour}, clock, nil, discardLogger())
	rec.Start()
	rec.Stop()

	count, _ := store.CountEvents()
	if count != 0 {
		t.Errorf("expected old row pruned, %d remain", count)
	}
}

type blockingStore struct {
	release chan struct{}
}

func (b *blockingStore) UpsertEvent(events.Event) error {
	<-b.release
	return nil
}

func (b *blockingStore) PruneBefore(time.Time) (int64, error) { return 0, nil }

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	drops := 0
	rec := journal.New(store, journal.Config{}, nil, func() { drops++ }, discardLogger())
	// Not started: nothing drains the queue.
	for i := 0; i < 300; i++ {
		rec.Record(events.Event{ID: "x"})
	}
	if drops == 0 {
		t.Error("expected records to be dropped once the queue is full")
	}
}

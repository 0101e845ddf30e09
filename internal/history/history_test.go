package history_test

import (
	"fmt"
	"testing"

	"github.com/zsprackett/audioid-web/internal/events"
	"github.com/zsprackett/audioid-web/internal/history"
)

func TestNew_DefaultCapacity(t *testing.T) {
	b := history.New(0)
	if b.Cap() != history.DefaultCapacity {
		t.Errorf("cap: got %d want %d", b.Cap(), history.DefaultCapacity)
	}
}

func TestLast_Empty(t *testing.T) {
	b := history.New(3)
	if b.Last() != nil {
		t.Error("expected nil Last on empty buffer")
	}
}

func TestTrim_NeverExceedsCapacity(t *testing.T) {
	for _, capacity := range []int{1, 2, 5, 50} {
		b := history.New(capacity)
		for i := 0; i < 3*capacity+7; i++ {
			b.Append(events.Event{Label: fmt.Sprint(i)})
			b.Trim()
			if b.Len() > capacity {
				t.Fatalf("cap %d: length %d after %d appends", capacity, b.Len(), i+1)
			}
		}
	}
}

func TestTrim_EvictsOldestFirst(t *testing.T) {
	b := history.New(2)
	for _, label := range []string{"a", "b", "c"} {
		b.Append(events.Event{Label: label})
		b.Trim()
	}
	got := b.Snapshot()
	if len(got) != 2 || got[0].Label != "b" || got[1].Label != "c" {
		t.Errorf("expected [b c], got %+v", got)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	b := history.New(2)
	b.Append(events.Event{Label: "a", Duration: 1})
	snap := b.Snapshot()
	b.Last().Duration = 9
	if snap[0].Duration != 1 {
		t.Error("snapshot should not observe later revisions")
	}
}

func TestTrimTo(t *testing.T) {
	b := history.New(10)
	for i := 0; i < 5; i++ {
		b.Append(events.Event{Label: fmt.Sprint(i)})
	}
	b.TrimTo(2)
	if b.Len() != 2 || b.Last().Label != "4" {
		t.Errorf("unexpected contents after TrimTo(2): %+v", b.Snapshot())
	}
	b.TrimTo(-1)
	if b.Len() != 0 {
		t.Errorf("TrimTo(-1) should empty the buffer, got %d", b.Len())
	}
}

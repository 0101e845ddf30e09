package coalescer_test

import (
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/zsprackett/audioid-web/internal/coalescer"
	"github.com/zsprackett/audioid-web/internal/events"
	"github.com/zsprackett/audioid-web/internal/history"
)

func newCoalescer(capacity int) (*coalescer.Coalescer, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	return coalescer.New(history.New(capacity), clock), clock
}

func ev(t float64, typ, label string, dur float64) events.Event {
	return events.Event{Time: t, Type: typ, Label: label, Duration: dur}
}

func TestApply_GrinderPumpScenario(t *testing.T) {
	c, clock := newCoalescer(2)

	var kinds []string
	for _, e := range []events.Event{
		ev(1.0, "on", "grinder", 0.5),
		ev(1.2, "on", "grinder", 0.7),
		ev(2.0, "on", "pump", 0.3),
	} {
		kinds = append(kinds, c.Apply(e).Message)
		clock.Advance(100 * time.Millisecond)
	}

	want := []string{"new", "update", "new"}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("message %d: got %q want %q", i, kinds[i], want[i])
		}
	}

	got := c.History()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Label != "grinder" || got[0].Duration != 0.7 {
		t.Errorf("entry 0: got %+v", got[0])
	}
	if got[1].Label != "pump" || got[1].Duration != 0.3 {
		t.Errorf("entry 1: got %+v", got[1])
	}
}

func TestApply_UpdateKeepsCreated(t *testing.T) {
	c, clock := newCoalescer(5)

	first := c.Apply(ev(1, "on", "grinder", 0.1)).Data.(events.Event)
	clock.Advance(2 * time.Second)
	msg := c.Apply(ev(1.5, "on", "grinder", 2.1))

	if msg.Message != events.KindUpdate {
		t.Fatalf("expected update, got %q", msg.Message)
	}
	updated := msg.Data.(events.Event)
	if !updated.Created.Equal(first.Created) {
		t.Errorf("created changed: %v -> %v", first.Created, updated.Created)
	}
	if !updated.Updated.Equal(first.Created.Add(2 * time.Second)) {
		t.Errorf("updated not refreshed: %v", updated.Updated)
	}
	if updated.Duration != 2.1 {
		t.Errorf("duration: got %v want 2.1", updated.Duration)
	}
	if updated.Time != 1 {
		t.Errorf("time should stay at the first occurrence, got %v", updated.Time)
	}
	if updated.ID != first.ID {
		t.Error("update should keep the entry id")
	}
	if c.Len() != 1 {
		t.Errorf("expected a single entry, got %d", c.Len())
	}
}

func TestApply_DistinctLeavesPriorUntouched(t *testing.T) {
	c, clock := newCoalescer(5)
	c.Apply(ev(1, "on", "grinder", 0.5))
	before := c.History()[0]

	clock.Advance(time.Second)
	cases := []events.Event{
		ev(2, "off", "grinder", 0.9), // type differs
		ev(3, "off", "pump", 0.4),    // label differs
	}
	for _, e := range cases {
		if msg := c.Apply(e); msg.Message != events.KindNew {
			t.Errorf("%+v: expected new, got %q", e, msg.Message)
		}
	}

	got := c.History()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Duration != before.Duration || !got[0].Created.Equal(before.Created) || !got[0].Updated.Equal(before.Updated) {
		t.Errorf("prior entry modified: before %+v after %+v", before, got[0])
	}
	if got[1].ID == got[2].ID {
		t.Error("new entries should get distinct ids")
	}
}

func TestApply_EvictsEarliest(t *testing.T) {
	c, _ := newCoalescer(2)
	c.Apply(ev(1, "on", "a", 1))
	c.Apply(ev(2, "on", "b", 1))
	c.Apply(ev(3, "on", "c", 1))

	got := c.History()
	if len(got) != 2 || got[0].Label != "b" || got[1].Label != "c" {
		t.Errorf("expected [b c], got %+v", got)
	}
}

func TestApply_NeverExceedsCapacity(t *testing.T) {
	c, _ := newCoalescer(3)
	labels := []string{"a", "a", "b", "c", "c", "d", "a", "e", "e", "f"}
	for i, l := range labels {
		c.Apply(ev(float64(i), "on", l, float64(i)))
		if c.Len() > 3 {
			t.Fatalf("length %d exceeds capacity after %d events", c.Len(), i+1)
		}
	}
}

func TestApply_MalformedStillCoalesced(t *testing.T) {
	c, _ := newCoalescer(5)

	msg := c.Apply(events.ParseLine("abc\tfoo"))
	if msg.Message != events.KindNew {
		t.Fatalf("expected new, got %q", msg.Message)
	}
	got := msg.Data.(events.Event)
	if !math.IsNaN(got.Time) || !math.IsNaN(got.Duration) {
		t.Errorf("expected NaN fields, got %+v", got)
	}

	if msg := c.Apply(events.ParseLine("xyz\tfoo")); msg.Message != events.KindUpdate {
		t.Errorf("repeat of malformed kind: expected update, got %q", msg.Message)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

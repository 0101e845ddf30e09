package events

import (
	"encoding/json"
	"math"
	"time"
)

// Message kinds sent to web clients.
const (
	KindRecent = "recent"
	KindNew    = "new"
	KindUpdate = "update"
)

// Event is one acoustic occurrence reported by the analyzer, possibly
// extended by later updates while it is the most recent entry.
type Event struct {
	ID       string // journal key; never sent to clients
	Time     float64
	Type     string
	Label    string
	Duration float64
	Created  time.Time
	Updated  time.Time
}

// Malformed reports whether a numeric field failed to parse.
func (e Event) Malformed() bool {
	return math.IsNaN(e.Time) || math.IsNaN(e.Duration)
}

// SameKind reports whether o continues e: identical type and label.
func (e Event) SameKind(o Event) bool {
	return e.Type == o.Type && e.Label == o.Label
}

type wireEvent struct {
	Time     *float64 `json:"time"`
	Type     string   `json:"type,omitempty"`
	Label    string   `json:"label,omitempty"`
	Duration *float64 `json:"duration"`
	Created  int64    `json:"created"`
	Updated  int64    `json:"updated"`
}

// MarshalJSON encodes NaN numbers as null and timestamps as epoch millis.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		Time:     finite(e.Time),
		Type:     e.Type,
		Label:    e.Label,
		Duration: finite(e.Duration),
		Created:  millis(e.Created),
		Updated:  millis(e.Updated),
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{
		Time:     orNaN(w.Time),
		Type:     w.Type,
		Label:    w.Label,
		Duration: orNaN(w.Duration),
	}
	if w.Created != 0 {
		e.Created = time.UnixMilli(w.Created)
	}
	if w.Updated != 0 {
		e.Updated = time.UnixMilli(w.Updated)
	}
	return nil
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func orNaN(f *float64) float64 {
	if f == nil {
		return math.NaN()
	}
	return *f
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// Message is the envelope pushed to subscribers.
// Data is an Event for new/update and a []Event for recent.
type Message struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// Recent builds the snapshot message sent to a newly connected client.
func Recent(history []Event) Message {
	if history == nil {
		history = []Event{}
	}
	return Message{Message: KindRecent, Data: history}
}

// Envelope is the client-side view of a Message with Data left undecoded.
type Envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Event decodes Data as a single event (new/update messages).
func (env Envelope) Event() (Event, error) {
	var e Event
	err := json.Unmarshal(env.Data, &e)
	return e, err
}

// Events decodes Data as a list of events (recent messages).
func (env Envelope) Events() ([]Event, error) {
	var list []Event
	err := json.Unmarshal(env.Data, &list)
	return list, err
}

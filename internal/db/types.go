package db

import (
	"encoding/json"

	"github.com/zsprackett/audioid-web/internal/events"
)

// JournalEvent is an audio event as stored in the journal, with the number
// of coalesced updates it received.
type JournalEvent struct {
	events.Event
	Updates int
}

func (je JournalEvent) MarshalJSON() ([]byte, error) {
	base, err := je.Event.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, err
	}
	fields["id"] = je.ID
	fields["updates"] = je.Updates
	return json.Marshal(fields)
}

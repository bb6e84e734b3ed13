package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmewes/devtools/internal/timeline"
	"github.com/jmewes/devtools/pkg/traceevent"
)

// Snapshot is the persisted form of a session: the raw log verbatim plus
// just enough selection state for structural reselection on replay. Trees
// and frames are always rebuilt from the log, never persisted.
type Snapshot struct {
	RawLog             []traceevent.Record `json:"rawLog"`
	DisplayRefreshRate float64             `json:"displayRefreshRate"`

	SelectedFrameID *int64         `json:"selectedFrameId,omitempty"`
	SelectedEvent   *EventSelection `json:"selectedEvent,omitempty"`
}

// EventSelection is the structural identity triple of the selected event.
// DurationMicros is null while the node was still open when exported.
type EventSelection struct {
	Name           string `json:"name"`
	StartMicros    int64  `json:"startMicros"`
	DurationMicros *int64 `json:"durationMicros"`
}

// TakeSnapshot captures the session's exportable state.
func TakeSnapshot(data *timeline.Session) *Snapshot {
	snap := &Snapshot{
		RawLog:             data.RawLog,
		DisplayRefreshRate: data.DisplayRefreshRate,
	}

	if data.SelectedFrame != nil {
		id := data.SelectedFrame.ID
		snap.SelectedFrameID = &id
	}

	if key, ok := timeline.KeyOf(data.Forest, data.SelectedEvent); ok {
		selection := &EventSelection{
			Name:        key.Name,
			StartMicros: key.StartMicros,
		}
		if key.HasDuration {
			duration := key.DurationMicros
			selection.DurationMicros = &duration
		}
		snap.SelectedEvent = selection
	}

	return snap
}

func (s *Snapshot) selectionKey() (timeline.SelectionKey, bool) {
	if s.SelectedEvent == nil {
		return timeline.SelectionKey{}, false
	}
	key := timeline.SelectionKey{
		Name:        s.SelectedEvent.Name,
		StartMicros: s.SelectedEvent.StartMicros,
	}
	if s.SelectedEvent.DurationMicros != nil {
		key.DurationMicros = *s.SelectedEvent.DurationMicros
		key.HasDuration = true
	}
	return key, true
}

////////////////////////////////////////////////////////////////////////////////

func (s *Snapshot) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	snap := &Snapshot{}
	if err := json.NewDecoder(r).Decode(snap); err != nil {
		return nil, fmt.Errorf("session: malformed snapshot: %w", err)
	}
	return snap, nil
}

func (s *Snapshot) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	err := s.Encode(buf)
	return buf.Bytes(), err
}

func UnmarshalSnapshot(buf []byte) (*Snapshot, error) {
	return DecodeSnapshot(bytes.NewReader(buf))
}

package traceevent

import (
	"encoding/json"
	"strconv"
	"time"
)

// Phase is the single-character event type from the Chrome trace event format.
type Phase string

const (
	DurationBegin Phase = "B"
	DurationEnd   Phase = "E"
	Complete      Phase = "X"
	Instant       Phase = "i"
	AsyncBegin    Phase = "b"
	AsyncEnd      Phase = "e"
	AsyncInstant  Phase = "n"
	Metadata      Phase = "M"
)

func (p Phase) Known() bool {
	switch p {
	case DurationBegin, DurationEnd, Complete, Instant,
		AsyncBegin, AsyncEnd, AsyncInstant, Metadata:
		return true
	}
	return false
}

func (p Phase) Async() bool {
	return p == AsyncBegin || p == AsyncEnd || p == AsyncInstant
}

// Event is one instrumentation record emitted by the observed process.
// Timestamps are in microseconds since an arbitrary trace epoch.
type Event struct {
	Name            string         `json:"name"`
	Phase           Phase          `json:"ph"`
	TimestampMicros int64          `json:"ts"`
	DurationMicros  int64          `json:"dur,omitempty"`
	ThreadID        int64          `json:"tid"`
	ProcessID       int64          `json:"pid"`
	AsyncID         FlexID         `json:"id,omitempty"`
	Args            map[string]any `json:"args,omitempty"`
}

// FlexID is an async flow id that may arrive as a JSON string or number.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	*id = FlexID(data)
	return nil
}

// thread_name metadata events carry the thread name in args["name"].
const threadNameEventName = "thread_name"

// ThreadName reports the thread name carried by a thread_name metadata event.
func (e *Event) ThreadName() (string, bool) {
	if e.Phase != Metadata || e.Name != threadNameEventName {
		return "", false
	}
	name, ok := e.Args["name"].(string)
	return name, ok
}

// frameNumberArg identifies the rendering cycle an event belongs to.
const frameNumberArg = "frame_number"

// FrameNumber reports the frame id carried in the event args, if any.
// The argument may arrive as a JSON number or a numeric string.
func (e *Event) FrameNumber() (int64, bool) {
	return argInt64(e.Args[frameNumberArg])
}

func argInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// Record wraps an Event with its local ingestion time. The receipt time is
// used for diagnostics and export ordering only, never for tree structure.
type Record struct {
	Event
	ReceivedAt time.Time `json:"receivedAt"`
}

func NewRecord(ev Event) Record {
	return Record{Event: ev, ReceivedAt: time.Now()}
}

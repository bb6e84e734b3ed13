package traceevent

import (
	"encoding/json"
	"fmt"
	"io"
)

// Chrome trace files come in two shapes: an object with a traceEvents array,
// or a bare array of events.
type traceFile struct {
	TraceEvents []Event `json:"traceEvents"`
}

func Unmarshal(buf []byte) ([]Event, error) {
	for _, c := range buf {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			var events []Event
			if err := json.Unmarshal(buf, &events); err != nil {
				return nil, fmt.Errorf("traceevent: malformed event array: %w", err)
			}
			return events, nil
		default:
			var file traceFile
			if err := json.Unmarshal(buf, &file); err != nil {
				return nil, fmt.Errorf("traceevent: malformed trace file: %w", err)
			}
			return file.TraceEvents, nil
		}
	}
	return nil, nil
}

func Decode(r io.Reader) ([]Event, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(buf)
}

package tracesource

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jmewes/devtools/pkg/traceevent"
)

// FileSource serves a recorded Chrome trace file as a trace source. Every
// Fetch returns the whole file until Clear is called, mirroring a live
// source whose buffer is only dropped on explicit clears.
type FileSource struct {
	path string

	mu      sync.Mutex
	cleared bool
}

var _ Source = (*FileSource)(nil)

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(ctx context.Context) ([]traceevent.Record, error) {
	s.mu.Lock()
	cleared := s.cleared
	s.mu.Unlock()
	if cleared {
		return nil, nil
	}

	buf, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("tracesource: failed to read %q: %w", s.path, err)
	}
	events, err := traceevent.Unmarshal(buf)
	if err != nil {
		return nil, fmt.Errorf("tracesource: failed to parse %q: %w", s.path, err)
	}

	received := time.Now()
	records := make([]traceevent.Record, len(events))
	for i := range events {
		records[i] = traceevent.Record{Event: events[i], ReceivedAt: received}
	}
	return records, nil
}

func (s *FileSource) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = true
	return nil
}

package timeline

import (
	"context"

	"github.com/jmewes/devtools/pkg/cpuprofile"
	"github.com/jmewes/devtools/pkg/traceevent"
	"github.com/jmewes/devtools/pkg/xlog"
)

// Session is the aggregate holding everything reconstructed from one
// recording or replay cycle. A new cycle supersedes the whole instance;
// a superseded Session is never mutated again.
type Session struct {
	Forest  *Forest
	Threads *ThreadIndex
	Frames  []*RenderFrame

	// Per-thread presentation index over the forest roots; GroupNames
	// preserves first-appearance order.
	Groups     map[string]*EventGroup
	GroupNames []string

	SelectedEvent NodeID
	SelectedFrame *RenderFrame

	// CPUProfile is attached by the sampling subsystem for the selected
	// event's window; owned by the external collaborator.
	CPUProfile *cpuprofile.Profile

	// RawLog is the ordered batch the session was built from, kept verbatim
	// for export.
	RawLog []traceevent.Record

	DisplayRefreshRate float64

	Diagnostics []Diagnostic
}

// NewSession builds an empty aggregate for the start of a cycle.
func NewSession(displayRefreshRate float64) *Session {
	return &Session{
		Forest:             &Forest{},
		Threads:            &ThreadIndex{names: map[int64]string{}, roles: map[int64]Role{}},
		Groups:             map[string]*EventGroup{},
		SelectedEvent:      NoNode,
		DisplayRefreshRate: displayRefreshRate,
	}
}

// BuildSession reconstructs a full aggregate from a raw event batch:
// thread-role resolution, tree building, then frame correlation. Rebuilding
// from the same batch is deterministic.
func BuildSession(ctx context.Context, records []traceevent.Record, displayRefreshRate float64, logger xlog.Logger) *Session {
	threads := ResolveThreads(ctx, records, logger)
	built := Build(ctx, records, threads, logger)
	frames := CorrelateFrames(ctx, built.Forest, displayRefreshRate, logger)

	return &Session{
		Forest:             built.Forest,
		Threads:            threads,
		Frames:             frames,
		Groups:             built.Groups,
		GroupNames:         built.GroupNames,
		SelectedEvent:      NoNode,
		RawLog:             records,
		DisplayRefreshRate: displayRefreshRate,
		Diagnostics:        built.Diagnostics,
	}
}

func (s *Session) Empty() bool {
	return len(s.RawLog) == 0
}

func (s *Session) FrameByID(id int64) *RenderFrame {
	for _, frame := range s.Frames {
		if frame.ID == id {
			return frame
		}
	}
	return nil
}

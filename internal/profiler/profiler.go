// Package profiler abstracts the external sampling subsystem that turns a
// time window of the recorded session into a call-sample tree.
package profiler

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/jmewes/devtools/pkg/cpuprofile"
)

// Request asks the sampler for the window [StartMicros, StartMicros+ExtentMicros].
// CorrelationID ties a late response back to the selection that issued it.
type Request struct {
	StartMicros   int64
	ExtentMicros  int64
	CorrelationID string
}

func NewRequest(startMicros, extentMicros int64) (Request, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Request{}, fmt.Errorf("profiler: failed to generate correlation id: %w", err)
	}
	return Request{
		StartMicros:   startMicros,
		ExtentMicros:  extentMicros,
		CorrelationID: id.String(),
	}, nil
}

type Sampler interface {
	// Sample blocks until the window has been profiled. Failures are
	// surfaced to the caller and never retried here.
	Sample(ctx context.Context, req Request) (*cpuprofile.Profile, error)
}

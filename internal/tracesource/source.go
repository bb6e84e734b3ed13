// Package tracesource abstracts the transport that delivers raw timeline
// data from the observed process. The core only relies on "fetch produces
// the full ordered batch since the last clear".
package tracesource

import (
	"context"

	"github.com/jmewes/devtools/pkg/traceevent"
)

type Source interface {
	// Fetch returns the full ordered batch of raw trace events buffered
	// since the last Clear.
	Fetch(ctx context.Context) ([]traceevent.Record, error)

	// Clear drops the source's buffered state.
	Clear(ctx context.Context) error
}

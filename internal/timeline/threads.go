package timeline

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/jmewes/devtools/pkg/traceevent"
	"github.com/jmewes/devtools/pkg/xlog"
)

// Role classifies a thread of the observed process.
type Role int

const (
	RoleUnknown Role = iota
	RoleUI
	RoleRender
)

func (r Role) String() string {
	switch r {
	case RoleUI:
		return "ui"
	case RoleRender:
		return "render"
	default:
		return "unknown"
	}
}

// Thread name markers, matched case-insensitively as substrings.
const (
	uiMarker     = ".ui"
	rasterMarker = ".raster"
	// Older engines report the raster thread as the GPU thread.
	gpuMarker = ".gpu"
	// Platforms without a dedicated raster thread render on the platform thread.
	platformMarker = ".platform"
)

// ThreadIndex holds per-thread names and roles resolved from thread_name
// metadata events.
type ThreadIndex struct {
	names map[int64]string
	roles map[int64]Role

	ui        int64
	render    int64
	hasUI     bool
	hasRender bool
}

// ResolveThreads classifies thread ids from the metadata events of a batch.
// The platform-thread fallback applies only when the whole batch contains no
// dedicated render thread, so classification is done in two passes.
func ResolveThreads(ctx context.Context, records []traceevent.Record, logger xlog.Logger) *ThreadIndex {
	index := &ThreadIndex{
		names: make(map[int64]string),
		roles: make(map[int64]Role),
	}

	for i := range records {
		name, ok := records[i].ThreadName()
		if !ok {
			continue
		}
		tid := records[i].ThreadID
		index.names[tid] = name

		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, uiMarker):
			index.roles[tid] = RoleUI
			if !index.hasUI {
				index.ui = tid
				index.hasUI = true
			}
		case strings.Contains(lower, rasterMarker), strings.Contains(lower, gpuMarker):
			index.roles[tid] = RoleRender
			if !index.hasRender {
				index.render = tid
				index.hasRender = true
			}
		}
	}

	if !index.hasRender {
		for i := range records {
			name, ok := records[i].ThreadName()
			if !ok || !strings.Contains(strings.ToLower(name), platformMarker) {
				continue
			}
			tid := records[i].ThreadID
			index.roles[tid] = RoleRender
			index.render = tid
			index.hasRender = true
			logger.Info(ctx, "Using platform thread as render thread",
				zap.String("thread", name))
			break
		}
	}

	if !index.hasUI {
		logger.Warn(ctx, "No UI thread identified in trace")
	}
	if !index.hasRender {
		logger.Warn(ctx, "No render thread identified in trace")
	}

	return index
}

// Name reports the resolved thread name, falling back to the stringified id.
func (t *ThreadIndex) Name(tid int64) string {
	if name, ok := t.names[tid]; ok {
		return name
	}
	return strconv.FormatInt(tid, 10)
}

func (t *ThreadIndex) RoleOf(tid int64) Role {
	return t.roles[tid]
}

func (t *ThreadIndex) UIThread() (int64, bool) {
	return t.ui, t.hasUI
}

func (t *ThreadIndex) RenderThread() (int64, bool) {
	return t.render, t.hasRender
}

// CategoryOf maps a thread id to the category its events are tagged with.
func (t *ThreadIndex) CategoryOf(tid int64) Category {
	switch t.roles[tid] {
	case RoleUI:
		return CategoryUI
	case RoleRender:
		return CategoryRender
	default:
		return CategoryOther
	}
}

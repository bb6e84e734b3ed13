package timeline

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/jmewes/devtools/pkg/xlog"
)

// DefaultDisplayRefreshRate is the fallback frames-per-second budget used
// when the display refresh rate cannot be queried.
const DefaultDisplayRefreshRate = 60.0

// RenderFrame pairs the UI-side and render-side work of one rendering cycle.
// Either flow may be missing when the matching sub-tree was not (yet)
// observed; a missing flow reports not-janky on its axis.
type RenderFrame struct {
	ID         int64
	UIRoot     NodeID
	RenderRoot NodeID

	UIJanky     bool
	RenderJanky bool
}

func (f *RenderFrame) Complete() bool {
	return f.UIRoot != NoNode && f.RenderRoot != NoNode
}

func (f *RenderFrame) Janky() bool {
	return f.UIJanky || f.RenderJanky
}

// FrameBudgetMicros is the per-frame time budget implied by the display
// refresh rate.
func FrameBudgetMicros(refreshRate float64) int64 {
	if refreshRate <= 0 {
		refreshRate = DefaultDisplayRefreshRate
	}
	return int64(1_000_000 / refreshRate)
}

// CorrelateFrames pairs UI-category and render-category sub-trees sharing a
// frame id and computes jank against the refresh-rate budget. Frames with
// one flow missing are kept: a lagging flow may arrive in a later refresh.
func CorrelateFrames(ctx context.Context, forest *Forest, refreshRate float64, logger xlog.Logger) []*RenderFrame {
	budget := FrameBudgetMicros(refreshRate)
	frames := make(map[int64]*RenderFrame)

	frameFor := func(id int64) *RenderFrame {
		frame, ok := frames[id]
		if !ok {
			frame = &RenderFrame{ID: id, UIRoot: NoNode, RenderRoot: NoNode}
			frames[id] = frame
		}
		return frame
	}

	for _, root := range forest.Roots() {
		category := forest.Node(root).Category
		if category != CategoryUI && category != CategoryRender {
			continue
		}
		forest.WalkSubtree(root, func(id NodeID, node *Node) bool {
			frameID, ok := node.FrameNumber()
			if !ok {
				return true
			}
			frame := frameFor(frameID)
			switch category {
			case CategoryUI:
				if frame.UIRoot == NoNode {
					frame.UIRoot = id
				}
			case CategoryRender:
				if frame.RenderRoot == NoNode {
					frame.RenderRoot = id
				}
			}
			return true
		})
	}

	result := make([]*RenderFrame, 0, len(frames))
	for _, frame := range frames {
		frame.UIJanky = flowExceedsBudget(forest, frame.UIRoot, budget)
		frame.RenderJanky = flowExceedsBudget(forest, frame.RenderRoot, budget)
		result = append(result, frame)
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].ID < result[k].ID
	})

	incomplete := 0
	for _, frame := range result {
		if !frame.Complete() {
			incomplete++
		}
	}
	if incomplete > 0 {
		logger.Debug(ctx, "Correlated frames with missing flows",
			zap.Int("frames", len(result)),
			zap.Int("incomplete", incomplete))
	}

	return result
}

// A missing or still-open flow cannot be janky on its axis.
func flowExceedsBudget(forest *Forest, id NodeID, budgetMicros int64) bool {
	if id == NoNode {
		return false
	}
	duration, ok := forest.Node(id).Duration()
	return ok && duration > budgetMicros
}

////////////////////////////////////////////////////////////////////////////////

// FrameStats summarizes jank across a frame list.
type FrameStats struct {
	Total       int
	Complete    int
	JankyUI     int
	JankyRender int

	// Worst UI flow duration observed and the frame that produced it.
	WorstUIMicros int64
	WorstFrameID  int64
}

func ComputeFrameStats(forest *Forest, frames []*RenderFrame) FrameStats {
	var stats FrameStats
	stats.Total = len(frames)
	for _, frame := range frames {
		if frame.Complete() {
			stats.Complete++
		}
		if frame.UIJanky {
			stats.JankyUI++
		}
		if frame.RenderJanky {
			stats.JankyRender++
		}
		if frame.UIRoot == NoNode {
			continue
		}
		if duration, ok := forest.Node(frame.UIRoot).Duration(); ok && duration > stats.WorstUIMicros {
			stats.WorstUIMicros = duration
			stats.WorstFrameID = frame.ID
		}
	}
	return stats
}

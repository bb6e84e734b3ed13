package timeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmewes/devtools/pkg/traceevent"
	"github.com/jmewes/devtools/pkg/xlog"
)

func record(name string, phase traceevent.Phase, ts int64, tid int64) traceevent.Record {
	return traceevent.Record{Event: traceevent.Event{
		Name:            name,
		Phase:           phase,
		TimestampMicros: ts,
		ThreadID:        tid,
		ProcessID:       1,
	}}
}

func asyncRecord(name string, phase traceevent.Phase, ts int64, tid int64, id string) traceevent.Record {
	rec := record(name, phase, ts, tid)
	rec.AsyncID = traceevent.FlexID(id)
	return rec
}

func buildForTest(t *testing.T, records []traceevent.Record) *BuildResult {
	t.Helper()
	ctx := context.Background()
	threads := ResolveThreads(ctx, records, xlog.NewNop())
	return Build(ctx, records, threads, xlog.NewNop())
}

func TestBuild_Nesting(t *testing.T) {
	result := buildForTest(t, []traceevent.Record{
		record("frame", traceevent.DurationBegin, 100, 1),
		record("build", traceevent.DurationBegin, 110, 1),
		record("build", traceevent.DurationEnd, 140, 1),
		record("layout", traceevent.DurationBegin, 150, 1),
		record("layout", traceevent.DurationEnd, 180, 1),
		record("frame", traceevent.DurationEnd, 200, 1),
	})
	forest := result.Forest

	require.Empty(t, result.Diagnostics)
	require.Len(t, forest.Roots(), 1)

	root := forest.Node(forest.Roots()[0])
	require.Equal(t, "frame", root.Name)
	duration, ok := root.Duration()
	require.True(t, ok)
	require.Equal(t, int64(100), duration)

	children := forest.Children(forest.Roots()[0])
	require.Len(t, children, 2)

	// Children preserve begin arrival order and nest inside the parent.
	prevEnd := root.StartMicros
	names := []string{}
	for _, childID := range children {
		child := forest.Node(childID)
		names = append(names, child.Name)

		childDuration, ok := child.Duration()
		require.True(t, ok)
		require.GreaterOrEqual(t, child.StartMicros, root.StartMicros)
		require.LessOrEqual(t, child.StartMicros+childDuration, root.EndMicros())

		// Siblings never overlap.
		require.GreaterOrEqual(t, child.StartMicros, prevEnd)
		prevEnd = child.EndMicros()
	}
	require.Equal(t, []string{"build", "layout"}, names)

	// Parent links are lookup-only back references.
	require.Equal(t, forest.Roots()[0], forest.Parent(children[0]))
	require.Equal(t, NoNode, forest.Parent(forest.Roots()[0]))
}

func TestBuild_UnmatchedEndDoesNotTouchOtherThreads(t *testing.T) {
	result := buildForTest(t, []traceevent.Record{
		record("x", traceevent.DurationBegin, 100, 1),
		record("y", traceevent.DurationEnd, 120, 2),
	})
	forest := result.Forest

	require.Len(t, forest.Roots(), 1)
	node := forest.Node(forest.Roots()[0])
	require.Equal(t, "x", node.Name)
	require.True(t, node.Open())

	require.Len(t, result.Diagnostics, 2)
	require.Equal(t, DiagUnmatchedEnd, result.Diagnostics[0].Kind)
	require.Equal(t, DiagUnterminated, result.Diagnostics[1].Kind)
}

func TestBuild_CompleteEvent(t *testing.T) {
	result := buildForTest(t, []traceevent.Record{
		record("frame", traceevent.DurationBegin, 100, 1),
		{Event: traceevent.Event{
			Name: "paint", Phase: traceevent.Complete,
			TimestampMicros: 120, DurationMicros: 30, ThreadID: 1,
		}},
		record("frame", traceevent.DurationEnd, 200, 1),
	})
	forest := result.Forest

	children := forest.Children(forest.Roots()[0])
	require.Len(t, children, 1)
	leaf := forest.Node(children[0])
	require.Equal(t, "paint", leaf.Name)
	duration, ok := leaf.Duration()
	require.True(t, ok)
	require.Equal(t, int64(30), duration)
	require.Empty(t, forest.Children(children[0]))
}

func TestBuild_AsyncFlows(t *testing.T) {
	result := buildForTest(t, []traceevent.Record{
		asyncRecord("flow", traceevent.AsyncBegin, 100, 1, "7"),
		asyncRecord("step", traceevent.AsyncInstant, 130, 1, "7"),
		asyncRecord("flow", traceevent.AsyncEnd, 160, 1, "7"),
		asyncRecord("other", traceevent.AsyncBegin, 110, 2, "8"),
		asyncRecord("other", traceevent.AsyncEnd, 150, 2, "8"),
		// Instant with no matching begin becomes a zero-duration root leaf.
		asyncRecord("orphan", traceevent.AsyncInstant, 170, 1, "9"),
		// End with no open node is discarded.
		asyncRecord("stray", traceevent.AsyncEnd, 180, 1, "10"),
	})
	forest := result.Forest

	// One root per unique async id.
	require.Len(t, forest.Roots(), 3)

	flow := forest.Node(forest.Roots()[0])
	require.Equal(t, "flow", flow.Name)
	duration, ok := flow.Duration()
	require.True(t, ok)
	require.Equal(t, int64(60), duration)

	steps := forest.Children(forest.Roots()[0])
	require.Len(t, steps, 1)
	step := forest.Node(steps[0])
	require.Equal(t, "step", step.Name)
	stepDuration, ok := step.Duration()
	require.True(t, ok)
	require.Zero(t, stepDuration)

	orphan := forest.Node(forest.Roots()[2])
	require.Equal(t, "orphan", orphan.Name)
	orphanDuration, ok := orphan.Duration()
	require.True(t, ok)
	require.Zero(t, orphanDuration)

	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, DiagUnmatchedAsyncEnd, result.Diagnostics[0].Kind)
}

func TestBuild_UnknownPhaseSkipped(t *testing.T) {
	result := buildForTest(t, []traceevent.Record{
		record("counter", traceevent.Phase("C"), 100, 1),
		record("x", traceevent.DurationBegin, 110, 1),
		record("x", traceevent.DurationEnd, 120, 1),
	})

	require.Len(t, result.Forest.Roots(), 1)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, DiagUnknownPhase, result.Diagnostics[0].Kind)
}

func TestBuild_Idempotent(t *testing.T) {
	records := []traceevent.Record{
		threadNameRecord(1, "io.flutter.1.ui (1)"),
		record("frame", traceevent.DurationBegin, 100, 1),
		record("build", traceevent.DurationBegin, 110, 1),
		record("build", traceevent.DurationEnd, 140, 1),
		record("frame", traceevent.DurationEnd, 200, 1),
		asyncRecord("flow", traceevent.AsyncBegin, 100, 1, "7"),
		asyncRecord("flow", traceevent.AsyncEnd, 150, 1, "7"),
	}

	type flatNode struct {
		name     string
		category Category
		start    int64
		duration int64
		closed   bool
		parent   NodeID
	}
	flatten := func(result *BuildResult) []flatNode {
		var flat []flatNode
		result.Forest.WalkPreOrder(func(id NodeID, node *Node) bool {
			duration, closed := node.Duration()
			flat = append(flat, flatNode{
				name:     node.Name,
				category: node.Category,
				start:    node.StartMicros,
				duration: duration,
				closed:   closed,
				parent:   result.Forest.Parent(id),
			})
			return true
		})
		return flat
	}

	first := buildForTest(t, records)
	second := buildForTest(t, records)
	require.Equal(t, flatten(first), flatten(second))
	require.Equal(t, first.GroupNames, second.GroupNames)
}

func TestBuild_Groups(t *testing.T) {
	result := buildForTest(t, []traceevent.Record{
		threadNameRecord(1, "io.flutter.1.ui (1)"),
		record("build", traceevent.DurationBegin, 100, 1),
		record("build", traceevent.DurationEnd, 120, 1),
		record("io", traceevent.DurationBegin, 105, 9),
		record("io", traceevent.DurationEnd, 115, 9),
		record("layout", traceevent.DurationBegin, 130, 1),
		record("layout", traceevent.DurationEnd, 150, 1),
	})

	// Group order follows first appearance among the roots; unnamed threads
	// fall back to the stringified thread id.
	require.Equal(t, []string{"io.flutter.1.ui (1)", "9"}, result.GroupNames)

	ui := result.Groups["io.flutter.1.ui (1)"]
	require.Len(t, ui.Roots, 2)
	require.Equal(t, "build", result.Forest.Node(ui.Roots[0]).Name)
	require.Equal(t, "layout", result.Forest.Node(ui.Roots[1]).Name)

	require.Len(t, result.Groups["9"].Roots, 1)
}

package timeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmewes/devtools/pkg/traceevent"
	"github.com/jmewes/devtools/pkg/xlog"
)

// DiagnosticKind classifies a per-event problem found during reconstruction.
// Malformed events degrade the tree, never fail the build.
type DiagnosticKind int

const (
	DiagUnknownPhase DiagnosticKind = iota
	DiagUnmatchedEnd
	DiagUnmatchedAsyncEnd
	DiagUnterminated
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagUnknownPhase:
		return "unknown-phase"
	case DiagUnmatchedEnd:
		return "unmatched-end"
	case DiagUnmatchedAsyncEnd:
		return "unmatched-async-end"
	case DiagUnterminated:
		return "unterminated"
	default:
		return "diagnostic"
	}
}

type Diagnostic struct {
	Kind    DiagnosticKind
	Message string
}

// EventGroup is a per-thread ordered view over the forest roots. It is a
// presentation index, rebuildable from the forest at any time.
type EventGroup struct {
	ThreadName string
	Roots      []NodeID
}

// BuildResult is the reconstructed forest plus its presentation indices.
type BuildResult struct {
	Forest      *Forest
	Groups      map[string]*EventGroup
	GroupNames  []string
	Diagnostics []Diagnostic
}

// Build reconstructs per-thread duration trees and per-async-id flow trees
// from an ordered-by-arrival batch of records. Children of a node preserve
// the relative arrival order of their begin/complete events.
func Build(ctx context.Context, records []traceevent.Record, threads *ThreadIndex, logger xlog.Logger) *BuildResult {
	b := &builder{
		forest:  &Forest{},
		threads: threads,
		stacks:  make(map[int64][]NodeID),
		flows:   make(map[string][]NodeID),
	}

	for i := range records {
		b.consume(&records[i].Event)
	}
	b.finish()

	for i := range b.diags {
		logger.Debug(ctx, "Trace reconstruction diagnostic",
			zap.Stringer("kind", b.diags[i].Kind),
			zap.String("detail", b.diags[i].Message))
	}
	if len(b.diags) > 0 {
		logger.Info(ctx, "Trace reconstructed with diagnostics",
			zap.Int("events", len(records)),
			zap.Int("diagnostics", len(b.diags)))
	}

	groups, names := groupRoots(b.forest, threads)
	return &BuildResult{
		Forest:      b.forest,
		Groups:      groups,
		GroupNames:  names,
		Diagnostics: b.diags,
	}
}

type builder struct {
	forest  *Forest
	threads *ThreadIndex

	// One open-node stack per thread id, one per async flow id.
	stacks map[int64][]NodeID
	flows  map[string][]NodeID

	diags []Diagnostic
}

func (b *builder) consume(ev *traceevent.Event) {
	switch ev.Phase {
	case traceevent.DurationBegin:
		b.beginDuration(ev)
	case traceevent.DurationEnd:
		b.endDuration(ev)
	case traceevent.Complete:
		b.addLeaf(ev, ev.DurationMicros)
	case traceevent.Instant:
		b.addLeaf(ev, 0)
	case traceevent.AsyncBegin:
		b.beginAsync(ev)
	case traceevent.AsyncEnd:
		b.endAsync(ev)
	case traceevent.AsyncInstant:
		b.instantAsync(ev)
	case traceevent.Metadata:
		// Consumed by ResolveThreads.
	default:
		b.diag(DiagUnknownPhase, "skipping event %q with unknown phase %q", ev.Name, ev.Phase)
	}
}

func (b *builder) beginDuration(ev *traceevent.Event) {
	id := b.forest.newNode(Node{
		Name:        ev.Name,
		Category:    b.threads.CategoryOf(ev.ThreadID),
		ThreadID:    ev.ThreadID,
		StartMicros: ev.TimestampMicros,
		parent:      NoNode,
		Begin:       ev,
	})
	b.forest.addChild(b.stackTop(ev.ThreadID), id)
	b.stacks[ev.ThreadID] = append(b.stacks[ev.ThreadID], id)
}

func (b *builder) endDuration(ev *traceevent.Event) {
	stack := b.stacks[ev.ThreadID]
	if len(stack) == 0 {
		b.diag(DiagUnmatchedEnd, "discarding end event %q on thread %d with no open node", ev.Name, ev.ThreadID)
		return
	}
	id := stack[len(stack)-1]
	b.stacks[ev.ThreadID] = stack[:len(stack)-1]

	node := b.forest.Node(id)
	node.durationMicros = ev.TimestampMicros - node.StartMicros
	node.closed = true
	node.End = ev
}

// addLeaf synthesizes a fully-formed leaf directly, without touching the
// open-node stack.
func (b *builder) addLeaf(ev *traceevent.Event, durationMicros int64) {
	id := b.forest.newNode(Node{
		Name:           ev.Name,
		Category:       b.threads.CategoryOf(ev.ThreadID),
		ThreadID:       ev.ThreadID,
		StartMicros:    ev.TimestampMicros,
		durationMicros: durationMicros,
		closed:         true,
		parent:         NoNode,
		Begin:          ev,
	})
	b.forest.addChild(b.stackTop(ev.ThreadID), id)
}

func (b *builder) beginAsync(ev *traceevent.Event) {
	flowID := string(ev.AsyncID)
	id := b.forest.newNode(Node{
		Name:        ev.Name,
		Category:    b.threads.CategoryOf(ev.ThreadID),
		ThreadID:    ev.ThreadID,
		StartMicros: ev.TimestampMicros,
		parent:      NoNode,
		Begin:       ev,
	})
	b.forest.addChild(b.flowTop(flowID), id)
	b.flows[flowID] = append(b.flows[flowID], id)
}

func (b *builder) endAsync(ev *traceevent.Event) {
	flowID := string(ev.AsyncID)
	stack := b.flows[flowID]
	if len(stack) == 0 {
		b.diag(DiagUnmatchedAsyncEnd, "discarding async end %q for flow %q with no open node", ev.Name, flowID)
		return
	}
	id := stack[len(stack)-1]
	b.flows[flowID] = stack[:len(stack)-1]

	node := b.forest.Node(id)
	node.durationMicros = ev.TimestampMicros - node.StartMicros
	node.closed = true
	node.End = ev
}

func (b *builder) instantAsync(ev *traceevent.Event) {
	flowID := string(ev.AsyncID)
	id := b.forest.newNode(Node{
		Name:        ev.Name,
		Category:    b.threads.CategoryOf(ev.ThreadID),
		ThreadID:    ev.ThreadID,
		StartMicros: ev.TimestampMicros,
		closed:      true,
		parent:      NoNode,
		Begin:       ev,
	})
	b.forest.addChild(b.flowTop(flowID), id)
}

// finish flags unterminated nodes. They stay in the forest, open, so the
// structure remains valid when an end event never arrived.
func (b *builder) finish() {
	for tid, stack := range b.stacks {
		for _, id := range stack {
			b.diag(DiagUnterminated, "node %q on thread %d never saw its end event", b.forest.Node(id).Name, tid)
		}
	}
	for flowID, stack := range b.flows {
		for _, id := range stack {
			b.diag(DiagUnterminated, "async node %q in flow %q never saw its end event", b.forest.Node(id).Name, flowID)
		}
	}
}

func (b *builder) stackTop(tid int64) NodeID {
	stack := b.stacks[tid]
	if len(stack) == 0 {
		return NoNode
	}
	return stack[len(stack)-1]
}

func (b *builder) flowTop(flowID string) NodeID {
	stack := b.flows[flowID]
	if len(stack) == 0 {
		return NoNode
	}
	return stack[len(stack)-1]
}

func (b *builder) diag(kind DiagnosticKind, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
}

// groupRoots rebuilds the per-thread presentation index from the forest.
// Group order follows the first appearance of each thread among the roots.
func groupRoots(forest *Forest, threads *ThreadIndex) (map[string]*EventGroup, []string) {
	groups := make(map[string]*EventGroup)
	var names []string

	for _, root := range forest.Roots() {
		name := threads.Name(forest.Node(root).ThreadID)
		group, ok := groups[name]
		if !ok {
			group = &EventGroup{ThreadName: name}
			groups[name] = group
			names = append(names, name)
		}
		group.Roots = append(group.Roots, root)
	}
	return groups, names
}

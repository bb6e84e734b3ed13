package timeline

import "github.com/jmewes/devtools/pkg/traceevent"

// Category tags a reconstructed node with the role of its source thread.
type Category int

const (
	CategoryOther Category = iota
	CategoryUI
	CategoryRender
)

func (c Category) String() string {
	switch c {
	case CategoryUI:
		return "ui"
	case CategoryRender:
		return "render"
	default:
		return "other"
	}
}

// NodeID indexes into a Forest's node table.
type NodeID int32

const NoNode NodeID = -1

// Node is one reconstructed duration span. Nodes live in a Forest arena;
// parent and children are indices, and the parent link is lookup-only.
type Node struct {
	Name        string
	Category    Category
	ThreadID    int64
	StartMicros int64

	durationMicros int64
	closed         bool

	parent   NodeID
	children []NodeID

	// Originating raw events, retained for export.
	Begin *traceevent.Event
	End   *traceevent.Event
}

// Duration reports the node's duration; ok is false while the node is still
// open (its end event was never observed).
func (n *Node) Duration() (int64, bool) {
	return n.durationMicros, n.closed
}

func (n *Node) Open() bool {
	return !n.closed
}

// EndMicros is the exclusive end of the node's time range; open nodes report
// their start.
func (n *Node) EndMicros() int64 {
	if !n.closed {
		return n.StartMicros
	}
	return n.StartMicros + n.durationMicros
}

// FrameNumber reports the rendering cycle id carried by the node's begin
// event, if any.
func (n *Node) FrameNumber() (int64, bool) {
	if n.Begin == nil {
		return 0, false
	}
	return n.Begin.FrameNumber()
}

////////////////////////////////////////////////////////////////////////////////

// Forest is a flat arena of nodes plus the ordered list of roots. Once built
// it is never mutated, so node pointers handed out by Node() stay valid.
type Forest struct {
	nodes []Node
	roots []NodeID
}

func (f *Forest) Len() int {
	return len(f.nodes)
}

func (f *Forest) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(f.nodes) {
		return nil
	}
	return &f.nodes[id]
}

func (f *Forest) Parent(id NodeID) NodeID {
	if node := f.Node(id); node != nil {
		return node.parent
	}
	return NoNode
}

func (f *Forest) Children(id NodeID) []NodeID {
	if node := f.Node(id); node != nil {
		return node.children
	}
	return nil
}

// Roots are in arrival order of their begin events.
func (f *Forest) Roots() []NodeID {
	return f.roots
}

func (f *Forest) newNode(node Node) NodeID {
	id := NodeID(len(f.nodes))
	f.nodes = append(f.nodes, node)
	return id
}

func (f *Forest) addChild(parent NodeID, child NodeID) {
	f.nodes[child].parent = parent
	if parent == NoNode {
		f.roots = append(f.roots, child)
		return
	}
	f.nodes[parent].children = append(f.nodes[parent].children, child)
}

// WalkPreOrder visits every node depth-first in root/sibling order. The walk
// stops early when visit returns false.
func (f *Forest) WalkPreOrder(visit func(id NodeID, node *Node) bool) {
	for _, root := range f.roots {
		if !f.walk(root, visit) {
			return
		}
	}
}

// WalkSubtree visits the subtree under root pre-order.
func (f *Forest) WalkSubtree(root NodeID, visit func(id NodeID, node *Node) bool) {
	if f.Node(root) == nil {
		return
	}
	f.walk(root, visit)
}

func (f *Forest) walk(id NodeID, visit func(id NodeID, node *Node) bool) bool {
	if !visit(id, &f.nodes[id]) {
		return false
	}
	for _, child := range f.nodes[id].children {
		if !f.walk(child, visit) {
			return false
		}
	}
	return true
}

// BreadthFirst visits every node level by level, left to right across the
// forest. This is the canonical deterministic order for search.
func (f *Forest) BreadthFirst(visit func(id NodeID, node *Node)) {
	queue := make([]NodeID, len(f.roots))
	copy(queue, f.roots)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visit(id, &f.nodes[id])
		queue = append(queue, f.nodes[id].children...)
	}
}

// FindPreOrder reports the first node satisfying pred in pre-order, or NoNode.
func (f *Forest) FindPreOrder(pred func(node *Node) bool) NodeID {
	found := NoNode
	f.WalkPreOrder(func(id NodeID, node *Node) bool {
		if pred(node) {
			found = id
			return false
		}
		return true
	})
	return found
}

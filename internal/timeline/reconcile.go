package timeline

// SelectionKey is the structural identity of a selected event: nodes are
// rebuilt on replay, so identity comparison is replaced by the
// (name, start, duration) triple.
type SelectionKey struct {
	Name        string
	StartMicros int64

	DurationMicros int64
	HasDuration    bool
}

// KeyOf derives the structural key for a node in the forest.
func KeyOf(forest *Forest, id NodeID) (SelectionKey, bool) {
	node := forest.Node(id)
	if node == nil {
		return SelectionKey{}, false
	}
	key := SelectionKey{
		Name:        node.Name,
		StartMicros: node.StartMicros,
	}
	key.DurationMicros, key.HasDuration = node.Duration()
	return key, true
}

// ReselectEvent locates the first node (pre-order across the forest) whose
// structural key equals the original selection's. NoNode when nothing
// matches; the selection is then cleared, never defaulted.
func ReselectEvent(forest *Forest, key SelectionKey) NodeID {
	return forest.FindPreOrder(func(node *Node) bool {
		if node.Name != key.Name || node.StartMicros != key.StartMicros {
			return false
		}
		duration, ok := node.Duration()
		return ok == key.HasDuration && duration == key.DurationMicros
	})
}

// ReselectFrame locates the frame with the original selection's id.
func ReselectFrame(frames []*RenderFrame, id int64) *RenderFrame {
	for _, frame := range frames {
		if frame.ID == id {
			return frame
		}
	}
	return nil
}

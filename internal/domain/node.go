package domain

// Node is the routing state of a single simulated peer on the ring.
//
// It is a passive record: all behavior lives in the ring algorithms,
// which resolve peers through the topology registry. Nodes refer to
// other nodes by identifier only, never by pointer, so removing a node
// from the registry can never leave a dangling reference, only a
// stale identifier that later maintenance cleans up.
type Node struct {
	ID ID

	// Predecessor is the id of the node believed to immediately
	// precede this one on the ring. Nil when unknown.
	Predecessor ID

	// Fingers has one entry per bit of the identifier space.
	// Fingers[i] is believed to be the successor of (ID + 2^i) mod 2^Bits;
	// Fingers[0] is the canonical successor pointer.
	Fingers []ID

	// Joined records whether the node has been introduced to a ring
	// through a bootstrap peer. A join on an already joined node is
	// ignored.
	Joined bool
}

// NewNode returns a node in the freshly-added state: every finger
// points back at the node itself, the predecessor is unknown, and the
// node has not joined any ring.
func NewNode(id ID, sp Space) *Node {
	fingers := make([]ID, sp.Bits)
	for i := range fingers {
		fingers[i] = id
	}
	return &Node{
		ID:      id,
		Fingers: fingers,
	}
}

// Successor returns the node's immediate successor pointer (finger 0).
func (n *Node) Successor() ID {
	return n.Fingers[0]
}

// SetSuccessor replaces the immediate successor pointer.
func (n *Node) SetSuccessor(id ID) {
	n.Fingers[0] = id
}

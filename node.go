// FILE: lixenwraith/profile/node.go
package profile

// Node is a single element of a profile tree. A node with a value is a
// relation and never has children; a node without a value is a section and
// owns an ordered list of children.
type Node struct {
	name     string
	value    string
	hasValue bool
	level    int
	final    bool
	dead     bool

	parent      *Node
	first, last *Node
	prev, next  *Node
}

// NewNode creates a detached node. A nil value creates a section.
func NewNode(name string, value *string) (*Node, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	n := &Node{name: name}
	if value != nil {
		n.value = *value
		n.hasValue = true
	}
	return n, nil
}

// NewSection creates a detached, empty section node.
func NewSection(name string) (*Node, error) {
	return NewNode(name, nil)
}

// NewRelation creates a detached relation node.
func NewRelation(name, value string) (*Node, error) {
	return NewNode(name, &value)
}

// Destroy detaches the node from its parent and releases it together with all
// descendants. Any later use of the node, or of a handle into its subtree,
// fails with ErrInvalidHandle. Calling Destroy more than once is safe.
func (n *Node) Destroy() {
	if n == nil || n.dead {
		return
	}
	if n.parent != nil && !n.parent.dead {
		n.parent.unlink(n)
	}
	n.release()
}

// release marks the subtree dead, children first.
func (n *Node) release() {
	for c := n.first; c != nil; {
		next := c.next
		c.release()
		c = next
	}
	n.first, n.last = nil, nil
	n.prev, n.next = nil, nil
	n.parent = nil
	n.dead = true
}

// unlink removes child from the sibling chain in O(1).
func (n *Node) unlink(child *Node) {
	if child.prev != nil {
		child.prev.next = child.next
	} else {
		n.first = child.next
	}
	if child.next != nil {
		child.next.prev = child.prev
	} else {
		n.last = child.prev
	}
	child.prev, child.next, child.parent = nil, nil, nil
}

func (n *Node) check() error {
	if n == nil || n.dead {
		return ErrInvalidHandle
	}
	return nil
}

// Alive reports whether the handle still refers to a live node.
func (n *Node) Alive() bool {
	return n != nil && !n.dead
}

// Name returns the node name, or "" for a destroyed node.
func (n *Node) Name() string {
	if n.check() != nil {
		return ""
	}
	return n.name
}

// Value returns the relation value. The boolean is false for sections and
// destroyed nodes.
func (n *Node) Value() (string, bool) {
	if n.check() != nil || !n.hasValue {
		return "", false
	}
	return n.value, true
}

// IsSection reports whether the node is a live section.
func (n *Node) IsSection() bool {
	return n.check() == nil && !n.hasValue
}

// Level returns the depth of the node below its source root, 0 for a
// destroyed node.
func (n *Node) Level() int {
	if n.check() != nil {
		return 0
	}
	return n.level
}

// Parent returns the owning section, nil at a source root.
func (n *Node) Parent() (*Node, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	return n.parent, nil
}

// SetFinal marks the node so that a merged lookup matching it during path
// resolution does not consult later sources.
func (n *Node) SetFinal() error {
	if err := n.check(); err != nil {
		return err
	}
	n.final = true
	return nil
}

// IsFinal reports the final marker.
func (n *Node) IsFinal() bool {
	return n.check() == nil && n.final
}

// FirstChild returns the first child of a section, nil if it has none.
func (n *Node) FirstChild() *Node {
	if n.check() != nil {
		return nil
	}
	return n.first
}

// NextSibling returns the following sibling, nil at the end of the list.
func (n *Node) NextSibling() *Node {
	if n.check() != nil {
		return nil
	}
	return n.next
}

// Children returns a snapshot of the direct children in sibling order.
func (n *Node) Children() []*Node {
	if n.check() != nil {
		return nil
	}
	var out []*Node
	for c := n.first; c != nil; c = c.next {
		out = append(out, c)
	}
	return out
}

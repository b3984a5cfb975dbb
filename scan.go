// FILE: lixenwraith/profile/scan.go
package profile

import "fmt"

// Cursor is the resumable position of a single-section scan. The zero value
// starts at the first child. After each successful step the cursor already
// points at the next match, so More reports exactly whether another call can
// succeed.
type Cursor struct {
	next    *Node
	started bool
}

// More reports whether the next scan call will return a match.
func (c *Cursor) More() bool {
	return !c.started || c.next != nil
}

// Reset rewinds the cursor to the start of the section.
func (c *Cursor) Reset() {
	c.next = nil
	c.started = false
}

// FindRelation returns the next relation under the section whose name
// matches. An empty name matches every relation.
func (n *Node) FindRelation(name string, cur *Cursor) (string, string, error) {
	p, err := n.scan(name, cur, true)
	if err != nil {
		return "", "", err
	}
	return p.name, p.value, nil
}

// FindSubsection returns the next subsection under the section whose name
// matches. An empty name matches every subsection.
func (n *Node) FindSubsection(name string, cur *Cursor) (string, *Node, error) {
	p, err := n.scan(name, cur, false)
	if err != nil {
		return "", nil, err
	}
	return p.name, p, nil
}

func (n *Node) scan(name string, cur *Cursor, relation bool) (*Node, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	miss := ErrNoSection
	if relation {
		miss = ErrNoRelation
	}

	var start *Node
	switch {
	case !cur.started:
		start = n.first
	case cur.next == nil:
		return nil, fmt.Errorf("%w: %q", miss, name)
	default:
		if err := cur.next.check(); err != nil {
			return nil, err
		}
		if cur.next.parent != n {
			return nil, fmt.Errorf("%w: cursor belongs to another section", ErrInvalidHandle)
		}
		start = cur.next
	}
	cur.started = true

	match := nextMatch(start, name, relation)
	if match == nil {
		cur.next = nil
		return nil, fmt.Errorf("%w: %q", miss, name)
	}
	cur.next = nextMatch(match.next, name, relation)
	return match, nil
}

// nextMatch walks siblings from p and returns the first one matching the
// name filter and kind.
func nextMatch(p *Node, name string, relation bool) *Node {
	for ; p != nil; p = p.next {
		if (name == "" || p.name == name) && p.hasValue == relation {
			return p
		}
	}
	return nil
}

// FILE: lixenwraith/profile/tree.go
package profile

import (
	"fmt"
	"strings"
)

// Add inserts a new child under the section. Children are kept ordered by
// name; a new node goes after every existing child whose name sorts at or
// before it, so entries sharing a name keep their insertion order.
// A nil value adds a subsection.
func (n *Node) Add(name string, value *string) (*Node, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	if n.hasValue {
		return nil, fmt.Errorf("%w: %q", ErrNotASection, n.name)
	}

	var last, p *Node
	for p = n.first; p != nil; last, p = p, p.next {
		if strings.Compare(p.name, name) > 0 {
			break
		}
	}

	child, err := NewNode(name, value)
	if err != nil {
		return nil, err
	}
	child.level = n.level + 1
	child.parent = n
	child.prev = last
	child.next = p
	if p != nil {
		p.prev = child
	} else {
		n.last = child
	}
	if last != nil {
		last.next = child
	} else {
		n.first = child
	}
	return child, nil
}

// AddSection inserts an empty subsection.
func (n *Node) AddSection(name string) (*Node, error) {
	return n.Add(name, nil)
}

// AddRelation inserts a relation.
func (n *Node) AddRelation(name, value string) (*Node, error) {
	return n.Add(name, &value)
}

// Remove deletes every direct child called name whose kind matches section.
// It fails with ErrNotFound when no child carries the name at all; when
// same-named children exist only of the other kind nothing is removed and the
// kind-specific not-found error is returned.
func (n *Node) Remove(name string, section bool) error {
	if err := n.check(); err != nil {
		return err
	}

	miss := ErrNoRelation
	if section {
		miss = ErrNoSection
	}

	named, removed := 0, 0
	for p := n.first; p != nil; {
		next := p.next
		if p.name == name {
			named++
			if p.hasValue != section {
				n.unlink(p)
				p.release()
				removed++
			}
		}
		p = next
	}

	if named == 0 {
		return fmt.Errorf("%w: %q", miss, name)
	}
	if removed == 0 {
		return fmt.Errorf("%w: %q has no matching kind", miss, name)
	}
	return nil
}

// Verify checks the structural invariants of the subtree rooted at n and
// returns the first violation found.
func (n *Node) Verify() error {
	if err := n.check(); err != nil {
		return err
	}
	if n.hasValue && n.first != nil {
		return fmt.Errorf("%w: %q", ErrSectionHasValue, n.name)
	}

	var last *Node
	for p := n.first; p != nil; last, p = p, p.next {
		if p.dead {
			return fmt.Errorf("%w: dead child under %q", ErrInvalidHandle, n.name)
		}
		if p.prev != last {
			return fmt.Errorf("%w: under %q at %q", ErrBadLinkList, n.name, p.name)
		}
		if last != nil && last.next != p {
			return fmt.Errorf("%w: under %q at %q", ErrBadLinkList, n.name, p.name)
		}
		if p.level != n.level+1 {
			return fmt.Errorf("%w: %q is %d under %q at %d", ErrBadGroupLevel, p.name, p.level, n.name, n.level)
		}
		if p.parent != n {
			return fmt.Errorf("%w: %q under %q", ErrBadParent, p.name, n.name)
		}
		if err := p.Verify(); err != nil {
			return err
		}
	}
	if n.last != last {
		return fmt.Errorf("%w: tail of %q", ErrBadLinkList, n.name)
	}
	return nil
}

// Lookup follows path through the first matching subsection at each level.
func (n *Node) Lookup(path ...string) (*Node, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	section := n
	for _, name := range path {
		next := section.firstSection(name)
		if next == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoSection, strings.Join(path, "."))
		}
		section = next
	}
	return section, nil
}

// firstSection returns the first subsection called name, or nil.
func (n *Node) firstSection(name string) *Node {
	for p := n.first; p != nil; p = p.next {
		if !p.hasValue && p.name == name {
			return p
		}
	}
	return nil
}

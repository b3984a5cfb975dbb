// FILE: lixenwraith/profile/iterator.go
package profile

import (
	"sync"

	"github.com/rs/zerolog"
)

// IterFlags selects what a merge iterator matches.
type IterFlags int

const (
	// ListSection resolves every path component as a section and yields all
	// children of that section.
	ListSection IterFlags = 1 << iota
	// SectionsOnly skips relations.
	SectionsOnly
	// RelationsOnly skips subsections.
	RelationsOnly
)

// Entry is one result of a merge iterator. Node is only valid until the
// owning source is reloaded.
type Entry struct {
	Node     *Node
	Name     string
	Value    string
	HasValue bool
}

type iterState int

const (
	stateResolving iterState = iota
	stateScanning
	stateStale
	stateExhausted
)

func (s iterState) String() string {
	switch s {
	case stateResolving:
		return "resolving"
	case stateScanning:
		return "scanning"
	case stateStale:
		return "stale"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Iterator walks every entry matching a path across a chain of sources, in
// source order and then sibling order. A final section met while resolving
// the path stops the walk after the current source.
//
// If the current source is reloaded between two calls the iterator resolves
// the path again in the new tree and skips as many matches as it already
// returned from that source. The skip is positional: when entries before that
// point were removed by the reload, later entries can be skipped.
//
// NewIterator takes no lock. Sources owned by a Profile with AutoUpdate
// enabled are replaced in the background, so iterate them through
// Profile.Iterator, which holds the profile read lock for each step.
type Iterator struct {
	state  iterState
	closed bool

	path  []string
	name  string
	flags IterFlags

	src       ConfigSource
	gen       uint64
	node      *Node
	num       int
	skip      int
	finalSeen bool

	lock   sync.Locker
	logger zerolog.Logger
}

// NewIterator creates a merge iterator starting at first. Unless ListSection
// is set the last path component names the entries to return, and an empty
// last component matches every name. The iterator runs unlocked; use
// Profile.Iterator for sources a watching Profile may reload.
func NewIterator(first ConfigSource, path []string, flags IterFlags) (*Iterator, error) {
	if first == nil {
		return nil, ErrNoProfile
	}
	it := &Iterator{
		state:  stateResolving,
		flags:  flags,
		src:    first,
		logger: zerolog.Nop(),
	}
	if flags&ListSection != 0 {
		it.path = append([]string(nil), path...)
	} else {
		if len(path) == 0 {
			return nil, ErrBadPathSpec
		}
		it.path = append([]string(nil), path[:len(path)-1]...)
		it.name = path[len(path)-1]
	}
	return it, nil
}

// Next returns the next matching entry. ok is false once every source is
// exhausted; the iterator is closed at that point and any further call
// returns ErrInvalidHandle.
func (it *Iterator) Next() (Entry, bool, error) {
	if it == nil {
		return Entry{}, false, ErrInvalidHandle
	}
	if it.lock != nil {
		it.lock.Lock()
		defer it.lock.Unlock()
	}
	if it.closed {
		return Entry{}, false, ErrInvalidHandle
	}

	if it.state == stateScanning && (it.src.Generation() != it.gen || (it.node != nil && it.node.dead)) {
		it.state = stateStale
	}

	for {
		switch it.state {
		case stateStale:
			it.recover()
		case stateResolving:
			it.resolve()
		case stateScanning:
			if e, ok := it.scan(); ok {
				return e, true, nil
			}
		default:
			it.close()
			return Entry{}, false, nil
		}
	}
}

// Close releases the iterator. It is safe to call more than once and after
// exhaustion.
func (it *Iterator) Close() {
	if it == nil {
		return
	}
	if it.lock != nil {
		it.lock.Lock()
		defer it.lock.Unlock()
	}
	it.close()
}

func (it *Iterator) close() {
	it.closed = true
	it.state = stateExhausted
	it.src = nil
	it.node = nil
	it.path = nil
}

// recover drops the cursor after the current source changed generation and
// arranges to skip the entries already returned from it.
func (it *Iterator) recover() {
	it.finalSeen = false
	it.skip = it.num
	it.node = nil
	it.state = stateResolving
	it.logger.Debug().
		Str("event", "profile.iterator_resync").
		Int("skip", it.skip).
		Msg("source changed during iteration")
}

// resolve walks the section components of the path in the current source.
// An unresolved path moves on to the next source.
func (it *Iterator) resolve() {
	if it.src == nil || it.finalSeen {
		it.state = stateExhausted
		return
	}

	it.gen = it.src.Generation()
	section := it.src.Root()
	for _, name := range it.path {
		if section == nil || section.dead {
			section = nil
			break
		}
		section = section.firstSection(name)
		if section == nil {
			break
		}
		if section.final {
			it.finalSeen = true
		}
	}
	if section == nil || section.dead {
		it.advance()
		return
	}

	it.node = section.first
	it.state = stateScanning
}

// scan returns the next qualifying sibling from the cursor, consuming any
// pending resync skip first.
func (it *Iterator) scan() (Entry, bool) {
	for p := it.node; p != nil; p = p.next {
		if !it.qualifies(p) {
			continue
		}
		if it.skip > 0 {
			it.skip--
			continue
		}

		it.num++
		if p.next == nil {
			it.advance()
		} else {
			it.node = p.next
		}
		return Entry{Node: p, Name: p.name, Value: p.value, HasValue: p.hasValue}, true
	}
	it.advance()
	return Entry{}, false
}

func (it *Iterator) qualifies(p *Node) bool {
	if it.name != "" && p.name != it.name {
		return false
	}
	if it.flags&SectionsOnly != 0 && p.hasValue {
		return false
	}
	if it.flags&RelationsOnly != 0 && !p.hasValue {
		return false
	}
	return true
}

// advance moves to the next source. Emitted and skip counts are per source.
func (it *Iterator) advance() {
	it.node = nil
	it.src = it.src.Next()
	it.num = 0
	it.skip = 0
	it.state = stateResolving
}

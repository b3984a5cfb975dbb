// FILE: lixenwraith/profile/errors.go
package profile

import (
	"errors"
	"fmt"
)

// Handle and allocation errors
var (
	// ErrOutOfMemory is kept for callers that map profile errors to the classic
	// profile error table. The Go runtime aborts on allocation failure, so no
	// operation in this package returns it.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrInvalidHandle indicates a destroyed node or a closed/exhausted iterator.
	ErrInvalidHandle = errors.New("invalid or destroyed handle")

	// ErrEmptyName indicates an attempt to create a node without a name.
	ErrEmptyName = errors.New("node name cannot be empty")
)

// Tree structure errors
var (
	// ErrNotASection indicates an insertion under a relation node.
	ErrNotASection = errors.New("node is not a section")

	// ErrSectionHasValue indicates a node holding both a value and children.
	ErrSectionHasValue = errors.New("section node has a value")

	// ErrBadLinkList indicates inconsistent sibling links.
	ErrBadLinkList = errors.New("sibling links are inconsistent")

	// ErrBadGroupLevel indicates a child whose level is not its parent's level plus one.
	ErrBadGroupLevel = errors.New("child group level mismatch")

	// ErrBadParent indicates a child whose parent reference is wrong.
	ErrBadParent = errors.New("child parent reference mismatch")
)

// Lookup errors
var (
	// ErrNotFound is the parent of the relation and section lookup errors.
	ErrNotFound = errors.New("not found")

	// ErrNoRelation indicates no relation matched.
	ErrNoRelation = fmt.Errorf("%w: no such relation", ErrNotFound)

	// ErrNoSection indicates no subsection matched.
	ErrNoSection = fmt.Errorf("%w: no such section", ErrNotFound)

	// ErrBadPathSpec indicates an empty path where the iterator mode needs one.
	ErrBadPathSpec = errors.New("bad path specification")

	// ErrNoProfile indicates an iterator created without any source.
	ErrNoProfile = errors.New("no profile sources")
)

// Value conversion errors
var (
	// ErrBadBoolean indicates a relation value outside the boolean vocabulary.
	ErrBadBoolean = errors.New("invalid boolean value")

	// ErrBadInteger indicates a relation value that does not parse as an integer.
	ErrBadInteger = errors.New("invalid integer value")
)

// File and format errors
var (
	// ErrProfileNotFound indicates a missing profile file.
	ErrProfileNotFound = errors.New("profile file not found")

	// ErrUnknownFormat indicates a file whose format could not be determined.
	ErrUnknownFormat = errors.New("unable to determine profile format")

	// ErrUnrepresentable indicates a tree or document shape the format mapping cannot express.
	ErrUnrepresentable = errors.New("shape not representable")

	// ErrReadOnly indicates a flush of a source with no backing file.
	ErrReadOnly = errors.New("source has no backing file")
)

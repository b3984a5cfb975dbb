// FILE: lixenwraith/profile/source.go
package profile

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ConfigSource is one origin tree in a priority-ordered chain of sources.
// Generation must change whenever the tree behind Root is replaced.
type ConfigSource interface {
	Root() *Node
	Generation() uint64
	Next() ConfigSource
}

// Source is an in-memory or file-backed ConfigSource.
type Source struct {
	mu      sync.RWMutex
	name    string
	path    string
	format  string
	root    *Node
	gen     uint64
	next    *Source
	dirty   bool
	closed  bool
	modTime time.Time
	size    int64
}

// NewSource creates an in-memory source around root. A nil root starts the
// source with an empty tree.
func NewSource(name string, root *Node) *Source {
	if name == "" {
		name = rootName
	}
	if root == nil {
		root, _ = NewSection(rootName)
	}
	return &Source{name: name, root: root, gen: 1}
}

// NewFileSource loads a profile file. An empty format selects detection by
// extension, then by content.
func NewFileSource(path, format string) (*Source, error) {
	s := &Source{name: path, path: path, format: format}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Link chains the sources in the given priority order and returns the first.
func Link(sources ...*Source) *Source {
	for i := 0; i+1 < len(sources); i++ {
		sources[i].mu.Lock()
		sources[i].next = sources[i+1]
		sources[i].mu.Unlock()
	}
	if len(sources) > 0 {
		sources[len(sources)-1].mu.Lock()
		sources[len(sources)-1].next = nil
		sources[len(sources)-1].mu.Unlock()
		return sources[0]
	}
	return nil
}

// Name returns the display name of the source, the file path for file sources.
func (s *Source) Name() string {
	return s.name
}

// Path returns the backing file path, "" for in-memory sources.
func (s *Source) Path() string {
	return s.path
}

// Root returns the current tree.
func (s *Source) Root() *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// Generation returns the counter bumped on every replacement of the tree.
func (s *Source) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Next returns the following source in priority order.
func (s *Source) Next() ConfigSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.next == nil {
		return nil
	}
	return s.next
}

// Dirty reports whether the tree was modified since it was loaded or flushed.
func (s *Source) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Replace swaps in a new tree, destroys the old one and bumps the generation.
// A closed source refuses the tree and the caller keeps ownership of it.
func (s *Source) Replace(root *Node) error {
	if err := root.check(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: source %s is closed", ErrInvalidHandle, s.name)
	}
	old := s.root
	s.root = root
	s.gen++
	s.dirty = false
	s.mu.Unlock()

	if old != nil && old != root {
		old.Destroy()
	}
	return nil
}

// touch records an in-place modification of the tree. Positions held by
// iterators may no longer be valid, so the generation moves as well.
func (s *Source) touch() {
	s.mu.Lock()
	s.gen++
	s.dirty = true
	s.mu.Unlock()
}

// Reload re-reads the backing file unconditionally.
func (s *Source) Reload() error {
	if s.path == "" {
		return fmt.Errorf("%w: %s", ErrReadOnly, s.name)
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, s.path)
		}
		return fmt.Errorf("failed to stat profile '%s': %w", s.path, err)
	}

	root, err := loadFile(s.path, s.format)
	if err != nil {
		return err
	}
	if err := s.Replace(root); err != nil {
		root.Destroy()
		return err
	}

	s.mu.Lock()
	s.modTime = info.ModTime()
	s.size = info.Size()
	s.mu.Unlock()
	return nil
}

// Refresh reloads the backing file only when its modification time or size
// changed since the last load. It reports whether a reload happened.
func (s *Source) Refresh() (bool, error) {
	if s.path == "" {
		return false, nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrProfileNotFound, s.path)
		}
		return false, fmt.Errorf("failed to stat profile '%s': %w", s.path, err)
	}

	s.mu.RLock()
	unchanged := info.ModTime().Equal(s.modTime) && info.Size() == s.size
	s.mu.RUnlock()
	if unchanged {
		return false, nil
	}
	return true, s.Reload()
}

// Flush writes a modified tree back to its file atomically.
func (s *Source) Flush() error {
	if s.path == "" {
		return fmt.Errorf("%w: %s", ErrReadOnly, s.name)
	}
	s.mu.RLock()
	dirty, root, format, closed := s.dirty, s.root, s.format, s.closed
	s.mu.RUnlock()
	if closed {
		return fmt.Errorf("%w: source %s is closed", ErrInvalidHandle, s.name)
	}
	if !dirty {
		return nil
	}

	if err := saveFile(s.path, format, root); err != nil {
		return err
	}

	info, err := os.Stat(s.path)
	s.mu.Lock()
	s.dirty = false
	if err == nil {
		s.modTime = info.ModTime()
		s.size = info.Size()
	}
	s.mu.Unlock()
	return nil
}

// close destroys the tree; the source is unusable afterwards.
func (s *Source) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	old := s.root
	s.root = nil
	s.gen++
	s.mu.Unlock()
	old.Destroy()
}

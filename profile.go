// FILE: lixenwraith/profile/profile.go
package profile

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Profile owns an ordered list of sources, first = highest priority, and
// answers merged queries over them.
type Profile struct {
	mu      sync.RWMutex
	sources []*Source
	logger  zerolog.Logger
	watcher *watcher
	closed  bool
}

// New creates a profile over the given sources in priority order.
func New(sources ...*Source) *Profile {
	Link(sources...)
	return &Profile{
		sources: sources,
		logger:  zerolog.Nop(),
	}
}

// SetLogger replaces the profile logger.
func (p *Profile) SetLogger(logger zerolog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// Sources returns the sources in priority order.
func (p *Profile) Sources() []*Source {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Source(nil), p.sources...)
}

// AddSource appends a source with the lowest priority.
func (p *Profile) AddSource(s *Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources = append(p.sources, s)
	Link(p.sources...)
}

// Iterator creates a merge iterator over the profile. Each call to Next runs
// under the profile read lock, so reloads triggered by the watcher happen
// between steps and are picked up through the source generation.
func (p *Profile) Iterator(path []string, flags IterFlags) (*Iterator, error) {
	p.mu.RLock()
	var first ConfigSource
	if len(p.sources) > 0 {
		first = p.sources[0]
	}
	logger := p.logger
	p.mu.RUnlock()

	it, err := NewIterator(first, path, flags)
	if err != nil {
		return nil, err
	}
	it.lock = p.mu.RLocker()
	it.logger = logger
	return it, nil
}

// Entries returns every merged entry for the path.
func (p *Profile) Entries(path []string, flags IterFlags) ([]Entry, error) {
	it, err := p.Iterator(path, flags)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []Entry
	for {
		e, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, e)
	}
}

// Values returns every relation value named by path, merged across sources.
func (p *Profile) Values(path ...string) ([]string, error) {
	entries, err := p.Entries(path, RelationsOnly)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRelation, strings.Join(path, "."))
	}
	values := make([]string, len(entries))
	for i, e := range entries {
		values[i] = e.Value
	}
	return values, nil
}

// Subsections returns the distinct subsection names of the section at path,
// in order of first appearance.
func (p *Profile) Subsections(path ...string) ([]string, error) {
	return p.names(path, SectionsOnly)
}

// RelationNames returns the distinct relation names of the section at path,
// in order of first appearance.
func (p *Profile) RelationNames(path ...string) ([]string, error) {
	return p.names(path, RelationsOnly)
}

func (p *Profile) names(path []string, kind IterFlags) ([]string, error) {
	entries, err := p.Entries(path, ListSection|kind)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(entries))
	var names []string
	for _, e := range entries {
		if !seen[e.Name] {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names, nil
}

// AddRelation adds a relation to the highest-priority source, creating the
// intermediate sections it needs.
func (p *Profile) AddRelation(path []string, value string) error {
	if len(path) == 0 || path[len(path)-1] == "" {
		return ErrBadPathSpec
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	src, err := p.writable()
	if err != nil {
		return err
	}

	section := src.Root()
	for _, name := range path[:len(path)-1] {
		next := section.firstSection(name)
		if next == nil {
			if next, err = section.AddSection(name); err != nil {
				return err
			}
		}
		section = next
	}
	if _, err := section.AddRelation(path[len(path)-1], value); err != nil {
		return err
	}
	src.touch()
	return nil
}

// ClearRelation removes every relation named by path from the
// highest-priority source.
func (p *Profile) ClearRelation(path []string) error {
	if len(path) == 0 {
		return ErrBadPathSpec
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	src, err := p.writable()
	if err != nil {
		return err
	}

	section, err := src.Root().Lookup(path[:len(path)-1]...)
	if err != nil {
		return err
	}
	if err := section.Remove(path[len(path)-1], false); err != nil {
		return err
	}
	src.touch()
	return nil
}

func (p *Profile) writable() (*Source, error) {
	if p.closed {
		return nil, ErrInvalidHandle
	}
	if len(p.sources) == 0 {
		return nil, ErrNoProfile
	}
	src := p.sources[0]
	if src.Root() == nil {
		return nil, ErrInvalidHandle
	}
	return src, nil
}

// Flush writes every modified file-backed source.
func (p *Profile) Flush() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrInvalidHandle
	}

	var errs []error
	for _, src := range p.sources {
		if src.Path() == "" || !src.Dirty() {
			continue
		}
		if err := src.Flush(); err != nil {
			p.logger.Error().Err(err).Str("event", "profile.flush_failed").Str("path", src.Path()).Msg("failed to write profile")
			errs = append(errs, err)
			continue
		}
		p.logger.Info().Str("event", "profile.flush").Str("path", src.Path()).Msg("profile written")
	}
	return errors.Join(errs...)
}

// Reload re-reads every file-backed source whose file changed on disk.
func (p *Profile) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrInvalidHandle
	}

	var errs []error
	for _, src := range p.sources {
		if err := p.refreshLocked(src, false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// reloadSource unconditionally reloads a single source and reports whether
// its tree was replaced.
func (p *Profile) reloadSource(src *Source) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false, ErrInvalidHandle
	}
	gen := src.Generation()
	err := p.refreshLocked(src, true)
	return src.Generation() != gen, err
}

func (p *Profile) refreshLocked(src *Source, force bool) error {
	if src.Path() == "" {
		return nil
	}
	p.logger.Debug().Str("event", "profile.reload_start").Str("path", src.Path()).Msg("checking profile file")

	var reloaded bool
	var err error
	if force {
		reloaded, err = true, src.Reload()
	} else {
		reloaded, err = src.Refresh()
	}
	if err != nil {
		p.logger.Error().Err(err).Str("event", "profile.reload_failed").Str("path", src.Path()).Msg("failed to reload profile")
		return err
	}
	if reloaded {
		p.logger.Info().
			Str("event", "profile.reload_success").
			Str("path", src.Path()).
			Uint64("generation", src.Generation()).
			Msg("profile reloaded")
	}
	return nil
}

// Close stops the watcher and releases every source tree. Nodes obtained
// from the profile are invalid afterwards, and reloads and edits fail with
// ErrInvalidHandle.
func (p *Profile) Close() {
	p.StopAutoUpdate()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, src := range p.sources {
		src.close()
	}
}

// File: lixenwraith/profile/convenience.go
package profile

import (
	"fmt"
	"io"
	"strings"
)

// Quick builds a profile from files in priority order plus optional struct
// defaults. Missing files are skipped and reported through an error wrapping
// ErrProfileNotFound alongside the usable profile.
func Quick(structDefaults any, files ...string) (*Profile, error) {
	return NewBuilder().
		WithFiles(files...).
		WithDefaults(structDefaults).
		Build()
}

// MustQuick is like Quick but panics on any error other than missing files
func MustQuick(structDefaults any, files ...string) *Profile {
	return NewBuilder().
		WithFiles(files...).
		WithDefaults(structDefaults).
		MustBuild()
}

// Validate checks that every required dot-separated path has a relation
func (p *Profile) Validate(required ...string) error {
	var missing []string
	for _, path := range required {
		if _, err := p.String(SplitPath(path)...); err != nil {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required relations: %s", ErrNoRelation, strings.Join(missing, ", "))
	}
	return nil
}

// Dump writes every source tree to w, in priority order.
func (p *Profile) Dump(w io.Writer) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, src := range p.sources {
		if _, err := fmt.Fprintf(w, "# %s (generation %d)\n", src.Name(), src.Generation()); err != nil {
			return err
		}
		root := src.Root()
		if root == nil {
			continue
		}
		if err := dumpSection(w, root, 0); err != nil {
			return err
		}
	}
	return nil
}

func dumpSection(w io.Writer, section *Node, depth int) error {
	indent := strings.Repeat("\t", depth)
	for c := section.first; c != nil; c = c.next {
		var err error
		if c.hasValue {
			_, err = fmt.Fprintf(w, "%s%s = %s\n", indent, c.name, c.value)
		} else {
			_, err = fmt.Fprintf(w, "%s%s = {\n", indent, c.name)
		}
		if err != nil {
			return err
		}
		if c.hasValue {
			continue
		}
		if err := dumpSection(w, c, depth+1); err != nil {
			return err
		}
		closing := "}"
		if c.final {
			closing = "}*"
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", indent, closing); err != nil {
			return err
		}
	}
	return nil
}

// Debug returns a formatted summary of the sources and their state
func (p *Profile) Debug() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Profile Debug Info:\n")
	for i, src := range p.sources {
		fmt.Fprintf(&b, "  [%d] %s\n", i, src.Name())
		fmt.Fprintf(&b, "    Generation: %d\n", src.Generation())
		fmt.Fprintf(&b, "    Dirty: %t\n", src.Dirty())
		if root := src.Root(); root != nil {
			fmt.Fprintf(&b, "    Verify: %v\n", root.Verify())
		}
	}
	b.WriteString(fmt.Sprintf("Watching: %t\n", p.watcher != nil))
	return b.String()
}

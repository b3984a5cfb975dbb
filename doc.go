// File: lixenwraith/profile/doc.go

// Package profile provides hierarchical configuration trees merged across an
// ordered list of independently reloadable sources.
//
// A tree is built from nodes. A section has no value and owns an ordered list
// of children; a relation holds a string value and has no children. Children
// stay sorted by name, and children sharing a name keep insertion order.
//
// Features:
//   - Sorted insertion, kind-filtered removal and invariant verification
//   - Resumable single-section scans for relations and subsections
//   - Merge iterator across sources honoring final sections
//   - Iteration that survives source reloads through generation counters
//   - TOML, YAML and JSON profile files, with atomic write-back
//   - fsnotify based auto reload with subscriber notifications
//   - Struct decoding through mapstructure
//
// Quick Start:
//
//	p, err := profile.NewBuilder().
//	    WithFiles("/etc/app/site.toml", "/etc/app/defaults.toml").
//	    Build()
//	if err != nil && !errors.Is(err, profile.ErrProfileNotFound) {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	kdcs, _ := p.Values("realms", "EXAMPLE.COM", "kdc")
//	forwardable, _ := p.Bool("libdefaults", "forwardable")
//
// Priority:
// The first source answers first. Merged lookups return the values of every
// source in order, unless a section on the path is marked final, in which
// case later sources are not consulted. In files a final section is written
// with a trailing asterisk on its table key, e.g. ["realms*"] in TOML.
//
// Thread Safety:
// Node trees are not synchronized. Queries and iterators obtained through a
// Profile run under its read lock, and reloads run under its write lock.
package profile

// FILE: lixenwraith/profile/discovery.go
package profile

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDiscoveryOptions selects the profile files a builder loads when none
// are named explicitly.
type FileDiscoveryOptions struct {
	// Name is the file base name, without extension.
	Name string

	// Extensions are tried in order within each directory.
	Extensions []string

	// Paths are searched before the current and XDG directories.
	Paths []string

	// EnvVar names a variable holding a list-separated set of files, like
	// KRB5_CONFIG. When set it replaces the search entirely.
	EnvVar string

	UseXDG        bool
	UseCurrentDir bool

	// All collects every match in search order instead of the first one.
	All bool
}

// DefaultDiscoveryOptions searches for every <app>.{toml,yaml,yml,json}
// unless <APP>_PROFILE lists the files.
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".toml", ".yaml", ".yml", ".json"},
		EnvVar:        strings.ToUpper(appName) + "_PROFILE",
		UseXDG:        true,
		UseCurrentDir: true,
		All:           true,
	}
}

// WithFileDiscovery appends the discovered files; earlier matches take
// priority over later ones.
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	return b.WithFiles(DiscoverFiles(opts)...)
}

// DiscoverFiles returns the profile files selected by opts. Finding nothing
// is not an error; the caller may run on defaults alone.
func DiscoverFiles(opts FileDiscoveryOptions) []string {
	if files := envFiles(opts.EnvVar); files != nil {
		return files
	}

	var found []string
	seen := make(map[string]bool)
	for _, dir := range searchDirs(opts) {
		for _, ext := range opts.Extensions {
			candidate := filepath.Join(dir, opts.Name+ext)
			if seen[candidate] || !isRegularFile(candidate) {
				continue
			}
			seen[candidate] = true
			found = append(found, candidate)
			if !opts.All {
				return found
			}
		}
	}
	return found
}

// envFiles splits the file list held by the named variable.
func envFiles(name string) []string {
	if name == "" {
		return nil
	}
	var files []string
	for _, path := range filepath.SplitList(os.Getenv(name)) {
		if path != "" {
			files = append(files, path)
		}
	}
	return files
}

func searchDirs(opts FileDiscoveryOptions) []string {
	dirs := append([]string(nil), opts.Paths...)
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}
	if opts.UseXDG {
		dirs = append(dirs, xdgConfigDirs(opts.Name)...)
	}
	return dirs
}

// xdgConfigDirs lists the per-user directory first, then the system ones.
func xdgConfigDirs(appName string) []string {
	var dirs []string
	switch {
	case os.Getenv("XDG_CONFIG_HOME") != "":
		dirs = append(dirs, filepath.Join(os.Getenv("XDG_CONFIG_HOME"), appName))
	case os.Getenv("HOME") != "":
		dirs = append(dirs, filepath.Join(os.Getenv("HOME"), ".config", appName))
	}

	system := filepath.SplitList(os.Getenv("XDG_CONFIG_DIRS"))
	if len(system) == 0 {
		system = []string{"/etc/xdg", "/etc"}
	}
	for _, dir := range system {
		dirs = append(dirs, filepath.Join(dir, appName))
	}
	return dirs
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

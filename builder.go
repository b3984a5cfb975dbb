// File: lixenwraith/profile/builder.go
package profile

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxParallelLoads bounds concurrent file parsing in Build.
const maxParallelLoads = 4

// ValidatorFunc defines the signature for a function that can validate a Profile instance.
// It receives the fully loaded *Profile and should return an error if validation fails.
type ValidatorFunc func(p *Profile) error

// Builder provides a fluent interface for building profiles
type Builder struct {
	files      []string
	format     string
	sources    []*Source
	defaults   any
	logger     zerolog.Logger
	watch      bool
	watchOpts  WatchOptions
	requireAny bool
	err        error
	validators []ValidatorFunc
}

// NewBuilder creates a new profile builder
func NewBuilder() *Builder {
	return &Builder{
		logger:     zerolog.Nop(),
		watchOpts:  DefaultWatchOptions(),
		validators: make([]ValidatorFunc, 0),
	}
}

// WithFile appends a profile file; earlier files take priority
func (b *Builder) WithFile(path string) *Builder {
	if path != "" {
		b.files = append(b.files, path)
	}
	return b
}

// WithFiles appends profile files in priority order
func (b *Builder) WithFiles(paths ...string) *Builder {
	for _, path := range paths {
		b.WithFile(path)
	}
	return b
}

// WithFormat forces the file format instead of detecting it
func (b *Builder) WithFormat(format string) *Builder {
	switch format {
	case "", "auto", FormatTOML, FormatJSON, FormatYAML:
		b.format = format
	default:
		b.err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return b
}

// WithSource appends an already constructed source after the files
func (b *Builder) WithSource(src *Source) *Builder {
	if src != nil {
		b.sources = append(b.sources, src)
	}
	return b
}

// WithDefaults sets a struct whose toml-tagged fields form the
// lowest-priority source
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = defaults
	return b
}

// WithLogger sets the structured logger
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAutoUpdate starts the file watcher once the profile is built
func (b *Builder) WithAutoUpdate(opts WatchOptions) *Builder {
	b.watch = true
	b.watchOpts = opts
	return b
}

// RequireFile makes Build fail when none of the files could be loaded
func (b *Builder) RequireFile() *Builder {
	b.requireAny = true
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the Profile. Missing files are skipped; in that case the
// profile is returned together with an error wrapping ErrProfileNotFound.
func (b *Builder) Build() (*Profile, error) {
	if b.err != nil {
		return nil, b.err
	}

	sources, missing, err := b.loadFiles()
	if err != nil {
		return nil, err
	}
	if b.requireAny && len(b.files) > 0 && len(sources) == 0 {
		return nil, errors.Join(missing...)
	}

	sources = append(sources, b.sources...)

	if b.defaults != nil {
		src, err := NewDefaultsSource(b.defaults)
		if err != nil {
			for _, s := range sources {
				s.close()
			}
			return nil, fmt.Errorf("failed to register defaults: %w", err)
		}
		sources = append(sources, src)
	}

	p := New(sources...)
	p.SetLogger(b.logger)

	for _, validator := range b.validators {
		if err := validator(p); err != nil {
			p.Close()
			return nil, fmt.Errorf("profile validation failed: %w", err)
		}
	}

	if b.watch {
		if err := p.AutoUpdateWithOptions(b.watchOpts); err != nil {
			p.Close()
			return nil, err
		}
	}

	return p, errors.Join(missing...)
}

// loadFiles parses the files concurrently and returns the loaded sources in
// priority order. Missing files are returned separately; any other failure
// releases everything loaded so far.
func (b *Builder) loadFiles() ([]*Source, []error, error) {
	loaded := make([]*Source, len(b.files))
	absent := make([]error, len(b.files))

	var g errgroup.Group
	g.SetLimit(maxParallelLoads)
	for i, path := range b.files {
		i, path := i, path
		g.Go(func() error {
			src, err := NewFileSource(path, b.format)
			if err != nil && !errors.Is(err, ErrProfileNotFound) {
				return err
			}
			loaded[i], absent[i] = src, err
			return nil
		})
	}
	waitErr := g.Wait()

	var sources []*Source
	var missing []error
	for i, src := range loaded {
		if src != nil {
			sources = append(sources, src)
			continue
		}
		if absent[i] != nil {
			b.logger.Warn().Str("event", "profile.file_missing").Str("path", b.files[i]).Msg("profile file not found, skipping")
			missing = append(missing, absent[i])
		}
	}

	if waitErr != nil {
		for _, s := range sources {
			s.close()
		}
		return nil, nil, waitErr
	}
	return sources, missing, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Profile {
	p, err := b.Build()
	if err != nil {
		// Missing files are not fatal; the profile runs on what was found.
		if !errors.Is(err, ErrProfileNotFound) || p == nil {
			panic(fmt.Sprintf("profile build failed: %v", err))
		}
	}
	return p
}

// BuildAndScan builds the profile and decodes the section at path into target
func (b *Builder) BuildAndScan(path []string, target any) (*Profile, error) {
	p, err := b.Build()
	if err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	if scanErr := p.Scan(path, target); scanErr != nil {
		p.Close()
		return nil, fmt.Errorf("failed to scan profile into target: %w", scanErr)
	}

	// ErrProfileNotFound or nil
	return p, err
}

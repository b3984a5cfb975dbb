// FILE: lixenwraith/profile/watch.go
package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Notification prefixes sent to Watch subscribers in addition to plain
// source paths for successful reloads.
const (
	NotifyReloadError = "reload_error:"
	NotifyDeleted     = "file_deleted:"
	NotifyTimeout     = "reload_timeout:"
)

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// Debounce duration to coalesce bursts of file events
	Debounce time.Duration

	// MaxWatchers limits concurrent watch channels
	MaxWatchers int

	// ReloadTimeout for file reload operations
	ReloadTimeout time.Duration
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:      DefaultDebounce,
		MaxWatchers:   DefaultMaxWatchers,
		ReloadTimeout: DefaultReloadTimeout,
	}
}

// watcher reloads file-backed sources when their files change on disk.
type watcher struct {
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	opts      WatchOptions
	fs        *fsnotify.Watcher
	sources   map[string]*Source
	timers    map[string]*time.Timer
	group     singleflight.Group
	reloads   sync.WaitGroup
	watchers  map[int64]chan string
	watcherID atomic.Int64
	watching  atomic.Bool
	done      chan struct{}
	logger    zerolog.Logger
}

// AutoUpdate enables automatic reloading of file-backed sources.
func (p *Profile) AutoUpdate() error {
	return p.AutoUpdateWithOptions(DefaultWatchOptions())
}

// AutoUpdateWithOptions enables automatic reloading with custom options. It
// is a no-op when already watching or when no source has a backing file.
func (p *Profile) AutoUpdateWithOptions(opts WatchOptions) error {
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrInvalidHandle
	}
	if p.watcher != nil {
		return nil
	}

	sources := make(map[string]*Source)
	for _, src := range p.sources {
		if src.Path() != "" {
			sources[filepath.Clean(src.Path())] = src
		}
	}
	if len(sources) == 0 {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Directories are watched so that editors replacing the file by rename
	// keep being observed.
	dirs := make(map[string]bool)
	for path := range sources {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return fmt.Errorf("watch profile directory '%s': %w", dir, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &watcher{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		fs:       fsw,
		sources:  sources,
		timers:   make(map[string]*time.Timer),
		watchers: make(map[int64]chan string),
		done:     make(chan struct{}),
		logger:   p.logger,
	}
	p.watcher = w
	w.watching.Store(true)
	go w.watchLoop(p)

	p.logger.Info().
		Str("event", "profile.watcher_started").
		Int("files", len(sources)).
		Msg("watching profile files for changes")
	return nil
}

// StopAutoUpdate stops automatic reloading and closes every Watch channel.
func (p *Profile) StopAutoUpdate() {
	p.mu.Lock()
	w := p.watcher
	p.watcher = nil
	p.mu.Unlock()

	if w != nil {
		w.stop()
	}
}

// Watch returns a channel that receives the path of every source reloaded by
// the watcher, plus prefixed notifications for failures. The channel is
// closed when watching stops. Without file sources the channel is closed
// immediately.
func (p *Profile) Watch() <-chan string {
	return p.WatchWithOptions(DefaultWatchOptions())
}

// WatchWithOptions starts the watcher with opts if needed and subscribes.
func (p *Profile) WatchWithOptions(opts WatchOptions) <-chan string {
	if err := p.AutoUpdateWithOptions(opts); err != nil {
		p.logger.Error().Err(err).Str("event", "profile.watcher_error").Msg("failed to start watcher")
	}

	p.mu.RLock()
	w := p.watcher
	p.mu.RUnlock()

	if w == nil {
		ch := make(chan string)
		close(ch)
		return ch
	}
	return w.subscribe()
}

// IsWatching returns true if auto-update is enabled
func (p *Profile) IsWatching() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.watcher != nil && p.watcher.watching.Load()
}

// WatcherCount returns the number of active watch channels
func (p *Profile) WatcherCount() int {
	p.mu.RLock()
	w := p.watcher
	p.mu.RUnlock()
	if w == nil {
		return 0
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.watchers)
}

// watchLoop is the main file watching loop
func (w *watcher) watchLoop(p *Profile) {
	defer close(w.done)
	defer w.watching.Store(false)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			src, tracked := w.sources[filepath.Clean(event.Name)]
			if !tracked {
				continue
			}
			w.logger.Debug().
				Str("event", "profile.file_changed").
				Str("op", event.Op.String()).
				Str("path", src.Path()).
				Msg("profile file changed")

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.notifyWatchers(NotifyDeleted + src.Path())
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.schedule(p, src)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error().
				Err(err).
				Str("event", "profile.watcher_error").
				Msg("profile watcher error")
		}
	}
}

// schedule debounces reloads per source.
func (w *watcher) schedule(p *Profile, src *Source) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[src.Path()]; ok {
		t.Stop()
	}
	w.timers[src.Path()] = time.AfterFunc(w.opts.Debounce, func() {
		w.performReload(p, src)
	})
}

// performReload reloads one source and notifies subscribers. It returns
// only once the shared reload has finished, so stop can wait for it.
func (w *watcher) performReload(p *Profile, src *Source) {
	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	w.reloads.Add(1)
	w.mu.Unlock()
	defer w.reloads.Done()

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	// Concurrent triggers for one path share a single reload
	done := w.group.DoChan(src.Path(), func() (any, error) {
		return p.reloadSource(src)
	})

	select {
	case r := <-done:
		if r.Err != nil {
			w.notifyWatchers(NotifyReloadError + src.Path())
			return
		}
		if changed, _ := r.Val.(bool); changed {
			w.notifyWatchers(src.Path())
		}
	case <-ctx.Done():
		if w.ctx.Err() == nil {
			w.notifyWatchers(NotifyTimeout + src.Path())
		}
		<-done
	}
}

// subscribe creates a new watcher channel
func (w *watcher) subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil || len(w.watchers) >= w.opts.MaxWatchers {
		ch := make(chan string)
		close(ch)
		return ch
	}

	ch := make(chan string, subscriberBuffer)
	id := w.watcherID.Add(1)
	w.watchers[id] = ch
	return ch
}

// notifyWatchers sends change notification to all subscribers
func (w *watcher) notifyWatchers(msg string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.watchers {
		select {
		case ch <- msg:
		default:
			// Subscriber is behind; drop rather than block the watcher
		}
	}
}

// stop terminates the watcher and closes subscriber channels
func (w *watcher) stop() {
	w.cancel()
	_ = w.fs.Close()

	select {
	case <-w.done:
	case <-time.After(ShutdownTimeout):
		w.logger.Warn().Str("event", "profile.watcher_stop_timeout").Msg("watch loop did not exit in time")
	}

	w.mu.Lock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	reloaded := make(chan struct{})
	go func() {
		w.reloads.Wait()
		close(reloaded)
	}()
	select {
	case <-reloaded:
	case <-time.After(ShutdownTimeout):
		w.logger.Warn().Str("event", "profile.reload_stop_timeout").Msg("in-flight reload did not finish in time")
	}

	w.mu.Lock()
	for id, ch := range w.watchers {
		close(ch)
		delete(w.watchers, id)
	}
	w.mu.Unlock()

	w.logger.Info().Str("event", "profile.watcher_stopped").Msg("profile watcher stopped")
}

// FILE: lixenwraith/profile/timing.go
package profile

import "time"

// Core timing constants for the profile file watcher.
const (
	ShutdownTimeout      = 100 * time.Millisecond // Graceful watcher termination window
	DefaultDebounce      = 500 * time.Millisecond // File change coalescence period
	DefaultReloadTimeout = 5 * time.Second        // Maximum duration for reload operations
)

// DefaultMaxWatchers bounds subscriber channels per profile.
const DefaultMaxWatchers = 100

// subscriberBuffer is the per-subscriber notification backlog; further
// notifications are dropped while it is full.
const subscriberBuffer = 10

// Package observability provides hooks for metrics, progress reporting and
// tracing.
//
// Libraries emit events through the registered hooks; nothing is recorded
// unless the application registers an implementation. This keeps depfetch's
// library packages free of any particular metrics or UI backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetAcquireHooks(progress)
//	    observability.SetHTTPHooks(&myHTTPHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Acquire().OnAcquireStart(ctx, coord)
//	// ... download ...
//	observability.Acquire().OnAcquireComplete(ctx, coord, repo, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Stage Hooks
// =============================================================================

// StageHooks receives events from the manager's stage transitions.
type StageHooks interface {
	// OnStageStart records that a stage (download, relocate, load) began for
	// count coordinates.
	OnStageStart(ctx context.Context, runID, stage string, count int)

	// OnStageComplete records the end of a stage batch.
	OnStageComplete(ctx context.Context, runID, stage string, duration time.Duration, err error)
}

// =============================================================================
// Acquire Hooks
// =============================================================================

// AcquireHooks receives events from single-artifact acquisition.
type AcquireHooks interface {
	// OnAcquireStart records that acquisition of coord began.
	OnAcquireStart(ctx context.Context, coord string)

	// OnCacheHit records that coord was already present and verified.
	OnCacheHit(ctx context.Context, coord string)

	// OnRepositoryFailure records one failed repository attempt.
	OnRepositoryFailure(ctx context.Context, coord, repo string, err error)

	// OnAcquireComplete records the outcome. repo is empty on cache hits and
	// failures.
	OnAcquireComplete(ctx context.Context, coord, repo string, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the descriptor cache.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopStageHooks is a no-op implementation of StageHooks.
type NoopStageHooks struct{}

func (NoopStageHooks) OnStageStart(context.Context, string, string, int)                    {}
func (NoopStageHooks) OnStageComplete(context.Context, string, string, time.Duration, error) {}

// NoopAcquireHooks is a no-op implementation of AcquireHooks.
type NoopAcquireHooks struct{}

func (NoopAcquireHooks) OnAcquireStart(context.Context, string)                    {}
func (NoopAcquireHooks) OnCacheHit(context.Context, string)                        {}
func (NoopAcquireHooks) OnRepositoryFailure(context.Context, string, string, error) {}
func (NoopAcquireHooks) OnAcquireComplete(context.Context, string, string, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	stageHooks   StageHooks   = NoopStageHooks{}
	acquireHooks AcquireHooks = NoopAcquireHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetStageHooks registers custom stage hooks.
func SetStageHooks(h StageHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		stageHooks = h
	}
}

// SetAcquireHooks registers custom acquisition hooks.
// This should be called once at startup before any downloads begin.
func SetAcquireHooks(h AcquireHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		acquireHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Stage returns the registered stage hooks.
func Stage() StageHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return stageHooks
}

// Acquire returns the registered acquisition hooks.
func Acquire() AcquireHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return acquireHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	stageHooks = NoopStageHooks{}
	acquireHooks = NoopAcquireHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}

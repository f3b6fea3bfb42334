// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register
// hooks at startup to receive events about installer invocations,
// metadata scans, and cache operations.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPullerHooks(&myPullerHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Puller().OnInstallStart(ctx, pkg)
//	// ... run installer ...
//	observability.Puller().OnInstallComplete(ctx, pkg, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PullerHooks receives events from the install/inspect pipeline.
type PullerHooks interface {
	// Install events
	OnInstallStart(ctx context.Context, pkg string)
	OnInstallComplete(ctx context.Context, pkg string, duration time.Duration, err error)

	// Metadata scan events
	OnScanComplete(ctx context.Context, pkg string, deps, topLevel, skipped int, err error)
}

// CacheHooks receives events from result-cache operations.
type CacheHooks interface {
	OnHit(ctx context.Context, key string)
	OnMiss(ctx context.Context, key string)
	OnStore(ctx context.Context, key string, err error)
}

// noopPullerHooks is the default no-op implementation.
type noopPullerHooks struct{}

func (noopPullerHooks) OnInstallStart(context.Context, string)                          {}
func (noopPullerHooks) OnInstallComplete(context.Context, string, time.Duration, error) {}
func (noopPullerHooks) OnScanComplete(context.Context, string, int, int, int, error)    {}

// noopCacheHooks is the default no-op implementation.
type noopCacheHooks struct{}

func (noopCacheHooks) OnHit(context.Context, string)          {}
func (noopCacheHooks) OnMiss(context.Context, string)         {}
func (noopCacheHooks) OnStore(context.Context, string, error) {}

var (
	mu          sync.RWMutex
	pullerHooks PullerHooks = noopPullerHooks{}
	cacheHooks  CacheHooks  = noopCacheHooks{}
)

// SetPullerHooks registers hooks for install/inspect events.
// Pass nil to restore the no-op default.
func SetPullerHooks(h PullerHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = noopPullerHooks{}
	}
	pullerHooks = h
}

// SetCacheHooks registers hooks for cache events.
// Pass nil to restore the no-op default.
func SetCacheHooks(h CacheHooks) {
	mu.Lock()
	defer mu.Unlock()
	if h == nil {
		h = noopCacheHooks{}
	}
	cacheHooks = h
}

// Puller returns the registered puller hooks.
func Puller() PullerHooks {
	mu.RLock()
	defer mu.RUnlock()
	return pullerHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	mu.RLock()
	defer mu.RUnlock()
	return cacheHooks
}

// Package observability lets a binary observe searches, cache traffic and
// outgoing HTTP without the libraries depending on a metrics or tracing
// backend.
//
// Each event category is an interface with a no-op default. main registers
// real implementations once at startup; library code fetches the current
// implementation at the call site:
//
//	observability.SetSearchHooks(logHooks{logger})
//
//	observability.Search().OnSearchStart(ctx, registry, query, offset)
//	// ... fetch, dedupe, enrich ...
//	observability.Search().OnPageLoaded(ctx, registry, fetched, admitted, duration, err)
//
// The CLI registers hooks that log at debug level, so -v shows every page,
// cache hit and upstream request.
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Search Hooks
// =============================================================================

// SearchHooks receives events from the discovery orchestrator.
type SearchHooks interface {
	// OnSearchStart fires before a page is requested. offset is 0 for a new
	// search and advances by the page size for each load-more.
	OnSearchStart(ctx context.Context, registry, query string, offset int)

	// OnPageLoaded fires once per page. fetched counts raw registry hits,
	// admitted counts survivors of dedup and the organization filter.
	OnPageLoaded(ctx context.Context, registry string, fetched, admitted int, duration time.Duration, err error)

	// OnEnrichComplete fires after the enrichment fan-out joins.
	OnEnrichComplete(ctx context.Context, attempted, enriched int, duration time.Duration)

	// OnRateLimited fires when an upstream reports quota exhaustion.
	OnRateLimited(ctx context.Context, source string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
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

// NoopSearchHooks is a no-op implementation of SearchHooks.
type NoopSearchHooks struct{}

func (NoopSearchHooks) OnSearchStart(context.Context, string, string, int)                   {}
func (NoopSearchHooks) OnPageLoaded(context.Context, string, int, int, time.Duration, error) {}
func (NoopSearchHooks) OnEnrichComplete(context.Context, int, int, time.Duration)            {}
func (NoopSearchHooks) OnRateLimited(context.Context, string)                                {}

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

// slot holds the registered implementation of one hook interface.
type slot[H any] struct {
	mu  sync.RWMutex
	cur H
	def H
}

func newSlot[H any](def H) *slot[H] {
	return &slot[H]{cur: def, def: def}
}

func (s *slot[H]) get() H {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// set ignores nil so a missing implementation never disables the default.
func (s *slot[H]) set(h H) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.cur = h
	s.mu.Unlock()
}

func (s *slot[H]) reset() {
	s.mu.Lock()
	s.cur = s.def
	s.mu.Unlock()
}

var (
	searchHooks = newSlot[SearchHooks](NoopSearchHooks{})
	cacheHooks  = newSlot[CacheHooks](NoopCacheHooks{})
	httpHooks   = newSlot[HTTPHooks](NoopHTTPHooks{})
)

// SetSearchHooks registers search hooks. Call it before the first search.
func SetSearchHooks(h SearchHooks) { searchHooks.set(h) }

// SetCacheHooks registers cache hooks.
func SetCacheHooks(h CacheHooks) { cacheHooks.set(h) }

// SetHTTPHooks registers HTTP client hooks.
func SetHTTPHooks(h HTTPHooks) { httpHooks.set(h) }

// Search returns the registered search hooks.
func Search() SearchHooks { return searchHooks.get() }

// Cache returns the registered cache hooks.
func Cache() CacheHooks { return cacheHooks.get() }

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks { return httpHooks.get() }

// Reset restores the no-op defaults. Tests use it to undo registrations.
func Reset() {
	searchHooks.reset()
	cacheHooks.reset()
	httpHooks.reset()
}

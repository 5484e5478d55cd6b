// Package reposcache implements the repository-handle cache shared by the
// VCS backend adapters. It mirrors vcsserver/base.py's RepoFactory: a
// repo handle is expensive enough to construct (opening a git/.hg/.svn
// directory, reading config) that repeated calls within the same logical
// "call context" should reuse it, but handles must not live forever since
// the underlying repository can change on disk between calls.
//
// Each backend region (git, hg, svn) gets its own bounded, TTL-expiring
// LRU so that traffic on one VCS type cannot evict cached handles for the
// others.
package reposcache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/rhodecode/vcsserver/internal/wire"
)

// DefaultSize and DefaultTTL match spec.md §4.3's defaults: 100 entries,
// each expiring 300 seconds after it was stored (lookups do not extend
// it); when full, the least recently used entry is evicted first.
const (
	DefaultSize = 100
	DefaultTTL  = 300 * time.Second
)

// cacheKey identifies one cached handle: the call context supplied by the
// caller (typically a request id) plus the repository path.
type cacheKey struct {
	Context string
	Path    string
}

// CreateFunc builds a fresh handle for path. It is invoked at most once
// per cache miss; concurrent misses for the same key race harmlessly (the
// loser's handle is closed immediately, see Factory.Get).
type CreateFunc[H wire.RepoHandle] func() (H, error)

// Factory caches handles of type H, keyed by (context, path). Construct
// one Factory per backend region with New and share it across all
// requests for that backend.
type Factory[H wire.RepoHandle] struct {
	region wire.Region
	cache  *expirable.LRU[cacheKey, H]
	mu     sync.Mutex // serializes the re-check and Add after a miss
}

// New builds a Factory with the given size and ttl. Evicted handles are
// closed via their Close method, releasing any OS resources they hold.
func New[H wire.RepoHandle](region wire.Region, size int, ttl time.Duration) *Factory[H] {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	f := &Factory[H]{region: region}
	f.cache = expirable.NewLRU[cacheKey, H](size, func(_ cacheKey, handle H) {
		_ = handle.Close()
	}, ttl)
	return f
}

// Get returns the cached handle for (context, path) if present and
// caching is requested, otherwise calls create and, if a context was
// supplied, stores the result for subsequent lookups.
//
// This is RepoFactory._repo: context+cache truthy means "use the cache",
// otherwise always construct fresh. An absent "cache" key counts as true. A construction race (two callers
// missing concurrently) is tolerated: the loser's freshly built handle is
// closed and the winner's cached value is returned instead, matching the
// at-most-one-live-handle-per-key invariant spec.md §5 requires.
func (f *Factory[H]) Get(args wire.Args, create CreateFunc[H]) (H, error) {
	path, err := args.Path()
	if err != nil {
		var zero H
		return zero, err
	}

	context, _ := args[wire.KeyContext].(string)
	useCache := true
	if v, ok := args["cache"].(bool); ok {
		useCache = v
	}

	if context == "" || !useCache {
		return create()
	}

	key := cacheKey{Context: context, Path: path}
	if handle, ok := f.cache.Get(key); ok {
		return handle, nil
	}

	handle, err := create()
	if err != nil {
		var zero H
		return zero, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.cache.Get(key); ok {
		// Lost the construction race: drop our handle, keep the winner's.
		_ = handle.Close()
		return existing, nil
	}
	f.cache.Add(key, handle)
	return handle, nil
}

// Len reports the number of live cached handles, for metrics/diagnostics.
func (f *Factory[H]) Len() int { return f.cache.Len() }

// Purge evicts every cached handle, closing each one.
func (f *Factory[H]) Purge() { f.cache.Purge() }

// Region returns the backend region this factory caches (git/hg/svn).
func (f *Factory[H]) Region() wire.Region { return f.region }

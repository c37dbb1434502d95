package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
	"github.com/angelmondragon/bookverse-backend/pkg/metrics"
)

const defaultMaxConcurrent = 8

// CacheOptions tunes the product cache.
type CacheOptions struct {
	// FetchTimeout bounds a single source fetch. Zero disables the bound.
	FetchTimeout  time.Duration
	MaxConcurrent int
	Metrics       *metrics.CatalogMetrics
	Logger        *logger.Logger
	Now           func() time.Time
}

// Cache memoizes resolved products and coalesces concurrent fetches per key.
// Failed fetches are never stored.
type Cache struct {
	source        Source
	group         singleflight.Group
	fetchTimeout  time.Duration
	maxConcurrent int
	metrics       *metrics.CatalogMetrics
	logg          *logger.Logger
	now           func() time.Time

	mu          sync.RWMutex
	entries     map[Key]*Product
	generations map[Key]uint64
}

// NewCache builds a cache in front of the provided source.
func NewCache(source Source, opts CacheOptions) *Cache {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache{
		source:        source,
		fetchTimeout:  opts.FetchTimeout,
		maxConcurrent: maxConcurrent,
		metrics:       opts.Metrics,
		logg:          logg,
		now:           now,
		entries:       make(map[Key]*Product),
		generations:   make(map[Key]uint64),
	}
}

// Peek returns the memoized product without fetching. ok is false while the
// product is still pending or once its promotion window has moved on.
func (c *Cache) Peek(key Key) (*Product, bool) {
	c.mu.RLock()
	product, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && product.Stale(c.now()) {
		return nil, false
	}
	return product, ok
}

// Resolve returns the product for key, fetching it at most once across
// concurrent callers. Cancelling ctx abandons the wait only; the shared fetch
// completes for the remaining waiters and its result is still memoized.
func (c *Cache) Resolve(ctx context.Context, key Key) (*Product, error) {
	if product, ok := c.Peek(key); ok {
		c.metrics.IncLookup(metrics.LookupHit)
		return product, nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.fetch(ctx, key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			c.metrics.IncLookup(metrics.LookupFailed)
			return nil, lookupFailed(key, res.Err)
		}
		if res.Shared {
			c.metrics.IncLookup(metrics.LookupShared)
		} else {
			c.metrics.IncLookup(metrics.LookupMiss)
		}
		return res.Val.(*Product), nil
	case <-ctx.Done():
		return nil, lookupFailed(key, ctx.Err())
	}
}

func (c *Cache) fetch(ctx context.Context, key Key) (*Product, error) {
	gen := c.generation(key)

	fetchCtx := context.WithoutCancel(ctx)
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, c.fetchTimeout)
		defer cancel()
	}

	product, err := c.source.GetProduct(fetchCtx, key)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	c.store(key, gen, product)
	return product, nil
}

func (c *Cache) generation(key Key) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generations[key]
}

// store memoizes product unless key was invalidated after the fetch began.
func (c *Cache) store(key Key, gen uint64, product *Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key] != gen {
		return
	}
	c.entries[key] = product
}

// ResolveAll resolves the distinct keys concurrently. The returned map holds an
// entry only for keys that failed; one failure does not cancel the others.
func (c *Cache) ResolveAll(ctx context.Context, keys []Key) map[Key]error {
	failures := make(map[Key]error)
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(c.maxConcurrent)

	seen := make(map[Key]struct{}, len(keys))
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := c.Peek(key); ok {
			c.metrics.IncLookup(metrics.LookupHit)
			continue
		}

		key := key
		g.Go(func() error {
			if _, err := c.Resolve(ctx, key); err != nil {
				mu.Lock()
				failures[key] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

// Invalidate drops the memoized entries for keys. A fetch already in flight for
// an invalidated key stays the only fetch for that key: it still answers every
// waiter, including callers that join after the invalidation, but its result
// is not stored.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
		c.generations[key]++
	}
}

func lookupFailed(key Key, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeCatalogLookupFailed, err, "resolve product "+key.String())
}

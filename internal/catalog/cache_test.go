package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/metrics"
)

type stubSource struct {
	calls   atomic.Int32
	getFunc func(ctx context.Context, key Key) (*Product, error)
}

func (s *stubSource) GetProduct(ctx context.Context, key Key) (*Product, error) {
	s.calls.Add(1)
	return s.getFunc(ctx, key)
}

func bookKey(id string) Key {
	return Key{ID: id, Type: enums.ProductTypePrimary}
}

func testProduct(key Key) *Product {
	return &Product{
		ID:            key.ID,
		Type:          key.Type,
		Title:         "Book " + key.ID,
		UnitPrice:     decimal.RequireFromString("12.50"),
		StockQuantity: 3,
	}
}

func TestResolveMemoizes(t *testing.T) {
	src := &stubSource{getFunc: func(_ context.Context, key Key) (*Product, error) {
		return testProduct(key), nil
	}}
	cache := NewCache(src, CacheOptions{})

	_, ok := cache.Peek(bookKey("1"))
	require.False(t, ok)

	first, err := cache.Resolve(context.Background(), bookKey("1"))
	require.NoError(t, err)
	second, err := cache.Resolve(context.Background(), bookKey("1"))
	require.NoError(t, err)

	require.Same(t, first, second)
	require.EqualValues(t, 1, src.calls.Load())

	peeked, ok := cache.Peek(bookKey("1"))
	require.True(t, ok)
	require.Equal(t, "Book 1", peeked.Title)
}

func TestPeekTreatsEndedPromotionAsStale(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ends := now.Add(time.Hour)
	src := &stubSource{getFunc: func(_ context.Context, key Key) (*Product, error) {
		p := testProduct(key)
		p.ValidUntil = &ends
		return p, nil
	}}
	var clock atomic.Int64
	clock.Store(now.UnixNano())
	cache := NewCache(src, CacheOptions{Now: func() time.Time { return time.Unix(0, clock.Load()).UTC() }})

	_, err := cache.Resolve(context.Background(), bookKey("3"))
	require.NoError(t, err)
	_, ok := cache.Peek(bookKey("3"))
	require.True(t, ok)

	clock.Store(ends.UnixNano())
	_, ok = cache.Peek(bookKey("3"))
	require.False(t, ok)

	_, err = cache.Resolve(context.Background(), bookKey("3"))
	require.NoError(t, err)
	require.EqualValues(t, 2, src.calls.Load())
}

func TestResolveSharesOneFetchAcrossConcurrentCallers(t *testing.T) {
	release := make(chan struct{})
	src := &stubSource{getFunc: func(_ context.Context, key Key) (*Product, error) {
		<-release
		return testProduct(key), nil
	}}
	reg := prometheus.NewRegistry()
	cache := NewCache(src, CacheOptions{Metrics: metrics.NewCatalogMetrics(reg)})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Product, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := cache.Resolve(context.Background(), bookKey("7"))
			if err == nil {
				results[i] = p
			}
		}(i)
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, src.calls.Load())
	for _, p := range results {
		require.NotNil(t, p)
		require.Equal(t, "7", p.ID)
	}
	require.Equal(t, float64(callers), gatherLookups(t, reg))
}

func TestResolveFailureIsNotCached(t *testing.T) {
	fail := atomic.Bool{}
	fail.Store(true)
	src := &stubSource{getFunc: func(_ context.Context, key Key) (*Product, error) {
		if fail.Load() {
			return nil, errors.New("catalog down")
		}
		return testProduct(key), nil
	}}
	cache := NewCache(src, CacheOptions{})

	_, err := cache.Resolve(context.Background(), bookKey("3"))
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCatalogLookupFailed))
	_, ok := cache.Peek(bookKey("3"))
	require.False(t, ok)

	fail.Store(false)
	p, err := cache.Resolve(context.Background(), bookKey("3"))
	require.NoError(t, err)
	require.Equal(t, "3", p.ID)
	require.EqualValues(t, 2, src.calls.Load())
}

func TestResolveCancelledCallerLeavesFetchRunning(t *testing.T) {
	release := make(chan struct{})
	src := &stubSource{getFunc: func(ctx context.Context, key Key) (*Product, error) {
		select {
		case <-release:
			return testProduct(key), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	cache := NewCache(src, CacheOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := cache.Resolve(ctx, bookKey("9"))
		errCh <- err
	}()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	err := <-errCh
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCatalogLookupFailed))
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		_, ok := cache.Peek(bookKey("9"))
		return ok
	}, time.Second, time.Millisecond)
	require.EqualValues(t, 1, src.calls.Load())
}

func TestInvalidateDuringFetchDoesNotRepopulate(t *testing.T) {
	release := make(chan struct{})
	src := &stubSource{getFunc: func(_ context.Context, key Key) (*Product, error) {
		<-release
		return testProduct(key), nil
	}}
	cache := NewCache(src, CacheOptions{})

	done := make(chan *Product, 1)
	go func() {
		p, _ := cache.Resolve(context.Background(), bookKey("4"))
		done <- p
	}()

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	cache.Invalidate(bookKey("4"))
	close(release)

	p := <-done
	require.NotNil(t, p)
	_, ok := cache.Peek(bookKey("4"))
	require.False(t, ok)

	_, err := cache.Resolve(context.Background(), bookKey("4"))
	require.NoError(t, err)
	require.EqualValues(t, 2, src.calls.Load())
	_, ok = cache.Peek(bookKey("4"))
	require.True(t, ok)
}

func TestInvalidateKeepsOneFetchInFlight(t *testing.T) {
	release := make(chan struct{})
	src := &stubSource{getFunc: func(_ context.Context, key Key) (*Product, error) {
		<-release
		return testProduct(key), nil
	}}
	cache := NewCache(src, CacheOptions{})

	results := make(chan *Product, 2)
	resolve := func() {
		p, _ := cache.Resolve(context.Background(), bookKey("6"))
		results <- p
	}
	go resolve()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	cache.Invalidate(bookKey("6"))
	go resolve()
	require.Never(t, func() bool { return src.calls.Load() > 1 }, 50*time.Millisecond, time.Millisecond)

	close(release)
	require.NotNil(t, <-results)
	require.NotNil(t, <-results)
	require.EqualValues(t, 1, src.calls.Load())
	_, ok := cache.Peek(bookKey("6"))
	require.False(t, ok)
}

func TestInvalidateDropsCachedEntry(t *testing.T) {
	src := &stubSource{getFunc: func(_ context.Context, key Key) (*Product, error) {
		return testProduct(key), nil
	}}
	cache := NewCache(src, CacheOptions{})

	_, err := cache.Resolve(context.Background(), bookKey("5"))
	require.NoError(t, err)
	cache.Invalidate(bookKey("5"))
	_, ok := cache.Peek(bookKey("5"))
	require.False(t, ok)
}

func TestResolveHonoursFetchTimeout(t *testing.T) {
	src := &stubSource{getFunc: func(ctx context.Context, _ Key) (*Product, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	cache := NewCache(src, CacheOptions{FetchTimeout: 20 * time.Millisecond})

	_, err := cache.Resolve(context.Background(), bookKey("8"))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCatalogLookupFailed))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolveAllReportsOnlyFailures(t *testing.T) {
	src := &stubSource{getFunc: func(_ context.Context, key Key) (*Product, error) {
		if key.ID == "bad" {
			return nil, errors.New("boom")
		}
		return testProduct(key), nil
	}}
	cache := NewCache(src, CacheOptions{MaxConcurrent: 2})

	keys := []Key{bookKey("1"), bookKey("bad"), bookKey("1"), {ID: "1", Type: enums.ProductTypeBundle}}
	failures := cache.ResolveAll(context.Background(), keys)

	require.Len(t, failures, 1)
	require.Contains(t, failures, bookKey("bad"))
	_, ok := cache.Peek(bookKey("1"))
	require.True(t, ok)
	_, ok = cache.Peek(Key{ID: "1", Type: enums.ProductTypeBundle})
	require.True(t, ok)
	require.EqualValues(t, 3, src.calls.Load())
}

func gatherLookups(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, mf := range mfs {
		if mf.GetName() != "catalog_cache_lookups_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

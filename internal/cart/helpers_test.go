package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

type fakeResolver struct {
	mu       sync.Mutex
	catalog  map[catalog.Key]*catalog.Product
	resolved map[catalog.Key]*catalog.Product
}

func newFakeResolver(products ...*catalog.Product) *fakeResolver {
	r := &fakeResolver{
		catalog:  make(map[catalog.Key]*catalog.Product),
		resolved: make(map[catalog.Key]*catalog.Product),
	}
	for _, p := range products {
		r.catalog[p.Key()] = p
	}
	return r
}

func (r *fakeResolver) Peek(key catalog.Key) (*catalog.Product, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.resolved[key]
	return p, ok
}

func (r *fakeResolver) ResolveAll(_ context.Context, keys []catalog.Key) map[catalog.Key]error {
	r.mu.Lock()
	defer r.mu.Unlock()
	failures := make(map[catalog.Key]error)
	for _, key := range keys {
		p, ok := r.catalog[key]
		if !ok {
			failures[key] = errors.New("catalog unavailable")
			continue
		}
		r.resolved[key] = p
	}
	return failures
}

func product(id string, price string, stock int) *catalog.Product {
	return &catalog.Product{
		ID:            id,
		Type:          enums.ProductTypePrimary,
		Title:         "Book " + id,
		UnitPrice:     decimal.RequireFromString(price),
		StockQuantity: stock,
	}
}

func primary(id string) catalog.Key {
	return catalog.Key{ID: id, Type: enums.ProductTypePrimary}
}

func testPolicy() PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingFee:       decimal.NewFromInt(5),
	}
}

type failingStore struct {
	loadErr error
	saveErr error
	saves   int
}

func (s *failingStore) Load(context.Context, string) ([]Line, error) {
	return nil, s.loadErr
}

func (s *failingStore) Save(context.Context, string, []Line) error {
	s.saves++
	return s.saveErr
}

// flakyStore wraps a MemoryStore and fails every call while down is set, or
// only saves while saveDown is set.
type flakyStore struct {
	*MemoryStore
	mu       sync.Mutex
	down     bool
	saveDown bool
}

func (s *flakyStore) setDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

func (s *flakyStore) setSaveDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveDown = down
}

func (s *flakyStore) state() (down, saveDown bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down, s.saveDown
}

func (s *flakyStore) Load(ctx context.Context, cartID string) ([]Line, error) {
	if down, _ := s.state(); down {
		return nil, errors.New("connection refused")
	}
	return s.MemoryStore.Load(ctx, cartID)
}

func (s *flakyStore) Save(ctx context.Context, cartID string, lines []Line) error {
	if down, saveDown := s.state(); down || saveDown {
		return errors.New("connection refused")
	}
	return s.MemoryStore.Save(ctx, cartID, lines)
}

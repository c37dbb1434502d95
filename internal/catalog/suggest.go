package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/angelmondragon/bookverse-backend/pkg/metrics"
)

const defaultSuggestionLimit = 8

type suggestionSlot struct {
	latest *Latest[[]Product]
	refs   int
}

// Suggester answers type-ahead searches. Each client gets its own Latest so a
// new keystroke supersedes that client's previous lookup.
type Suggester struct {
	searcher Searcher
	limit    int
	metrics  *metrics.CatalogMetrics

	mu    sync.Mutex
	slots map[string]*suggestionSlot
}

// NewSuggester builds a Suggester returning at most limit products.
func NewSuggester(searcher Searcher, limit int, m *metrics.CatalogMetrics) *Suggester {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	return &Suggester{
		searcher: searcher,
		limit:    limit,
		metrics:  m,
		slots:    make(map[string]*suggestionSlot),
	}
}

// Suggest searches for query on behalf of clientID. An empty clientID never
// supersedes anything. Returns ErrSuperseded when a newer call for the same
// client started first.
func (s *Suggester) Suggest(ctx context.Context, clientID, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Product{}, nil
	}

	search := func(ctx context.Context) ([]Product, error) {
		return s.searcher.SearchProducts(ctx, query, s.limit)
	}
	if clientID == "" {
		return NewLatest[[]Product](s.metrics).Run(ctx, search)
	}

	slot := s.acquire(clientID)
	defer s.release(clientID, slot)
	return slot.latest.Run(ctx, search)
}

func (s *Suggester) acquire(clientID string) *suggestionSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[clientID]
	if !ok {
		slot = &suggestionSlot{latest: NewLatest[[]Product](s.metrics)}
		s.slots[clientID] = slot
	}
	slot.refs++
	return slot
}

func (s *Suggester) release(clientID string, slot *suggestionSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(s.slots, clientID)
	}
}

func (s *Suggester) activeClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

type stubSearcher struct {
	searchFunc func(ctx context.Context, query string, limit int) ([]Product, error)
}

func (s stubSearcher) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	return s.searchFunc(ctx, query, limit)
}

func TestSuggestSupersedesPerClient(t *testing.T) {
	started := make(chan struct{}, 1)
	searcher := stubSearcher{searchFunc: func(ctx context.Context, query string, _ int) ([]Product, error) {
		if query == "go" {
			started <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []Product{{ID: "1", Type: enums.ProductTypePrimary, Title: "The Go Programming Language"}}, nil
	}}
	s := NewSuggester(searcher, 5, nil)

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Suggest(context.Background(), "client-1", "go")
		firstErr <- err
	}()
	<-started

	products, err := s.Suggest(context.Background(), "client-1", "go prog")
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.ErrorIs(t, <-firstErr, ErrSuperseded)
	require.Zero(t, s.activeClients())
}

func TestSuggestEmptyQueryShortCircuits(t *testing.T) {
	s := NewSuggester(stubSearcher{searchFunc: func(context.Context, string, int) ([]Product, error) {
		t.Fatal("searcher should not be called")
		return nil, nil
	}}, 0, nil)

	products, err := s.Suggest(context.Background(), "", "   ")
	require.NoError(t, err)
	require.Empty(t, products)
}

func TestSuggestPassesLimit(t *testing.T) {
	var gotLimit int
	s := NewSuggester(stubSearcher{searchFunc: func(_ context.Context, _ string, limit int) ([]Product, error) {
		gotLimit = limit
		return []Product{}, nil
	}}, 0, nil)

	_, err := s.Suggest(context.Background(), "", "dune")
	require.NoError(t, err)
	require.Equal(t, defaultSuggestionLimit, gotLimit)
}

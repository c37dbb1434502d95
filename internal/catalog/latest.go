package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/angelmondragon/bookverse-backend/pkg/metrics"
)

// ErrSuperseded is returned by Latest.Run when a newer lookup started before
// this one finished.
var ErrSuperseded = errors.New("lookup superseded by a newer request")

// Latest runs lookups for an evolving query and keeps only the newest one.
// Starting a lookup cancels the previous in-flight one; a result that lands
// after a newer lookup began is discarded.
type Latest[T any] struct {
	metrics *metrics.CatalogMetrics

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewLatest builds an empty Latest. m may be nil.
func NewLatest[T any](m *metrics.CatalogMetrics) *Latest[T] {
	return &Latest[T]{metrics: m}
}

// Run executes fn as the current lookup.
func (l *Latest[T]) Run(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	mine := l.seq
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.mu.Unlock()

	value, err := fn(runCtx)

	l.mu.Lock()
	current := l.seq == mine
	if current {
		l.cancel = nil
	}
	l.mu.Unlock()
	cancel()

	if !current {
		l.metrics.IncSuperseded()
		var zero T
		return zero, ErrSuperseded
	}
	return value, err
}

// InFlight reports whether a lookup is running.
func (l *Latest[T]) InFlight() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
)

type cartSlot struct {
	mu     sync.Mutex
	refs   int
	engine *Engine
}

// Service serializes mutations per cart and answers every call with a fresh
// snapshot. Carts are reloaded from the store on each call. A degraded cart
// keeps its in-memory engine and retries the store on every call until it
// answers again.
type Service struct {
	deps EngineDeps
	logg *logger.Logger

	mu    sync.Mutex
	slots map[string]*cartSlot
}

// NewService builds the cart service.
func NewService(deps EngineDeps) *Service {
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
		deps.Logger = logg
	}
	return &Service{
		deps:  deps,
		logg:  logg,
		slots: make(map[string]*cartSlot),
	}
}

// Snapshot reconciles and prices the cart without mutating it.
func (s *Service) Snapshot(ctx context.Context, cartID string) (Snapshot, error) {
	return s.mutate(ctx, cartID, nil)
}

func (s *Service) AddLine(ctx context.Context, cartID, productID string, productType enums.ProductType, qty int) (Snapshot, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, e *Engine) error {
		return e.AddLine(ctx, productID, productType, qty)
	})
}

func (s *Service) SetQuantity(ctx context.Context, cartID string, key catalog.Key, qty int) (Snapshot, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, e *Engine) error {
		return e.SetQuantity(ctx, key, qty)
	})
}

func (s *Service) SetSelected(ctx context.Context, cartID string, key catalog.Key, selected bool) (Snapshot, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, e *Engine) error {
		return e.SetSelected(ctx, key, selected)
	})
}

func (s *Service) SelectAll(ctx context.Context, cartID string, selected bool) (Snapshot, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, e *Engine) error {
		return e.SelectAll(ctx, selected)
	})
}

func (s *Service) RemoveLine(ctx context.Context, cartID string, key catalog.Key) (Snapshot, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, e *Engine) error {
		return e.RemoveLine(ctx, key)
	})
}

func (s *Service) RemoveSelected(ctx context.Context, cartID string) (Snapshot, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, e *Engine) error {
		return e.RemoveSelected(ctx)
	})
}

func (s *Service) Clear(ctx context.Context, cartID string) (Snapshot, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, e *Engine) error {
		return e.Clear(ctx)
	})
}

// Checkout hands the priced selection to place while the cart is locked and
// removes the placed lines once place succeeds. The selection must be fully
// resolved and non-empty.
func (s *Service) Checkout(ctx context.Context, cartID string, place func(context.Context, Snapshot) error) (Snapshot, error) {
	return s.mutate(ctx, cartID, func(ctx context.Context, e *Engine) error {
		e.Reconcile(ctx)
		snap := e.Snapshot()
		if len(snap.Selected) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "no cart lines selected")
		}
		if snap.SelectionResolving() {
			return pkgerrors.New(pkgerrors.CodeCatalogLookupFailed, "selected products are still resolving")
		}
		if err := place(ctx, snap); err != nil {
			return err
		}
		keys := make([]catalog.Key, 0, len(snap.Selected))
		for _, line := range snap.Selected {
			keys = append(keys, line.Key())
		}
		return e.RemoveKeys(ctx, keys)
	})
}

func (s *Service) mutate(ctx context.Context, cartID string, fn func(context.Context, *Engine) error) (Snapshot, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	ctx = s.logg.WithCartID(ctx, cartID)

	slot := s.acquire(cartID)
	defer s.release(cartID, slot)

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.engine != nil && slot.engine.Degraded() {
		slot.engine.Resync(ctx)
	} else {
		slot.engine = NewEngine(ctx, cartID, s.deps)
	}
	if fn != nil {
		if err := fn(ctx, slot.engine); err != nil {
			return Snapshot{}, err
		}
	}
	slot.engine.Reconcile(ctx)
	return slot.engine.Snapshot(), nil
}

func (s *Service) acquire(cartID string) *cartSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[cartID]
	if !ok {
		slot = &cartSlot{}
		s.slots[cartID] = slot
	}
	slot.refs++
	return slot
}

func (s *Service) release(cartID string, slot *cartSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot.refs--
	if slot.refs > 0 {
		return
	}
	// refs is zero so nothing else can touch slot.engine. An empty degraded
	// cart holds nothing worth keeping over a fresh load.
	if slot.engine != nil && slot.engine.Degraded() && len(slot.engine.lines) > 0 {
		return
	}
	delete(s.slots, cartID)
}

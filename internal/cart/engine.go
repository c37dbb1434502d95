package cart

import (
	"context"

	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
)

// Resolver is the slice of the product cache the engine depends on.
type Resolver interface {
	Peek(key catalog.Key) (*catalog.Product, bool)
	ResolveAll(ctx context.Context, keys []catalog.Key) map[catalog.Key]error
}

// EngineDeps are the collaborators shared by every engine.
type EngineDeps struct {
	Store    Store
	Resolver Resolver
	Policy   PricingPolicy
	Logger   *logger.Logger
}

// Engine owns the line set of a single cart. It is not safe for concurrent
// use; Service serializes access per cart.
type Engine struct {
	cartID   string
	deps     EngineDeps
	logg     *logger.Logger
	lines    []Line
	degraded bool
	// loaded is false while the stored line set has never been read.
	loaded bool
}

// NewEngine loads the cart from the store. A load failure leaves the engine
// empty and degraded rather than failing.
func NewEngine(ctx context.Context, cartID string, deps EngineDeps) *Engine {
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	e := &Engine{cartID: cartID, deps: deps, logg: logg}

	lines, err := deps.Store.Load(ctx, cartID)
	if err != nil {
		e.degrade(ctx, "cart.load_failed", err)
		return e
	}
	e.lines = lines
	e.loaded = true
	return e
}

// Resync retries the store for a degraded engine. A cart that never loaded
// merges its in-memory lines into the stored set; either way the result is
// saved and the engine leaves degraded mode once the store accepts it.
func (e *Engine) Resync(ctx context.Context) {
	if !e.degraded {
		return
	}
	if !e.loaded {
		stored, err := e.deps.Store.Load(ctx, e.cartID)
		if err != nil {
			return
		}
		e.lines = mergeLines(stored, e.lines)
		e.loaded = true
	}
	if err := e.deps.Store.Save(ctx, e.cartID, e.lines); err != nil {
		return
	}
	e.degraded = false
	e.logg.Info(e.logg.WithField(ctx, "cart_id", e.cartID), "cart.store_recovered")
}

// Degraded reports whether the engine is running without the store.
func (e *Engine) Degraded() bool {
	return e.degraded
}

// Lines returns a copy of the current line set in insertion order.
func (e *Engine) Lines() []Line {
	return cloneLines(e.lines)
}

// AddLine merges qty into an existing line or appends a new selected line.
func (e *Engine) AddLine(ctx context.Context, productID string, productType enums.ProductType, qty int) error {
	key := catalog.Key{ID: productID, Type: productType}
	if err := validateKey(key); err != nil {
		return err
	}
	if err := validateQuantity(qty); err != nil {
		return err
	}

	if i := e.indexOf(key); i >= 0 {
		existing := e.lines[i].Quantity
		if qty > MaxLineQuantity-existing {
			return quantityOverLimit(existing + qty)
		}
		e.lines[i].Quantity += qty
	} else {
		e.lines = append(e.lines, Line{
			ProductID:   productID,
			ProductType: productType,
			Quantity:    qty,
			Selected:    true,
		})
	}
	e.persist(ctx)
	return nil
}

// SetQuantity replaces the quantity of an existing line.
func (e *Engine) SetQuantity(ctx context.Context, key catalog.Key, qty int) error {
	if err := validateQuantity(qty); err != nil {
		return err
	}
	i := e.indexOf(key)
	if i < 0 {
		return lineNotFound(key)
	}
	e.lines[i].Quantity = qty
	e.persist(ctx)
	return nil
}

// SetSelected toggles a single line.
func (e *Engine) SetSelected(ctx context.Context, key catalog.Key, selected bool) error {
	i := e.indexOf(key)
	if i < 0 {
		return lineNotFound(key)
	}
	e.lines[i].Selected = selected
	e.persist(ctx)
	return nil
}

// SelectAll sets the selection flag on every line.
func (e *Engine) SelectAll(ctx context.Context, selected bool) error {
	for i := range e.lines {
		e.lines[i].Selected = selected
	}
	e.persist(ctx)
	return nil
}

// RemoveLine deletes a single line.
func (e *Engine) RemoveLine(ctx context.Context, key catalog.Key) error {
	i := e.indexOf(key)
	if i < 0 {
		return lineNotFound(key)
	}
	e.lines = append(e.lines[:i], e.lines[i+1:]...)
	e.persist(ctx)
	return nil
}

// RemoveSelected deletes every line whose stored selection flag is set.
func (e *Engine) RemoveSelected(ctx context.Context) error {
	kept := e.lines[:0]
	for _, line := range e.lines {
		if !line.Selected {
			kept = append(kept, line)
		}
	}
	e.lines = kept
	e.persist(ctx)
	return nil
}

// RemoveKeys deletes the lines with the given keys. Unknown keys are ignored.
func (e *Engine) RemoveKeys(ctx context.Context, keys []catalog.Key) error {
	drop := make(map[catalog.Key]struct{}, len(keys))
	for _, key := range keys {
		drop[key] = struct{}{}
	}
	kept := e.lines[:0]
	for _, line := range e.lines {
		if _, ok := drop[line.Key()]; !ok {
			kept = append(kept, line)
		}
	}
	e.lines = kept
	e.persist(ctx)
	return nil
}

// Clear empties the cart.
func (e *Engine) Clear(ctx context.Context) error {
	e.lines = nil
	e.persist(ctx)
	return nil
}

// Reconcile resolves every product referenced by the cart. Failures leave the
// line unresolved for the next attempt and are only logged.
func (e *Engine) Reconcile(ctx context.Context) map[catalog.Key]error {
	if len(e.lines) == 0 {
		return nil
	}
	keys := make([]catalog.Key, 0, len(e.lines))
	for _, line := range e.lines {
		keys = append(keys, line.Key())
	}

	failures := e.deps.Resolver.ResolveAll(ctx, keys)
	for key, err := range failures {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"cart_id": e.cartID,
			"product": key.String(),
			"error":   err.Error(),
		})
		e.logg.Warn(logCtx, "cart.product_unresolved")
	}
	return failures
}

// Snapshot prices the cart from cached product data only.
func (e *Engine) Snapshot() Snapshot {
	snap := BuildSnapshot(e.lines, e.deps.Resolver.Peek, e.deps.Policy)
	snap.Degraded = e.degraded
	return snap
}

// mergeLines folds offline lines into the stored set. Quantities add up to
// the line limit and stored selection flags win.
func mergeLines(stored, offline []Line) []Line {
	merged := cloneLines(stored)
	for _, line := range offline {
		found := false
		for i := range merged {
			if merged[i].Key() != line.Key() {
				continue
			}
			merged[i].Quantity = min(merged[i].Quantity+line.Quantity, MaxLineQuantity)
			found = true
			break
		}
		if !found {
			merged = append(merged, line)
		}
	}
	return merged
}

func (e *Engine) indexOf(key catalog.Key) int {
	for i, line := range e.lines {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

func (e *Engine) persist(ctx context.Context) {
	if e.degraded {
		return
	}
	if err := e.deps.Store.Save(ctx, e.cartID, e.lines); err != nil {
		e.degrade(ctx, "cart.save_failed", err)
	}
}

func (e *Engine) degrade(ctx context.Context, msg string, err error) {
	e.degraded = true
	logCtx := e.logg.WithFields(ctx, map[string]any{
		"cart_id": e.cartID,
		"error":   err.Error(),
	})
	e.logg.Warn(logCtx, msg)
}

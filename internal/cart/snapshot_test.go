package cart

import (
	"context"
	"math/rand"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

func newTestEngine(t *testing.T, resolver *fakeResolver) *Engine {
	t.Helper()
	return NewEngine(context.Background(), "cart-1", EngineDeps{
		Store:    NewMemoryStore(),
		Resolver: resolver,
		Policy:   testPolicy(),
	})
}

func TestSnapshotSingleLineBelowThreshold(t *testing.T) {
	engine := newTestEngine(t, newFakeResolver(product("42", "20.00", 5)))
	ctx := context.Background()

	require.NoError(t, engine.AddLine(ctx, "42", enums.ProductTypePrimary, 1))
	engine.Reconcile(ctx)
	snap := engine.Snapshot()

	require.True(t, snap.Subtotal.Equal(decimal.RequireFromString("20.00")))
	require.True(t, snap.ShippingFee.Equal(decimal.NewFromInt(5)))
	require.True(t, snap.Discount.IsZero())
	require.True(t, snap.Total.Equal(decimal.NewFromInt(25)))
	require.Equal(t, 1, snap.SelectedCount)
	require.Equal(t, 1, snap.TotalCount)
	require.False(t, snap.Resolving)
}

func TestSnapshotNeverFetches(t *testing.T) {
	engine := newTestEngine(t, newFakeResolver(product("1", "12.00", 5)))
	require.NoError(t, engine.AddLine(context.Background(), "1", enums.ProductTypePrimary, 2))

	snap := engine.Snapshot()
	require.True(t, snap.Resolving)
	require.Equal(t, LineResolving, snap.Lines[0].Status)
	require.True(t, snap.Subtotal.IsZero())
	require.True(t, snap.ShippingFee.Equal(decimal.NewFromInt(5)))
	require.Equal(t, 1, snap.SelectedCount)
	require.True(t, snap.SelectionResolving())

	_, ok := engine.deps.Resolver.Peek(primary("1"))
	require.False(t, ok)
}

func TestSnapshotOutOfStockLineIsEffectivelyDeselected(t *testing.T) {
	engine := newTestEngine(t, newFakeResolver(product("1", "30.00", 0), product("2", "25.00", 2)))
	ctx := context.Background()
	require.NoError(t, engine.AddLine(ctx, "1", enums.ProductTypePrimary, 1))
	require.NoError(t, engine.AddLine(ctx, "2", enums.ProductTypePrimary, 2))
	engine.Reconcile(ctx)

	snap := engine.Snapshot()
	require.True(t, snap.Lines[0].OutOfStock)
	require.False(t, snap.Lines[0].Selected)
	require.True(t, engine.Lines()[0].Selected)
	require.Equal(t, 1, snap.SelectedCount)
	require.True(t, snap.Subtotal.Equal(decimal.NewFromInt(50)))
	require.True(t, snap.ShippingFee.IsZero())
	require.True(t, snap.Total.Equal(decimal.NewFromInt(50)))
}

func TestSnapshotAppliesPromotions(t *testing.T) {
	promo := product("9", "40.00", 4)
	promo.PromotionPercent = decimal.NewFromInt(25)
	engine := newTestEngine(t, newFakeResolver(promo))
	ctx := context.Background()
	require.NoError(t, engine.AddLine(ctx, "9", enums.ProductTypePrimary, 2))
	engine.Reconcile(ctx)

	snap := engine.Snapshot()
	require.True(t, snap.Subtotal.Equal(decimal.NewFromInt(80)))
	require.True(t, snap.Discount.Equal(decimal.NewFromInt(20)))
	require.True(t, snap.ShippingFee.IsZero())
	require.True(t, snap.Total.Equal(decimal.NewFromInt(60)))
	require.True(t, snap.Lines[0].Discount.Equal(decimal.NewFromInt(20)))
}

func TestSnapshotTotalNeverDrifts(t *testing.T) {
	var products []*catalog.Product
	for i := 1; i <= 6; i++ {
		p := product(strconv.Itoa(i), strconv.Itoa(i*7)+".35", i%3)
		p.PromotionPercent = decimal.NewFromInt(int64(i * 5 % 30))
		products = append(products, p)
	}
	resolver := newFakeResolver(products...)
	engine := newTestEngine(t, resolver)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 300; step++ {
		id := strconv.Itoa(rng.Intn(7) + 1)
		key := primary(id)
		switch rng.Intn(6) {
		case 0, 1:
			_ = engine.AddLine(ctx, id, enums.ProductTypePrimary, rng.Intn(3)+1)
		case 2:
			_ = engine.SetQuantity(ctx, key, rng.Intn(4))
		case 3:
			_ = engine.SetSelected(ctx, key, rng.Intn(2) == 0)
		case 4:
			_ = engine.RemoveLine(ctx, key)
		case 5:
			engine.Reconcile(ctx)
		}

		snap := engine.Snapshot()
		subtotal := decimal.Zero
		for _, line := range engine.Lines() {
			p, ok := resolver.Peek(line.Key())
			if !ok || !line.Selected || !p.InStock() {
				continue
			}
			subtotal = subtotal.Add(p.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		policy := testPolicy()
		discount := policy.Discount(subtotal, snap.Selected)
		want := subtotal.Sub(discount).Add(policy.Shipping(subtotal))

		require.True(t, snap.Subtotal.Equal(subtotal), "step %d subtotal", step)
		require.True(t, snap.Total.Equal(want), "step %d total", step)
		require.True(t, snap.Total.Equal(snap.Subtotal.Sub(snap.Discount).Add(snap.ShippingFee)), "step %d identity", step)
		require.False(t, snap.Discount.IsNegative())
		require.True(t, snap.Discount.LessThanOrEqual(snap.Subtotal))
	}
}

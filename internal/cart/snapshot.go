package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

// LineStatus tells clients whether a line has product data yet.
type LineStatus string

const (
	LineResolved  LineStatus = "RESOLVED"
	LineResolving LineStatus = "RESOLVING"
)

// LineView joins a line with its resolved product. Selected is the effective
// selection: out-of-stock lines are never selected, whatever was stored.
type LineView struct {
	ProductID   string            `json:"productId"`
	ProductType enums.ProductType `json:"productType"`
	Quantity    int               `json:"quantity"`
	Selected    bool              `json:"selected"`
	Status      LineStatus        `json:"status"`
	OutOfStock  bool              `json:"outOfStock"`
	Product     *catalog.Product  `json:"product,omitempty"`
	Amount      decimal.Decimal   `json:"amount"`
	Discount    decimal.Decimal   `json:"discount"`
}

// Key returns the catalog address of the line.
func (v LineView) Key() catalog.Key {
	return catalog.Key{ID: v.ProductID, Type: v.ProductType}
}

// Snapshot is an immutable pricing view of a cart.
type Snapshot struct {
	Lines         []LineView      `json:"lines"`
	Selected      []LineView      `json:"selected"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	Total         decimal.Decimal `json:"total"`
	SelectedCount int             `json:"selectedCount"`
	TotalCount    int             `json:"totalCount"`
	Resolving     bool            `json:"resolving"`
	Degraded      bool            `json:"degraded"`
}

// ProductLookup is a non-fetching product read.
type ProductLookup func(catalog.Key) (*catalog.Product, bool)

// BuildSnapshot derives a snapshot from lines and whatever products lookup
// already holds. It never fetches and every total is recomputed from inputs.
func BuildSnapshot(lines []Line, lookup ProductLookup, policy PricingPolicy) Snapshot {
	snap := Snapshot{
		Lines:      make([]LineView, 0, len(lines)),
		Selected:   []LineView{},
		Subtotal:   decimal.Zero,
		TotalCount: len(lines),
	}

	for _, line := range lines {
		view := LineView{
			ProductID:   line.ProductID,
			ProductType: line.ProductType,
			Quantity:    line.Quantity,
			Selected:    line.Selected,
			Status:      LineResolving,
			Amount:      decimal.Zero,
			Discount:    decimal.Zero,
		}
		if product, ok := lookup(line.Key()); ok && product != nil {
			view.Status = LineResolved
			view.Product = product
			view.OutOfStock = !product.InStock()
			view.Selected = line.Selected && !view.OutOfStock
			view.Amount = product.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
			view.Discount = LineDiscount(product.UnitPrice, product.PromotionPercent, line.Quantity)
		} else {
			snap.Resolving = true
		}

		snap.Lines = append(snap.Lines, view)
		if view.Selected {
			snap.Selected = append(snap.Selected, view)
			snap.Subtotal = snap.Subtotal.Add(view.Amount)
		}
	}

	snap.SelectedCount = len(snap.Selected)
	snap.Discount = policy.Discount(snap.Subtotal, snap.Selected)
	snap.ShippingFee = policy.Shipping(snap.Subtotal)
	snap.Total = snap.Subtotal.Sub(snap.Discount).Add(snap.ShippingFee)
	return snap
}

// SelectionResolving reports whether any selected line still lacks product data.
func (s Snapshot) SelectionResolving() bool {
	for _, line := range s.Selected {
		if line.Status != LineResolved {
			return true
		}
	}
	return false
}

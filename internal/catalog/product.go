package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

// Key addresses one catalog product. IDs are only unique within a type.
type Key struct {
	ID   string            `json:"productId"`
	Type enums.ProductType `json:"productType"`
}

// String renders the key as "TYPE:id".
func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Type, k.ID)
}

// Product is a resolved catalog entry. Values handed out by the cache are shared
// and must be treated as read-only.
type Product struct {
	ID               string            `json:"productId"`
	Type             enums.ProductType `json:"productType"`
	Title            string            `json:"title"`
	UnitPrice        decimal.Decimal   `json:"unitPrice"`
	ImageRef         string            `json:"imageRef"`
	StockQuantity    int               `json:"stockQuantity"`
	PromotionPercent decimal.Decimal   `json:"promotionPercent"`
	PromotionEndsAt  *time.Time        `json:"promotionEndsAt,omitempty"`
	// ValidUntil is when the applied promotion next changes. The cache stops
	// serving the product from that instant on.
	ValidUntil *time.Time `json:"-"`
}

// Stale reports whether the product's promotion state may have changed by now.
func (p Product) Stale(now time.Time) bool {
	return p.ValidUntil != nil && !now.Before(*p.ValidUntil)
}

// Key returns the address of the product.
func (p Product) Key() Key {
	return Key{ID: p.ID, Type: p.Type}
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}

// Source fetches products from the catalog of record.
type Source interface {
	GetProduct(ctx context.Context, key Key) (*Product, error)
}

// Searcher backs free-text suggestions.
type Searcher interface {
	SearchProducts(ctx context.Context, query string, limit int) ([]Product, error)
}

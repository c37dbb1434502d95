package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

// Product is a catalog entry addressable by (id, product_type). The promotion
// applies only while it is not paused and now falls in [starts_at, ends_at);
// a nil bound is open.
type Product struct {
	ID                int64             `gorm:"column:id;primaryKey;autoIncrement:false"`
	Type              enums.ProductType `gorm:"column:product_type;type:varchar(16);primaryKey"`
	Title             string            `gorm:"column:title;not null"`
	Price             decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null"`
	ImageRef          string            `gorm:"column:image_ref;not null;default:''"`
	StockQuantity     int               `gorm:"column:stock_quantity;not null;default:0"`
	PromotionPercent  decimal.Decimal   `gorm:"column:promotion_percent;type:numeric(5,2);not null;default:0"`
	PromotionStartsAt *time.Time        `gorm:"column:promotion_starts_at"`
	PromotionEndsAt   *time.Time        `gorm:"column:promotion_ends_at"`
	PromotionPaused   bool              `gorm:"column:promotion_paused;not null;default:false"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

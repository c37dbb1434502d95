package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

// Order is a checked-out set of immutable items with exactly one payment.
type Order struct {
	ID           int64             `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID   string            `gorm:"column:customer_id;not null;index"`
	Status       enums.OrderStatus `gorm:"column:status;type:varchar(32);not null"`
	Address      string            `gorm:"column:address;not null"`
	Subtotal     decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount     decimal.Decimal   `gorm:"column:discount;type:numeric(12,2);not null"`
	ShippingFee  decimal.Decimal   `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	Total        decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	CancelReason *string           `gorm:"column:cancel_reason"`
	Items        []OrderItem       `gorm:"foreignKey:OrderID"`
	Payment      *Payment          `gorm:"foreignKey:OrderID"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is a point-in-time copy of a priced cart line.
type OrderItem struct {
	ID          int64             `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID     int64             `gorm:"column:order_id;not null;index"`
	ProductID   int64             `gorm:"column:product_id;not null"`
	ProductType enums.ProductType `gorm:"column:product_type;type:varchar(16);not null"`
	Title       string            `gorm:"column:title;not null"`
	UnitPrice   decimal.Decimal   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Discount    decimal.Decimal   `gorm:"column:discount;type:numeric(12,2);not null"`
	Quantity    int               `gorm:"column:quantity;not null"`
}

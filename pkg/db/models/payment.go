package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

// Payment is the settlement record attached 1:1 to an order.
type Payment struct {
	ID            int64               `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID       int64               `gorm:"column:order_id;not null;uniqueIndex"`
	Method        enums.PaymentMethod `gorm:"column:method;type:varchar(32);not null"`
	Status        enums.PaymentStatus `gorm:"column:status;type:varchar(16);not null"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	BankRef       *string             `gorm:"column:bank_ref"`
	GatewayTxnNo  *string             `gorm:"column:gateway_txn_no"`
	FailureReason *string             `gorm:"column:failure_reason"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

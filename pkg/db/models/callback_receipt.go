package models

import "time"

// CallbackReceipt is the durable idempotency marker for one gateway callback
// instance. The stored outcome is replayed verbatim on redelivery.
type CallbackReceipt struct {
	PaymentID    int64     `gorm:"column:payment_id;primaryKey;autoIncrement:false"`
	Fingerprint  string    `gorm:"column:fingerprint;type:varchar(64);primaryKey"`
	ResponseCode string    `gorm:"column:response_code;type:varchar(8);not null"`
	OutcomeKind  string    `gorm:"column:outcome_kind;type:varchar(16);not null;default:''"`
	OrderID      int64     `gorm:"column:order_id;not null;default:0"`
	Reason       string    `gorm:"column:reason;not null;default:''"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

package outbox

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

// OrderCreatedEvent is emitted at checkout.
type OrderCreatedEvent struct {
	OrderID    int64               `json:"order_id"`
	CustomerID string              `json:"customer_id"`
	Status     enums.OrderStatus   `json:"status"`
	Method     enums.PaymentMethod `json:"method"`
	Total      decimal.Decimal     `json:"total"`
}

// OrderStatusChangedEvent drives customer notifications for every applied transition.
type OrderStatusChangedEvent struct {
	OrderID      int64             `json:"order_id"`
	CustomerID   string            `json:"customer_id"`
	From         enums.OrderStatus `json:"from"`
	To           enums.OrderStatus `json:"to"`
	CancelReason string            `json:"cancel_reason,omitempty"`
}

// OrderAddressChangedEvent records a new delivery address on a pending order.
type OrderAddressChangedEvent struct {
	OrderID    int64  `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Address    string `json:"address"`
}

// RefundRequestedEvent records the refund obligation raised by cancelling a settled gateway order.
type RefundRequestedEvent struct {
	OrderID        int64           `json:"order_id"`
	PaymentID      int64           `json:"payment_id"`
	CustomerID     string          `json:"customer_id"`
	Amount         decimal.Decimal `json:"amount"`
	ExpectedBy     time.Time       `json:"expected_by"`
	ExpectedWithin string          `json:"expected_within"`
}

// PaymentReconciledEvent is emitted once per applied gateway callback.
type PaymentReconciledEvent struct {
	PaymentID    int64               `json:"payment_id"`
	OrderID      int64               `json:"order_id"`
	Status       enums.PaymentStatus `json:"status"`
	ResponseCode string              `json:"response_code"`
	BankRef      string              `json:"bank_ref,omitempty"`
}

// PaymentRefundedEvent is emitted when staff complete a refund.
type PaymentRefundedEvent struct {
	PaymentID int64           `json:"payment_id"`
	OrderID   int64           `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
}

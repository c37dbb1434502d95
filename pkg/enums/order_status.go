package enums

import "fmt"

// OrderStatus tracks an order through fulfillment.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusDelivering     OrderStatus = "DELIVERING"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusReturned       OrderStatus = "RETURNED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusDelivering,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
}

// OrderStatuses returns every known status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Badge maps every status to its display badge.
func (s OrderStatus) Badge() UIBadge {
	switch s {
	case OrderStatusPendingPayment:
		return UIBadge{Tone: ToneWarning, Label: "Awaiting payment"}
	case OrderStatusPending:
		return UIBadge{Tone: ToneWarning, Label: "Pending"}
	case OrderStatusConfirmed:
		return UIBadge{Tone: ToneInfo, Label: "Confirmed"}
	case OrderStatusProcessing:
		return UIBadge{Tone: ToneInfo, Label: "Processing"}
	case OrderStatusDelivering:
		return UIBadge{Tone: ToneAccent, Label: "Delivering"}
	case OrderStatusDelivered:
		return UIBadge{Tone: ToneSuccess, Label: "Delivered"}
	case OrderStatusCancelled:
		return UIBadge{Tone: ToneDanger, Label: "Cancelled"}
	case OrderStatusReturned:
		return UIBadge{Tone: ToneNeutral, Label: "Returned"}
	}
	return UIBadge{Tone: ToneNeutral, Label: string(s)}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

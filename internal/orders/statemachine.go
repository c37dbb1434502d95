package orders

import (
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
)

// Allowed returns the statuses an order may move to from the given status.
// Terminal statuses return nil.
func Allowed(from enums.OrderStatus) []enums.OrderStatus {
	switch from {
	case enums.OrderStatusPendingPayment:
		return []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusCancelled}
	case enums.OrderStatusPending:
		return []enums.OrderStatus{enums.OrderStatusConfirmed, enums.OrderStatusCancelled}
	case enums.OrderStatusConfirmed:
		return []enums.OrderStatus{enums.OrderStatusProcessing, enums.OrderStatusCancelled}
	case enums.OrderStatusProcessing:
		return []enums.OrderStatus{enums.OrderStatusDelivering, enums.OrderStatusCancelled}
	case enums.OrderStatusDelivering:
		return []enums.OrderStatus{enums.OrderStatusDelivered}
	case enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusReturned:
		return nil
	}
	return nil
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status enums.OrderStatus) bool {
	return len(Allowed(status)) == 0
}

// CanTransition reports whether to is reachable from from in one step.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range Allowed(from) {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidateTransition fails with INVALID_TRANSITION, carrying the allowed set,
// unless to is reachable from from.
func ValidateTransition(from, to enums.OrderStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	allowed := Allowed(from)
	if allowed == nil {
		allowed = []enums.OrderStatus{}
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order status transition not allowed").
		WithDetails(map[string]any{
			"from":    from,
			"to":      to,
			"allowed": allowed,
		})
}

// AllowedPayment returns the payment statuses reachable from from.
func AllowedPayment(from enums.PaymentStatus) []enums.PaymentStatus {
	switch from {
	case enums.PaymentStatusPending, enums.PaymentStatusFailed:
		return []enums.PaymentStatus{enums.PaymentStatusSuccess, enums.PaymentStatusFailed}
	case enums.PaymentStatusSuccess:
		return []enums.PaymentStatus{enums.PaymentStatusRefunding}
	case enums.PaymentStatusRefunding:
		return []enums.PaymentStatus{enums.PaymentStatusRefunded}
	case enums.PaymentStatusRefunded:
		return nil
	}
	return nil
}

// ValidatePaymentTransition fails with STATE_CONFLICT unless the payment move
// is permitted.
func ValidatePaymentTransition(from, to enums.PaymentStatus) error {
	for _, candidate := range AllowedPayment(from) {
		if candidate == to {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status transition not allowed").
		WithDetails(map[string]any{
			"from": from,
			"to":   to,
		})
}

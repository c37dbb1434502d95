package orders

import (
	"testing"

	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
)

var transitionTable = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPendingPayment: {enums.OrderStatusPending, enums.OrderStatusCancelled},
	enums.OrderStatusPending:        {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed:      {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:     {enums.OrderStatusDelivering, enums.OrderStatusCancelled},
	enums.OrderStatusDelivering:     {enums.OrderStatusDelivered},
}

func TestValidateTransitionMatchesTable(t *testing.T) {
	for _, from := range enums.OrderStatuses() {
		for _, to := range enums.OrderStatuses() {
			want := false
			for _, allowed := range transitionTable[from] {
				if allowed == to {
					want = true
				}
			}
			err := ValidateTransition(from, to)
			if want && err != nil {
				t.Fatalf("%s -> %s should be allowed: %v", from, to, err)
			}
			if !want {
				if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
					t.Fatalf("%s -> %s should be rejected, got %v", from, to, err)
				}
			}
		}
	}
}

func TestInvalidTransitionCarriesAllowedSet(t *testing.T) {
	err := ValidateTransition(enums.OrderStatusProcessing, enums.OrderStatusDelivered)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	allowed, ok := details["allowed"].([]enums.OrderStatus)
	if !ok || len(allowed) != 2 || allowed[0] != enums.OrderStatusDelivering || allowed[1] != enums.OrderStatusCancelled {
		t.Fatalf("unexpected allowed set %v", details["allowed"])
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled, enums.OrderStatusReturned} {
		if !IsTerminal(status) {
			t.Fatalf("%s should be terminal", status)
		}
	}
	if IsTerminal(enums.OrderStatusDelivering) {
		t.Fatal("delivering is not terminal")
	}
}

func TestPaymentTransitions(t *testing.T) {
	tests := []struct {
		from, to enums.PaymentStatus
		ok       bool
	}{
		{enums.PaymentStatusPending, enums.PaymentStatusSuccess, true},
		{enums.PaymentStatusPending, enums.PaymentStatusFailed, true},
		{enums.PaymentStatusFailed, enums.PaymentStatusSuccess, true},
		{enums.PaymentStatusSuccess, enums.PaymentStatusRefunding, true},
		{enums.PaymentStatusSuccess, enums.PaymentStatusRefunded, false},
		{enums.PaymentStatusRefunding, enums.PaymentStatusRefunded, true},
		{enums.PaymentStatusPending, enums.PaymentStatusRefunding, false},
		{enums.PaymentStatusRefunded, enums.PaymentStatusSuccess, false},
	}
	for _, tt := range tests {
		err := ValidatePaymentTransition(tt.from, tt.to)
		if tt.ok && err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tt.from, tt.to, err)
		}
		if !tt.ok && !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
			t.Fatalf("%s -> %s should be a state conflict, got %v", tt.from, tt.to, err)
		}
	}
}

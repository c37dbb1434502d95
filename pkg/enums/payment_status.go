package enums

import "fmt"

// PaymentStatus tracks settlement of an order's payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunding PaymentStatus = "REFUNDING"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusSuccess,
	PaymentStatusFailed,
	PaymentStatusRefunding,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (s PaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PaymentStatus.
func (s PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Badge maps every status to its display badge.
func (s PaymentStatus) Badge() UIBadge {
	switch s {
	case PaymentStatusPending:
		return UIBadge{Tone: ToneWarning, Label: "Unpaid"}
	case PaymentStatusSuccess:
		return UIBadge{Tone: ToneSuccess, Label: "Paid"}
	case PaymentStatusFailed:
		return UIBadge{Tone: ToneDanger, Label: "Payment failed"}
	case PaymentStatusRefunding:
		return UIBadge{Tone: ToneAccent, Label: "Refund in progress"}
	case PaymentStatusRefunded:
		return UIBadge{Tone: ToneNeutral, Label: "Refunded"}
	}
	return UIBadge{Tone: ToneNeutral, Label: string(s)}
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

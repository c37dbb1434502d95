package orders

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bookverse-backend/pkg/db/models"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	"github.com/angelmondragon/bookverse-backend/pkg/pagination"
)

// Actor identifies who asked for an operation.
type Actor struct {
	UserID string
	Role   enums.UserRole
}

// IsStaff reports whether the actor operates the back office.
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// ItemInput is one priced line copied into a new order.
type ItemInput struct {
	ProductID   string
	ProductType enums.ProductType
	Title       string
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	Quantity    int
}

// CreateOrderInput carries the checkout data. Totals are recomputed from Items.
type CreateOrderInput struct {
	CustomerID  string
	Address     string
	Method      enums.PaymentMethod
	Items       []ItemInput
	ShippingFee decimal.Decimal
}

// TransitionInput requests a single status move.
type TransitionInput struct {
	OrderID int64
	To      enums.OrderStatus
	Reason  string
	Actor   Actor
}

// CancelInput is a customer's request to cancel their own order.
type CancelInput struct {
	OrderID int64
	Reason  string
	Actor   Actor
}

// ChangeAddressInput replaces the delivery address of a pending order.
type ChangeAddressInput struct {
	OrderID int64
	Address string
	Actor   Actor
}

// ListInput selects one page of orders. CustomerID is ignored for customers,
// who only ever list their own orders.
type ListInput struct {
	Actor      Actor
	CustomerID string
	Status     enums.OrderStatus
	Page       pagination.Params
}

// OrderFilter narrows a repository listing. Zero values match everything.
type OrderFilter struct {
	CustomerID string
	Status     enums.OrderStatus
}

// RefundNotice is the obligation raised when a settled gateway order is cancelled.
type RefundNotice struct {
	OrderID        int64           `json:"orderId"`
	PaymentID      int64           `json:"paymentId"`
	Amount         decimal.Decimal `json:"amount"`
	ExpectedWithin string          `json:"expectedWithin"`
	ExpectedBy     time.Time       `json:"expectedBy"`
}

// TransitionResult describes an applied transition.
type TransitionResult struct {
	Order        *OrderDTO         `json:"order"`
	From         enums.OrderStatus `json:"from"`
	To           enums.OrderStatus `json:"to"`
	RefundNotice *RefundNotice     `json:"refundNotice,omitempty"`
}

type ItemDTO struct {
	ProductID   string            `json:"productId"`
	ProductType enums.ProductType `json:"productType"`
	Title       string            `json:"title"`
	UnitPrice   decimal.Decimal   `json:"unitPrice"`
	Discount    decimal.Decimal   `json:"discount"`
	Quantity    int               `json:"quantity"`
}

type PaymentDTO struct {
	ID          int64               `json:"id"`
	Method      enums.PaymentMethod `json:"method"`
	Status      enums.PaymentStatus `json:"status"`
	StatusBadge enums.UIBadge       `json:"statusBadge"`
	Amount      decimal.Decimal     `json:"amount"`
	PaidAt      *time.Time          `json:"paidAt,omitempty"`
	BankRef     *string             `json:"bankRef,omitempty"`
}

// OrderDTO is the client view of an order.
type OrderDTO struct {
	ID                 int64               `json:"id"`
	CustomerID         string              `json:"customerId"`
	Status             enums.OrderStatus   `json:"status"`
	StatusBadge        enums.UIBadge       `json:"statusBadge"`
	AllowedTransitions []enums.OrderStatus `json:"allowedTransitions"`
	Address            string              `json:"address"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	Discount           decimal.Decimal     `json:"discount"`
	ShippingFee        decimal.Decimal     `json:"shippingFee"`
	Total              decimal.Decimal     `json:"total"`
	CancelReason       *string             `json:"cancelReason,omitempty"`
	Items              []ItemDTO           `json:"items"`
	Payment            *PaymentDTO         `json:"payment,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// OrderSummaryDTO is one row of an order listing.
type OrderSummaryDTO struct {
	ID            int64               `json:"id"`
	CustomerID    string              `json:"customerId"`
	Status        enums.OrderStatus   `json:"status"`
	StatusBadge   enums.UIBadge       `json:"statusBadge"`
	Total         decimal.Decimal     `json:"total"`
	ItemCount     int                 `json:"itemCount"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentStatus enums.PaymentStatus `json:"paymentStatus,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// OrderList is a page of orders, newest first.
type OrderList struct {
	Orders     []OrderSummaryDTO `json:"orders"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

func toOrderSummary(order models.Order) OrderSummaryDTO {
	summary := OrderSummaryDTO{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		Status:      order.Status,
		StatusBadge: order.Status.Badge(),
		Total:       order.Total,
		CreatedAt:   order.CreatedAt,
	}
	for _, item := range order.Items {
		summary.ItemCount += item.Quantity
	}
	if p := order.Payment; p != nil {
		summary.PaymentMethod = p.Method
		summary.PaymentStatus = p.Status
	}
	return summary
}

func toOrderDTO(order *models.Order) *OrderDTO {
	allowed := Allowed(order.Status)
	if allowed == nil {
		allowed = []enums.OrderStatus{}
	}
	dto := &OrderDTO{
		ID:                 order.ID,
		CustomerID:         order.CustomerID,
		Status:             order.Status,
		StatusBadge:        order.Status.Badge(),
		AllowedTransitions: allowed,
		Address:            order.Address,
		Subtotal:           order.Subtotal,
		Discount:           order.Discount,
		ShippingFee:        order.ShippingFee,
		Total:              order.Total,
		CancelReason:       order.CancelReason,
		Items:              make([]ItemDTO, 0, len(order.Items)),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ProductID:   strconv.FormatInt(item.ProductID, 10),
			ProductType: item.ProductType,
			Title:       item.Title,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			Quantity:    item.Quantity,
		})
	}
	if p := order.Payment; p != nil {
		dto.Payment = &PaymentDTO{
			ID:          p.ID,
			Method:      p.Method,
			Status:      p.Status,
			StatusBadge: p.Status.Badge(),
			Amount:      p.Amount,
			PaidAt:      p.PaidAt,
			BankRef:     p.BankRef,
		}
	}
	return dto
}

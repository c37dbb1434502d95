package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookverse-backend/pkg/db/models"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
	"github.com/angelmondragon/bookverse-backend/pkg/metrics"
	"github.com/angelmondragon/bookverse-backend/pkg/outbox"
	"github.com/angelmondragon/bookverse-backend/pkg/pagination"
)

const (
	transitionApplied  = "applied"
	transitionRejected = "rejected"
	transitionFailed   = "failed"
)

// Service defines the order lifecycle operations.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, orderID int64, actor Actor) (*OrderDTO, error)
	List(ctx context.Context, input ListInput) (*OrderList, error)
	ChangeAddress(ctx context.Context, input ChangeAddressInput) (*OrderDTO, error)
	RequestTransition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	Cancel(ctx context.Context, input CancelInput) (*TransitionResult, error)
	CompleteRefund(ctx context.Context, orderID int64, actor Actor) (*OrderDTO, error)
}

// ServiceParams bundles the collaborators of the order service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Metrics   *metrics.OrderMetrics
	Logger    *logger.Logger
	RefundSLA time.Duration
	Now       func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outbox.Emitter
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	refundSLA time.Duration
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.RefundSLA <= 0 {
		return nil, fmt.Errorf("refund sla must be positive")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      logg,
		refundSLA: params.RefundSLA,
		now:       now,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	order, err := s.buildOrder(input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, item := range order.Items {
			stock, err := repo.ProductStock(ctx, item.ProductID, item.ProductType)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
						WithDetails(map[string]any{"productId": item.ProductID, "productType": item.ProductType})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock")
			}
			if stock < item.Quantity {
				return insufficientStock(item, stock)
			}
		}

		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.CustomerID, Role: string(enums.UserRoleCustomer)},
			Data: outbox.OrderCreatedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				Status:     order.Status,
				Method:     order.Payment.Method,
				Total:      order.Total,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderID(ctx, order.ID), "order.created")
	return s.load(ctx, order.ID)
}

func (s *service) buildOrder(input CreateOrderInput) (*models.Order, error) {
	customerID := strings.TrimSpace(input.CustomerID)
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	address := strings.TrimSpace(input.Address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if input.ShippingFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must not be negative")
	}

	subtotal := decimal.Zero
	discount := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		productID, err := strconv.ParseInt(strings.TrimSpace(in.ProductID), 10, 64)
		if err != nil || !in.ProductType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product reference").
				WithDetails(map[string]any{"productId": in.ProductID, "productType": in.ProductType})
		}
		if in.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1").
				WithDetails(map[string]any{"productId": in.ProductID, "quantity": in.Quantity})
		}
		if in.UnitPrice.IsNegative() || in.Discount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item amounts must not be negative")
		}
		subtotal = subtotal.Add(in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))))
		discount = discount.Add(in.Discount)
		items = append(items, models.OrderItem{
			ProductID:   productID,
			ProductType: in.ProductType,
			Title:       in.Title,
			UnitPrice:   in.UnitPrice,
			Discount:    in.Discount,
			Quantity:    in.Quantity,
		})
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	total := subtotal.Sub(discount).Add(input.ShippingFee)

	status := enums.OrderStatusPending
	if input.Method == enums.PaymentMethodGateway {
		status = enums.OrderStatusPendingPayment
	}

	return &models.Order{
		CustomerID:  customerID,
		Status:      status,
		Address:     address,
		Subtotal:    subtotal,
		Discount:    discount,
		ShippingFee: input.ShippingFee,
		Total:       total,
		Items:       items,
		Payment: &models.Payment{
			Method: input.Method,
			Status: enums.PaymentStatusPending,
			Amount: total,
		},
	}, nil
}

func (s *service) Get(ctx context.Context, orderID int64, actor Actor) (*OrderDTO, error) {
	dto, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && dto.CustomerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return dto, nil
}

// List pages through orders newest first. Staff may filter by customer;
// everyone else is pinned to their own orders.
func (s *service) List(ctx context.Context, input ListInput) (*OrderList, error) {
	userID := strings.TrimSpace(input.Actor.UserID)
	if userID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Status != "" && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
			WithDetails(map[string]any{"status": input.Status})
	}
	filter := OrderFilter{CustomerID: userID, Status: input.Status}
	if input.Actor.IsStaff() {
		filter.CustomerID = strings.TrimSpace(input.CustomerID)
	}

	rows, next, err := s.repo.ListOrders(ctx, filter, input.Page)
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	list := &OrderList{Orders: make([]OrderSummaryDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		list.Orders = append(list.Orders, toOrderSummary(row))
	}
	return list, nil
}

// ChangeAddress replaces the delivery address while the order is still PENDING.
func (s *service) ChangeAddress(ctx context.Context, input ChangeAddressInput) (*OrderDTO, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if strings.TrimSpace(input.Actor.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	address := strings.TrimSpace(input.Address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if order.CustomerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "address can only change while the order is pending").
				WithDetails(map[string]any{"status": order.Status})
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"address": address}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order address")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAddressChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: outbox.OrderAddressChangedEvent{
				OrderID:    order.ID,
				CustomerID: order.CustomerID,
				Address:    address,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "order.address_changed")
	return s.load(ctx, input.OrderID)
}

func (s *service) RequestTransition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	return s.transition(ctx, input, false)
}

// Cancel lets a customer cancel an order they own.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*TransitionResult, error) {
	return s.transition(ctx, TransitionInput{
		OrderID: input.OrderID,
		To:      enums.OrderStatusCancelled,
		Reason:  input.Reason,
		Actor:   input.Actor,
	}, true)
}

func (s *service) transition(ctx context.Context, input TransitionInput, requireOwner bool) (*TransitionResult, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.To.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if strings.TrimSpace(input.Actor.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ctx = s.logg.WithOrderID(ctx, input.OrderID)

	var result *TransitionResult
	var from enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if requireOwner && order.CustomerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		from = order.Status

		res, err := s.applyTransition(ctx, tx, repo, order, input)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		outcome := transitionFailed
		if pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition) {
			outcome = transitionRejected
		}
		s.metrics.IncTransition(string(from), string(input.To), outcome)
		return nil, err
	}

	s.metrics.IncTransition(string(from), string(input.To), transitionApplied)
	if result.RefundNotice != nil {
		s.metrics.IncRefundRequested()
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from": from,
		"to":   input.To,
	}), "order.transition_applied")

	order, err := s.load(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	result.Order = order
	return result, nil
}

// applyTransition validates and applies one status move on a locked order,
// running the edge hooks for stock, COD settlement and refunds.
func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, input TransitionInput) (*TransitionResult, error) {
	from, to := order.Status, input.To
	if err := ValidateTransition(from, to); err != nil {
		return nil, err
	}

	payment, err := repo.LockPaymentByOrder(ctx, order.ID)
	if err != nil {
		return nil, notFoundOr(err, "payment not found", "load payment")
	}

	result := &TransitionResult{From: from, To: to}
	updates := map[string]any{"status": to}
	now := s.now().UTC()

	switch to {
	case enums.OrderStatusDelivering:
		if err := s.decrementStock(ctx, repo, order.ID); err != nil {
			return nil, err
		}
	case enums.OrderStatusDelivered:
		if payment.Method == enums.PaymentMethodCOD && payment.Status == enums.PaymentStatusPending {
			if err := s.movePayment(ctx, repo, payment, enums.PaymentStatusSuccess, map[string]any{"paid_at": now}); err != nil {
				return nil, err
			}
		}
	case enums.OrderStatusCancelled:
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			updates["cancel_reason"] = reason
		}
		if payment.Method == enums.PaymentMethodGateway && payment.Status == enums.PaymentStatusSuccess {
			if err := s.movePayment(ctx, repo, payment, enums.PaymentStatusRefunding, nil); err != nil {
				return nil, err
			}
			result.RefundNotice = &RefundNotice{
				OrderID:        order.ID,
				PaymentID:      payment.ID,
				Amount:         payment.Amount,
				ExpectedWithin: s.refundSLA.String(),
				ExpectedBy:     now.Add(s.refundSLA),
			}
		}
	}

	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	actor := &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)}
	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: outbox.OrderStatusChangedEvent{
			OrderID:      order.ID,
			CustomerID:   order.CustomerID,
			From:         from,
			To:           to,
			CancelReason: strings.TrimSpace(input.Reason),
		},
	})
	if err != nil {
		return nil, err
	}

	if notice := result.RefundNotice; notice != nil {
		err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRefundRequested,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor,
			Data: outbox.RefundRequestedEvent{
				OrderID:        notice.OrderID,
				PaymentID:      notice.PaymentID,
				CustomerID:     order.CustomerID,
				Amount:         notice.Amount,
				ExpectedBy:     notice.ExpectedBy,
				ExpectedWithin: notice.ExpectedWithin,
			},
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// decrementStock takes every item of the order out of inventory. Any shortage
// fails the whole transition.
func (s *service) decrementStock(ctx context.Context, repo Repository, orderID int64) error {
	items, err := repo.FindItems(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	for _, item := range items {
		ok, err := repo.DecrementStock(ctx, item.ProductID, item.ProductType, item.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			return insufficientStock(item, -1)
		}
	}
	return nil
}

func (s *service) movePayment(ctx context.Context, repo Repository, payment *models.Payment, to enums.PaymentStatus, extra map[string]any) error {
	if err := ValidatePaymentTransition(payment.Status, to); err != nil {
		return err
	}
	updates := map[string]any{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
	}
	payment.Status = to
	return nil
}

// CompleteRefund records that the gateway returned the money.
func (s *service) CompleteRefund(ctx context.Context, orderID int64, actor Actor) (*OrderDTO, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !actor.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "staff role required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		payment, err := repo.LockPaymentByOrder(ctx, order.ID)
		if err != nil {
			return notFoundOr(err, "payment not found", "load payment")
		}
		if err := s.movePayment(ctx, repo, payment, enums.PaymentStatusRefunded, nil); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRefunded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: outbox.PaymentRefundedEvent{
				PaymentID: payment.ID,
				OrderID:   order.ID,
				Amount:    payment.Amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "payment.refund_completed")
	return s.load(ctx, orderID)
}

func (s *service) load(ctx context.Context, orderID int64) (*OrderDTO, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	return toOrderDTO(order), nil
}

func notFoundOr(err error, notFoundMsg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func insufficientStock(item models.OrderItem, available int) error {
	details := map[string]any{
		"productId":   strconv.FormatInt(item.ProductID, 10),
		"productType": item.ProductType,
		"requested":   item.Quantity,
	}
	if available >= 0 {
		details["available"] = available
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(details)
}

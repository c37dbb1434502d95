package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/bookverse-backend/api/middleware"
	"github.com/angelmondragon/bookverse-backend/api/responses"
	"github.com/angelmondragon/bookverse-backend/api/validators"
	cartsvc "github.com/angelmondragon/bookverse-backend/internal/cart"
	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	internalorders "github.com/angelmondragon/bookverse-backend/internal/orders"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
	"github.com/angelmondragon/bookverse-backend/pkg/pagination"
)

const (
	maxAddressLength = 500
	maxReasonLength  = 500
)

// CartCheckout hands the priced selection of a cart to a placement callback.
type CartCheckout interface {
	Checkout(ctx context.Context, cartID string, place func(context.Context, cartsvc.Snapshot) error) (cartsvc.Snapshot, error)
}

// ProductInvalidator drops cached catalog entries whose stock moved.
type ProductInvalidator interface {
	Invalidate(keys ...catalog.Key)
}

type checkoutRequest struct {
	Address       string `json:"address" validate:"required,max=500"`
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

type checkoutResponse struct {
	Order *internalorders.OrderDTO `json:"order"`
	Cart  cartsvc.Snapshot         `json:"cart"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type changeAddressRequest struct {
	Address string `json:"address" validate:"required,max=500"`
}

type transitionRequest struct {
	To     string `json:"to" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

func actorFromContext(r *http.Request) (internalorders.Actor, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	return internalorders.Actor{
		UserID: userID,
		Role:   enums.UserRole(middleware.RoleFromContext(r.Context())),
	}, nil
}

// Checkout places an order from the selected lines of the caller's cart and
// removes those lines once the order is stored.
func Checkout(carts CartCheckout, svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
				WithDetails(map[string]any{"paymentMethod": payload.PaymentMethod}))
			return
		}
		address := validators.SanitizeString(payload.Address, maxAddressLength)

		var placed *internalorders.OrderDTO
		snap, err := carts.Checkout(r.Context(), actor.UserID, func(ctx context.Context, snap cartsvc.Snapshot) error {
			input, err := orderInputFromSnapshot(actor.UserID, address, method, snap)
			if err != nil {
				return err
			}
			order, err := svc.CreateOrder(ctx, input)
			if err != nil {
				return err
			}
			placed = order
			return nil
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{Order: placed, Cart: snap})
	}
}

func orderInputFromSnapshot(customerID, address string, method enums.PaymentMethod, snap cartsvc.Snapshot) (internalorders.CreateOrderInput, error) {
	input := internalorders.CreateOrderInput{
		CustomerID:  customerID,
		Address:     address,
		Method:      method,
		ShippingFee: snap.ShippingFee,
		Items:       make([]internalorders.ItemInput, 0, len(snap.Selected)),
	}
	for _, line := range snap.Selected {
		if line.Product == nil {
			return input, pkgerrors.New(pkgerrors.CodeCatalogLookupFailed, "selected product is still resolving").
				WithDetails(map[string]any{"productId": line.ProductID, "productType": line.ProductType})
		}
		input.Items = append(input.Items, internalorders.ItemInput{
			ProductID:   line.ProductID,
			ProductType: line.ProductType,
			Title:       line.Product.Title,
			UnitPrice:   line.Product.UnitPrice,
			Discount:    line.Discount,
			Quantity:    line.Quantity,
		})
	}
	return input, nil
}

// Detail returns one order. Customers only see their own orders.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Cancel lets a customer cancel their own order. The body is optional.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Reason:  validators.SanitizeString(payload.Reason, maxReasonLength),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Transition applies a staff-requested status move. Entering DELIVERING
// decrements stock, so the cached products of the order are invalidated.
func Transition(svc internalorders.Service, products ProductInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := enums.ParseOrderStatus(payload.To)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status").
				WithDetails(map[string]any{"to": payload.To}))
			return
		}

		result, err := svc.RequestTransition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			To:      to,
			Reason:  validators.SanitizeString(payload.Reason, maxReasonLength),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if products != nil && result.To == enums.OrderStatusDelivering && result.Order != nil {
			keys := make([]catalog.Key, 0, len(result.Order.Items))
			for _, item := range result.Order.Items {
				keys = append(keys, catalog.Key{ID: item.ProductID, Type: item.ProductType})
			}
			products.Invalidate(keys...)
		}

		responses.WriteSuccess(w, result)
	}
}

// CompleteRefund records that a refund reached the customer.
func CompleteRefund(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CompleteRefund(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// List returns the caller's own orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(svc, logg, false)
}

// AdminList returns every order, optionally narrowed by status and customer.
func AdminList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(svc, logg, true)
}

func listHandler(svc internalorders.Service, logg *logger.Logger, admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.ListInput{
			Actor: actor,
			Page: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
					WithDetails(map[string]any{"status": raw}))
				return
			}
			input.Status = status
		}
		if admin {
			input.CustomerID = strings.TrimSpace(r.URL.Query().Get("customerId"))
		}

		list, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ChangeAddress updates the delivery address of the caller's pending order.
func ChangeAddress(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload changeAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ChangeAddress(r.Context(), internalorders.ChangeAddressInput{
			OrderID: orderID,
			Address: validators.SanitizeString(payload.Address, maxAddressLength),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

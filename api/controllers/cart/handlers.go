package cart

import (
	"context"
	"net/http"

	"github.com/angelmondragon/bookverse-backend/api/responses"
	"github.com/angelmondragon/bookverse-backend/api/validators"
	cartsvc "github.com/angelmondragon/bookverse-backend/internal/cart"
	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
)

// Service is the cart surface used by the HTTP handlers.
type Service interface {
	Snapshot(ctx context.Context, cartID string) (cartsvc.Snapshot, error)
	AddLine(ctx context.Context, cartID, productID string, productType enums.ProductType, qty int) (cartsvc.Snapshot, error)
	SetQuantity(ctx context.Context, cartID string, key catalog.Key, qty int) (cartsvc.Snapshot, error)
	SetSelected(ctx context.Context, cartID string, key catalog.Key, selected bool) (cartsvc.Snapshot, error)
	SelectAll(ctx context.Context, cartID string, selected bool) (cartsvc.Snapshot, error)
	RemoveLine(ctx context.Context, cartID string, key catalog.Key) (cartsvc.Snapshot, error)
	RemoveSelected(ctx context.Context, cartID string) (cartsvc.Snapshot, error)
	Clear(ctx context.Context, cartID string) (cartsvc.Snapshot, error)
}

func serviceUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
}

// CartFetch returns the priced snapshot of the caller's cart.
func CartFetch(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		cartID, err := cartIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.Snapshot(r.Context(), cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

// AddLine merges a product into the cart.
func AddLine(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		cartID, err := cartIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productType, err := parseProductType(payload.ProductType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		qty := 1
		if payload.Quantity != nil {
			qty = *payload.Quantity
		}

		snap, err := svc.AddLine(r.Context(), cartID, payload.ProductID, productType, qty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, snap)
	}
}

// UpdateLine changes the quantity and/or selection of one line. Quantity is
// applied first so a rejected quantity leaves the selection untouched.
func UpdateLine(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		cartID, err := cartIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key, err := lineKeyFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Quantity == nil && payload.Selected == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity or selected is required"))
			return
		}

		var snap cartsvc.Snapshot
		if payload.Quantity != nil {
			if snap, err = svc.SetQuantity(r.Context(), cartID, key, *payload.Quantity); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		if payload.Selected != nil {
			if snap, err = svc.SetSelected(r.Context(), cartID, key, *payload.Selected); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		responses.WriteSuccess(w, snap)
	}
}

func RemoveLine(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		cartID, err := cartIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key, err := lineKeyFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.RemoveLine(r.Context(), cartID, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

func SelectAll(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		cartID, err := cartIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload selectAllRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := svc.SelectAll(r.Context(), cartID, *payload.Selected)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

// RemoveLines drops the selected lines when ?selected=true, otherwise empties the cart.
func RemoveLines(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable())
			return
		}
		cartID, err := cartIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		onlySelected, err := validators.ParseQueryBool(r, "selected", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var snap cartsvc.Snapshot
		if onlySelected {
			snap, err = svc.RemoveSelected(r.Context(), cartID)
		} else {
			snap, err = svc.Clear(r.Context(), cartID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

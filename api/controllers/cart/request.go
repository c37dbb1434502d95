package cart

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bookverse-backend/api/middleware"
	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
)

type addLineRequest struct {
	ProductID   string `json:"productId" validate:"required"`
	ProductType string `json:"productType" validate:"required"`
	// Quantity defaults to 1; explicit values below 1 are rejected by the cart.
	Quantity *int `json:"quantity" validate:"omitempty,max=9999"`
}

type updateLineRequest struct {
	Quantity *int  `json:"quantity" validate:"omitempty,max=9999"`
	Selected *bool `json:"selected"`
}

type selectAllRequest struct {
	Selected *bool `json:"selected" validate:"required"`
}

func cartIDFromContext(r *http.Request) (string, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	return userID, nil
}

func parseProductType(raw string) (enums.ProductType, error) {
	productType, err := enums.ParseProductType(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product type").
			WithDetails(map[string]any{"productType": raw})
	}
	return productType, nil
}

func lineKeyFromPath(r *http.Request) (catalog.Key, error) {
	productType, err := parseProductType(chi.URLParam(r, "productType"))
	if err != nil {
		return catalog.Key{}, err
	}
	id := strings.TrimSpace(chi.URLParam(r, "productId"))
	if id == "" {
		return catalog.Key{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return catalog.Key{ID: id, Type: productType}, nil
}

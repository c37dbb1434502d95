package cart

import (
	"strings"

	"github.com/angelmondragon/bookverse-backend/internal/catalog"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
)

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 9999

// Line is one persisted cart entry. (ProductID, ProductType) is unique per cart.
type Line struct {
	ProductID   string            `json:"productId"`
	ProductType enums.ProductType `json:"productType"`
	Quantity    int               `json:"quantity"`
	Selected    bool              `json:"selected"`
}

// Key returns the catalog address of the line.
func (l Line) Key() catalog.Key {
	return catalog.Key{ID: l.ProductID, Type: l.ProductType}
}

func validateKey(key catalog.Key) error {
	if strings.TrimSpace(key.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if !key.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product type").
			WithDetails(map[string]any{"productType": key.Type})
	}
	return nil
}

func validateQuantity(qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": qty})
	}
	if qty > MaxLineQuantity {
		return quantityOverLimit(qty)
	}
	return nil
}

func quantityOverLimit(qty int) error {
	return pkgerrors.New(pkgerrors.CodeInvalidQuantity, "quantity exceeds line limit").
		WithDetails(map[string]any{"quantity": qty, "max": MaxLineQuantity})
}

func lineNotFound(key catalog.Key) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found").
		WithDetails(map[string]any{"productId": key.ID, "productType": key.Type})
}

package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/bookverse-backend/pkg/db/models"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	"github.com/angelmondragon/bookverse-backend/pkg/pagination"
)

// Repository defines persistence operations for orders, their items and payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, orderID int64) (*models.Order, error)
	LockOrder(ctx context.Context, orderID int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter, params pagination.Params) ([]models.Order, string, error)
	FindItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	PaymentOrderID(ctx context.Context, paymentID int64) (int64, error)
	LockPayment(ctx context.Context, paymentID int64) (*models.Payment, error)
	LockPaymentByOrder(ctx context.Context, orderID int64) (*models.Payment, error)
	UpdateOrder(ctx context.Context, orderID int64, updates map[string]any) error
	UpdatePayment(ctx context.Context, paymentID int64, updates map[string]any) error
	ProductStock(ctx context.Context, productID int64, productType enums.ProductType) (int, error)
	DecrementStock(ctx context.Context, productID int64, productType enums.ProductType, qty int) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookverse-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
)

// Repository reads products from the products table. Promotions are applied
// only inside their active window.
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// WithClock returns a copy of the repository that evaluates promotion windows
// against now.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	return &Repository{db: r.db, now: now}
}

// GetProduct loads a single product by key.
func (r *Repository) GetProduct(ctx context.Context, key Key) (*Product, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(key.ID), 10, 64)
	if err != nil || !key.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	var row models.Product
	err = r.db.WithContext(ctx).
		Where("id = ? AND product_type = ?", id, key.Type).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	product := productFromModel(row, r.now())
	return &product, nil
}

// SearchProducts returns up to limit products whose title contains query.
func (r *Repository) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return []Product{}, nil
	}

	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? ESCAPE '\\'", "%"+escapeLike(query)+"%").
		Order("title ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}

	now := r.now()
	out := make([]Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, productFromModel(row, now))
	}
	return out, nil
}

func productFromModel(row models.Product, now time.Time) Product {
	product := Product{
		ID:               strconv.FormatInt(row.ID, 10),
		Type:             row.Type,
		Title:            row.Title,
		UnitPrice:        row.Price,
		ImageRef:         row.ImageRef,
		StockQuantity:    row.StockQuantity,
		PromotionPercent: decimal.Zero,
	}
	if row.PromotionPaused || !row.PromotionPercent.IsPositive() {
		return product
	}
	switch {
	case row.PromotionStartsAt != nil && now.Before(*row.PromotionStartsAt):
		product.ValidUntil = row.PromotionStartsAt
	case row.PromotionEndsAt != nil && !now.Before(*row.PromotionEndsAt):
		// expired
	default:
		product.PromotionPercent = row.PromotionPercent
		product.PromotionEndsAt = row.PromotionEndsAt
		product.ValidUntil = row.PromotionEndsAt
	}
	return product
}

var likeEscaper = strings.NewReplacer(`%`, `\%`, `_`, `\_`)

func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

package payments

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/bookverse-backend/pkg/db/models"
)

// ReceiptRepository persists the idempotency markers of gateway callbacks.
type ReceiptRepository interface {
	WithTx(tx *gorm.DB) ReceiptRepository
	Find(ctx context.Context, paymentID int64, fingerprint string) (*models.CallbackReceipt, error)
	Claim(ctx context.Context, receipt *models.CallbackReceipt) (bool, error)
	SaveOutcome(ctx context.Context, receipt *models.CallbackReceipt) error
}

type receiptRepository struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

func (r *receiptRepository) WithTx(tx *gorm.DB) ReceiptRepository {
	if tx == nil {
		return r
	}
	return &receiptRepository{db: tx}
}

// Find returns nil without error when no marker exists.
func (r *receiptRepository) Find(ctx context.Context, paymentID int64, fingerprint string) (*models.CallbackReceipt, error) {
	var receipt models.CallbackReceipt
	err := r.db.WithContext(ctx).
		Where("payment_id = ? AND fingerprint = ?", paymentID, fingerprint).
		First(&receipt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Claim inserts the marker and reports whether this call created it. A
// concurrent claimant waits on the primary key and then gets false.
func (r *receiptRepository) Claim(ctx context.Context, receipt *models.CallbackReceipt) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(receipt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *receiptRepository) SaveOutcome(ctx context.Context, receipt *models.CallbackReceipt) error {
	return r.db.WithContext(ctx).
		Model(&models.CallbackReceipt{}).
		Where("payment_id = ? AND fingerprint = ?", receipt.PaymentID, receipt.Fingerprint).
		Updates(map[string]any{
			"outcome_kind": receipt.OutcomeKind,
			"order_id":     receipt.OrderID,
			"reason":       receipt.Reason,
		}).Error
}

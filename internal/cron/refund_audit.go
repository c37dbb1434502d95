package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bookverse-backend/pkg/db/models"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
)

// OverdueRefund is a payment that has been REFUNDING for longer than the SLA.
type OverdueRefund struct {
	OrderID   int64
	PaymentID int64
	Since     time.Time
}

type refundLister interface {
	ListRefundingSince(ctx context.Context, cutoff time.Time) ([]OverdueRefund, error)
}

// PaymentAudit reads payment rows for the refund audit.
type PaymentAudit struct {
	db *gorm.DB
}

func NewPaymentAudit(db *gorm.DB) *PaymentAudit {
	return &PaymentAudit{db: db}
}

// ListRefundingSince returns refunding payments last touched before cutoff,
// oldest first.
func (a *PaymentAudit) ListRefundingSince(ctx context.Context, cutoff time.Time) ([]OverdueRefund, error) {
	var rows []models.Payment
	err := a.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.PaymentStatusRefunding, cutoff).
		Order("updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]OverdueRefund, 0, len(rows))
	for _, row := range rows {
		out = append(out, OverdueRefund{OrderID: row.OrderID, PaymentID: row.ID, Since: row.UpdatedAt})
	}
	return out, nil
}

type RefundAuditJobParams struct {
	Logger *logger.Logger
	Audit  refundLister
	SLA    time.Duration
	Now    func() time.Time
}

// NewRefundAuditJob warns about cancelled gateway orders whose refund has not
// been completed within the SLA promised to the customer.
func NewRefundAuditJob(params RefundAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Audit == nil {
		return nil, errors.New("payment audit required")
	}
	if params.SLA <= 0 {
		return nil, errors.New("refund sla must be positive")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &refundAuditJob{logg: params.Logger, audit: params.Audit, sla: params.SLA, now: now}, nil
}

type refundAuditJob struct {
	logg  *logger.Logger
	audit refundLister
	sla   time.Duration
	now   func() time.Time

	lastOverdue int
}

func (j *refundAuditJob) Name() string { return "refund-audit" }

func (j *refundAuditJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.sla)
	overdue, err := j.audit.ListRefundingSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list overdue refunds: %w", err)
	}
	j.lastOverdue = len(overdue)
	for _, refund := range overdue {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"order_id":   refund.OrderID,
			"payment_id": refund.PaymentID,
			"since":      refund.Since,
			"sla":        j.sla.String(),
		}), "refund overdue")
	}
	return nil
}

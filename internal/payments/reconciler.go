package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/bookverse-backend/internal/orders"
	"github.com/angelmondragon/bookverse-backend/pkg/db/models"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bookverse-backend/pkg/errors"
	"github.com/angelmondragon/bookverse-backend/pkg/logger"
	"github.com/angelmondragon/bookverse-backend/pkg/metrics"
	"github.com/angelmondragon/bookverse-backend/pkg/outbox"
)

const defaultSuccessCode = "00"

type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the single result of reconciling one callback. Kind, OrderID,
// PaymentID and Reason are identical for every delivery of the same callback;
// Replayed only tells the caller that nothing was applied this time and is
// not part of the body.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	OrderID   int64       `json:"orderId"`
	PaymentID int64       `json:"paymentId"`
	Reason    string      `json:"reason,omitempty"`
	Replayed  bool        `json:"-"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ReconcilerParams struct {
	Orders      orders.Repository
	Receipts    ReceiptRepository
	Tx          txRunner
	Outbox      outbox.Emitter
	Verifier    *Verifier
	Metrics     *metrics.ReconcileMetrics
	Logger      *logger.Logger
	SuccessCode string
	Now         func() time.Time
}

// Reconciler applies gateway callbacks to payments and orders exactly once.
type Reconciler struct {
	orders      orders.Repository
	receipts    ReceiptRepository
	tx          txRunner
	outbox      outbox.Emitter
	verifier    *Verifier
	metrics     *metrics.ReconcileMetrics
	logg        *logger.Logger
	successCode string
	now         func() time.Time
}

func NewReconciler(params ReconcilerParams) (*Reconciler, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Receipts == nil {
		return nil, fmt.Errorf("receipt repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	successCode := params.SuccessCode
	if successCode == "" {
		successCode = defaultSuccessCode
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		orders:      params.Orders,
		receipts:    params.Receipts,
		tx:          params.Tx,
		outbox:      params.Outbox,
		verifier:    params.Verifier,
		metrics:     params.Metrics,
		logg:        logg,
		successCode: successCode,
		now:         now,
	}, nil
}

// HandleReturn verifies and parses raw redirect parameters, then applies them.
func (r *Reconciler) HandleReturn(ctx context.Context, values url.Values) (*Outcome, error) {
	start := r.now()
	if err := r.verifier.Verify(values); err != nil {
		r.metrics.Observe(metrics.CallbackMalformed, "", r.now().Sub(start))
		r.logg.Warn(r.logg.WithField(ctx, "reason", err.Error()), "payment.callback_rejected")
		return nil, err
	}
	cb, err := ParseCallback(values)
	if err != nil {
		r.metrics.Observe(metrics.CallbackMalformed, "", r.now().Sub(start))
		r.logg.Warn(r.logg.WithField(ctx, "reason", err.Error()), "payment.callback_rejected")
		return nil, err
	}
	return r.Apply(ctx, cb)
}

// Apply reconciles one callback. A redelivered callback returns the stored
// outcome and changes nothing.
func (r *Reconciler) Apply(ctx context.Context, cb Callback) (*Outcome, error) {
	start := r.now()
	paymentID, err := cb.PaymentID()
	if err != nil {
		r.metrics.Observe(metrics.CallbackMalformed, "", r.now().Sub(start))
		return nil, err
	}
	ctx = r.logg.WithPaymentID(ctx, paymentID)
	fingerprint := cb.Fingerprint()

	var outcome *Outcome
	err = r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		receipts := r.receipts.WithTx(tx)
		existing, err := receipts.Find(ctx, paymentID, fingerprint)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load callback receipt")
		}
		if existing != nil {
			outcome = replay(existing)
			return nil
		}

		receipt := &models.CallbackReceipt{
			PaymentID:    paymentID,
			Fingerprint:  fingerprint,
			ResponseCode: cb.ResponseCode,
		}
		claimed, err := receipts.Claim(ctx, receipt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim callback receipt")
		}
		if !claimed {
			existing, err := receipts.Find(ctx, paymentID, fingerprint)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load callback receipt")
			}
			if existing == nil {
				return pkgerrors.New(pkgerrors.CodeConflict, "callback receipt claimed concurrently")
			}
			outcome = replay(existing)
			return nil
		}

		applied, err := r.settle(ctx, tx, paymentID, cb)
		if err != nil {
			return err
		}
		receipt.OutcomeKind = string(applied.Kind)
		receipt.OrderID = applied.OrderID
		receipt.Reason = applied.Reason
		if err := receipts.SaveOutcome(ctx, receipt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store callback outcome")
		}
		outcome = applied
		return nil
	})
	elapsed := r.now().Sub(start)
	if err != nil {
		r.metrics.Observe(resultFor(err), "", elapsed)
		if pkgerrors.IsCode(err, pkgerrors.CodeStaleCallback) || pkgerrors.IsCode(err, pkgerrors.CodeMalformedCallback) {
			r.logg.Warn(r.logg.WithField(ctx, "reason", err.Error()), "payment.callback_rejected")
		} else {
			r.logg.Error(ctx, "payment.callback_failed", err)
		}
		return nil, err
	}

	result := metrics.CallbackApplied
	if outcome.Replayed {
		result = metrics.CallbackReplayed
	}
	r.metrics.Observe(result, string(outcome.Kind), elapsed)
	r.logg.Info(r.logg.WithFields(ctx, map[string]any{
		"order_id": outcome.OrderID,
		"outcome":  outcome.Kind,
		"replayed": outcome.Replayed,
	}), "payment.callback_reconciled")
	return outcome, nil
}

// settle mutates the locked payment and order for a freshly claimed callback.
// Rows are locked order first, then payment, matching order transitions.
func (r *Reconciler) settle(ctx context.Context, tx *gorm.DB, paymentID int64, cb Callback) (*Outcome, error) {
	repo := r.orders.WithTx(tx)
	orderID, err := repo.PaymentOrderID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStaleCallback, "payment not found").
				WithDetails(map[string]any{"paymentId": paymentID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	order, err := repo.LockOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStaleCallback, "order not found").
				WithDetails(map[string]any{"paymentId": paymentID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	payment, err := repo.LockPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStaleCallback, "payment not found").
				WithDetails(map[string]any{"paymentId": paymentID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.OrderID != order.ID {
		return nil, pkgerrors.New(pkgerrors.CodeStaleCallback, "payment moved to another order").
			WithDetails(map[string]any{"paymentId": paymentID, "orderId": order.ID})
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, pkgerrors.New(pkgerrors.CodeStaleCallback, "order is no longer awaiting payment").
			WithDetails(map[string]any{"orderId": order.ID, "status": order.Status})
	}
	if !cb.Amount.Equal(payment.Amount) {
		return nil, malformed(fmt.Sprintf("amount %s does not match payment amount %s", cb.Amount.StringFixed(2), payment.Amount.StringFixed(2)))
	}

	outcome := &Outcome{OrderID: order.ID, PaymentID: payment.ID}
	var paymentStatus enums.PaymentStatus
	updates := map[string]any{}
	if cb.GatewayTxnNo != "" {
		updates["gateway_txn_no"] = cb.GatewayTxnNo
	}
	if cb.BankRef != "" {
		updates["bank_ref"] = cb.BankRef
	}

	if cb.ResponseCode == r.successCode {
		paymentStatus = enums.PaymentStatusSuccess
		if err := orders.ValidatePaymentTransition(payment.Status, paymentStatus); err != nil {
			return nil, err
		}
		if err := orders.ValidateTransition(order.Status, enums.OrderStatusPending); err != nil {
			return nil, err
		}
		updates["status"] = paymentStatus
		updates["paid_at"] = r.now().UTC()
		updates["failure_reason"] = nil
		if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusPending}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		outcome.Kind = OutcomeSuccess
	} else {
		paymentStatus = enums.PaymentStatusFailed
		if err := orders.ValidatePaymentTransition(payment.Status, paymentStatus); err != nil {
			return nil, err
		}
		outcome.Kind = OutcomeFailure
		outcome.Reason = fmt.Sprintf("gateway response code %s", cb.ResponseCode)
		updates["status"] = paymentStatus
		updates["failure_reason"] = outcome.Reason
		if err := repo.UpdatePayment(ctx, payment.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
	}

	err = r.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentReconciled,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: outbox.PaymentReconciledEvent{
			PaymentID:    payment.ID,
			OrderID:      order.ID,
			Status:       paymentStatus,
			ResponseCode: cb.ResponseCode,
			BankRef:      cb.BankRef,
		},
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func replay(receipt *models.CallbackReceipt) *Outcome {
	return &Outcome{
		Kind:      OutcomeKind(receipt.OutcomeKind),
		OrderID:   receipt.OrderID,
		PaymentID: receipt.PaymentID,
		Reason:    receipt.Reason,
		Replayed:  true,
	}
}

func resultFor(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeStaleCallback):
		return metrics.CallbackStale
	case pkgerrors.IsCode(err, pkgerrors.CodeMalformedCallback):
		return metrics.CallbackMalformed
	default:
		return metrics.CallbackError
	}
}

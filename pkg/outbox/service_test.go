package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/bookverse-backend/pkg/db/models"
	"github.com/angelmondragon/bookverse-backend/pkg/enums"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.OutboxEvent{}))
	return conn
}

func TestEmitWritesEnvelope(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   12,
			Actor:         &ActorRef{UserID: "staff-1", Role: "staff"},
			Data: OrderStatusChangedEvent{
				OrderID: 12,
				From:    enums.OrderStatusProcessing,
				To:      enums.OrderStatusDelivering,
			},
		})
	})
	require.NoError(t, err)

	rows, err := repo.ListForAggregate(nil, 12)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, enums.EventOrderStatusChanged, rows[0].EventType)

	env, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	require.Equal(t, rows[0].ID.String(), env.EventID)
	require.Equal(t, 1, env.Version)
	require.Equal(t, "staff", env.Actor.Role)

	var data OrderStatusChangedEvent
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, enums.OrderStatusDelivering, data.To)
}

func TestEmitRequiresTransactionAndKnownTypes(t *testing.T) {
	svc := NewService(NewRepository(nil), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder})
	require.Error(t, err)

	db := openTestDB(t)
	err = svc.Emit(context.Background(), db, DomainEvent{EventType: "order.exploded", AggregateType: enums.AggregateOrder})
	require.Error(t, err)
}

func TestFetchAndMarkLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, svc.Emit(context.Background(), db, DomainEvent{
			EventType:     enums.EventPaymentReconciled,
			AggregateType: enums.AggregatePayment,
			AggregateID:   i,
			Data:          PaymentReconciledEvent{PaymentID: i},
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(db, rows[0].ID))
	require.NoError(t, repo.MarkTerminalTx(db, rows[1].ID, errors.New("bad payload")))
	require.NoError(t, repo.MarkFailedTx(db, rows[2].ID, errors.New("transient")))

	pending, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, rows[2].ID, pending[0].ID)
	require.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)

	exhausted, err := repo.FetchUnpublishedForPublish(db, 10, 1)
	require.NoError(t, err)
	require.Empty(t, exhausted)
}

func TestDeletePublishedBeforeKeepsPendingRows(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, svc.Emit(context.Background(), db, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   i,
			Data:          map[string]int64{"orderId": i},
		}))
	}
	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	old := time.Now().UTC().Add(-60 * 24 * time.Hour)
	require.NoError(t, db.Model(&models.OutboxEvent{}).Where("id = ?", rows[0].ID).Update("published_at", old).Error)
	require.NoError(t, repo.MarkPublishedTx(db, rows[1].ID))

	deleted, err := repo.DeletePublishedBefore(db, time.Now().UTC().Add(-30*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	require.Equal(t, int64(2), remaining)
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/cloudevents"
	"github.com/retail-platform/stock-service/pkg/outbox"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStock(t *testing.T, productID int64, available int) *domain.Stock {
	t.Helper()
	stock, err := domain.NewStock(productID, available, 5, t0)
	require.NoError(t, err)
	return stock
}

func TestTransactionRollsBackEveryRepository(t *testing.T) {
	store := NewStore()
	stocks := NewStockRepository(store)
	movements := NewMovementRepository(store)
	outboxRepo := NewOutboxRepository(store)
	tx := NewTransactionManager(store)
	ctx := context.Background()

	require.NoError(t, stocks.Create(ctx, newStock(t, 1, 10)))

	boom := errors.New("boom")
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stock, err := stocks.FindByProductID(ctx, 1)
		require.NoError(t, err)
		require.NoError(t, stock.Reserve(4, t0))
		require.NoError(t, stocks.Save(ctx, stock))

		movement, err := domain.NewStockMovement(domain.MovementSpec{
			ProductID: 1, MovementType: domain.MovementReserve, Quantity: 4,
			PreviousQuantity: 10, NewQuantity: 6, CreatedAt: t0,
		})
		require.NoError(t, err)
		require.NoError(t, movements.Append(ctx, movement))

		ce := cloudevents.NewEventFactory(cloudevents.SourceStock).CreateStockEvent(ctx, "retail.stock.reserved", 1, 7, nil)
		event, err := outbox.NewEvent("1", "Stock", "retail.stock.events", ce)
		require.NoError(t, err)
		require.NoError(t, outboxRepo.SaveAll(ctx, []*outbox.Event{event}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stock, err := stocks.FindByProductID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, stock.AvailableQuantity)
	assert.Equal(t, 0, stock.ReservedQuantity)
	assert.EqualValues(t, 1, stock.Version)

	_, total, err := movements.FindByProductID(ctx, 1, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, outboxRepo.Events())
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	store := NewStore()
	stocks := NewStockRepository(store)
	tx := NewTransactionManager(store)
	ctx := context.Background()

	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, stocks.Create(ctx, newStock(t, 1, 10)))
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return stocks.Create(ctx, newStock(t, 2, 10))
		})
	})
	require.NoError(t, err)

	all, total, err := stocks.FindAll(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)
}

func TestStockSaveChecksVersion(t *testing.T) {
	store := NewStore()
	stocks := NewStockRepository(store)
	ctx := context.Background()

	require.NoError(t, stocks.Create(ctx, newStock(t, 1, 10)))
	assert.ErrorIs(t, stocks.Create(ctx, newStock(t, 1, 3)), domain.ErrDuplicateStock)

	first, _ := stocks.FindByProductID(ctx, 1)
	second, _ := stocks.FindByProductID(ctx, 1)

	require.NoError(t, first.AdjustAvailable(1, t0))
	require.NoError(t, stocks.Save(ctx, first))
	assert.EqualValues(t, 2, first.Version)

	require.NoError(t, second.AdjustAvailable(-1, t0))
	assert.ErrorIs(t, stocks.Save(ctx, second), domain.ErrConcurrentModification)

	assert.ErrorIs(t, stocks.Save(ctx, newStock(t, 9, 1)), domain.ErrStockNotFound)
}

func TestFindExpiredOldestFirstWithLimit(t *testing.T) {
	store := NewStore()
	reservations := NewReservationRepository(store)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		r, err := domain.NewStockReservation(1, int64(i+1), 1, time.Minute, t0.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, reservations.Save(ctx, r))
		ids = append(ids, r.ID)
	}
	noTTL, err := domain.NewStockReservation(1, 9, 1, 0, t0)
	require.NoError(t, err)
	require.NoError(t, reservations.Save(ctx, noTTL))

	expired, err := reservations.FindExpired(ctx, t0.Add(time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	assert.Equal(t, ids[0], expired[0].ID)
	assert.Equal(t, ids[1], expired[1].ID)

	expired, err = reservations.FindExpired(ctx, t0.Add(30*time.Second), 0)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func TestAlertSaveKeepsOneActivePerProduct(t *testing.T) {
	store := NewStore()
	alerts := NewAlertRepository(store)
	ctx := context.Background()

	low := newStock(t, 1, 2)
	first := domain.NewLowStockAlert(low, t0)
	require.NoError(t, alerts.Save(ctx, first))
	assert.Error(t, alerts.Save(ctx, domain.NewLowStockAlert(low, t0)))

	first.Resolve(low, t0.Add(time.Minute))
	require.NoError(t, alerts.Save(ctx, first))
	require.NoError(t, alerts.Save(ctx, domain.NewLowStockAlert(low, t0.Add(2*time.Minute))))

	active, err := alerts.FindActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestOutboxDelivery(t *testing.T) {
	store := NewStore()
	repo := NewOutboxRepository(store)
	repo.now = func() time.Time { return t0 }
	ctx := context.Background()

	factory := cloudevents.NewEventFactory(cloudevents.SourceStock)
	var events []*outbox.Event
	for i := int64(1); i <= 2; i++ {
		event, err := outbox.NewEvent("1", "Stock", "retail.stock.events", factory.CreateStockEvent(ctx, "retail.stock.adjusted", i, 0, nil))
		require.NoError(t, err)
		events = append(events, event)
	}
	require.NoError(t, repo.SaveAll(ctx, events))

	require.NoError(t, repo.MarkPublished(ctx, events[0].ID))
	require.NoError(t, repo.IncrementRetry(ctx, events[1].ID, "broker down"))
	assert.Error(t, repo.MarkPublished(ctx, "missing"))

	pending, err := repo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, events[1].ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].RetryCount)

	repo.now = func() time.Time { return t0.Add(2 * time.Hour) }
	deleted, err := repo.DeletePublished(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
	assert.Len(t, repo.Events(), 1)
}

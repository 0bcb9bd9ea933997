package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/logging"
)

func reserveN(t *testing.T, f *fixture, productID int64, orders ...int64) []string {
	t.Helper()
	ids := make([]string, 0, len(orders))
	for _, orderID := range orders {
		r, err := f.service.ReserveStock(context.Background(), ReserveStockCommand{ProductID: productID, OrderID: orderID, Quantity: 1})
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	return ids
}

func TestExpirationSweeper_RespectsBatchSize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultStockServiceConfig())
	f.createStock(t, productP, 10, 0)
	reserveN(t, f, productP, 1, 2, 3)

	f.sweeper = NewExpirationSweeper(f.service, f.reservations, SweeperConfig{Interval: time.Minute, BatchSize: 2}, logging.NewNop(), nil)
	f.sweeper.now = f.clock.Now
	f.clock.Advance(time.Hour)

	first := f.sweeper.RunOnce(ctx)
	assert.Equal(t, 2, first.Found)
	assert.Equal(t, 2, first.Processed)

	second := f.sweeper.RunOnce(ctx)
	assert.Equal(t, 1, second.Found)
	assert.Equal(t, 1, second.Processed)

	s := f.ledger(t, productP)
	assert.Equal(t, 10, s.AvailableQuantity)
	assert.Zero(t, s.ReservedQuantity)
}

func TestExpirationSweeper_FailureDoesNotStopBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultStockServiceConfig())
	f.createStock(t, productP, 10, 0)
	reserveN(t, f, productP, 1, 2)
	f.clock.Advance(time.Hour)

	f.movements.failing = true
	report := f.sweeper.RunOnce(ctx)
	f.movements.failing = false

	assert.Equal(t, 2, report.Found)
	assert.Equal(t, 2, report.Failed)
	assert.Zero(t, report.Processed)
	assert.Equal(t, 2, f.ledger(t, productP).ReservedQuantity, "failed expirations are rolled back")

	report = f.sweeper.RunOnce(ctx)
	assert.Equal(t, 2, report.Processed)
	assert.Zero(t, f.ledger(t, productP).ReservedQuantity)
}

func TestExpirationSweeper_SkipsReservationsSettledMeanwhile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultStockServiceConfig())
	f.createStock(t, productP, 10, 0)
	ids := reserveN(t, f, productP, 1)
	f.clock.Advance(time.Hour)

	// the sweeper saw the reservation as overdue, the order confirmed first
	_, err := f.service.ConfirmReservation(ctx, ids[0])
	require.NoError(t, err)

	ok, err := f.service.ExpireReservation(ctx, ids[0], f.clock.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	r, err := f.service.GetReservation(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, string(domain.ReservationConfirmed), r.Status)
}

func TestExpirationSweeper_StartStop(t *testing.T) {
	f := newFixture(t, DefaultStockServiceConfig())
	f.createStock(t, productP, 10, 0)
	reserveN(t, f, productP, 1, 2)
	f.clock.Advance(time.Hour)

	f.sweeper = NewExpirationSweeper(f.service, f.reservations, SweeperConfig{Interval: 10 * time.Millisecond}, logging.NewNop(), nil)
	f.sweeper.now = f.clock.Now

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, f.sweeper.Start(ctx))
	assert.True(t, f.sweeper.IsRunning())
	assert.Error(t, f.sweeper.Start(ctx), "second start is rejected")

	assert.Eventually(t, func() bool {
		stock, err := f.stocks.FindByProductID(context.Background(), productP)
		return err == nil && stock.ReservedQuantity == 0
	}, 2*time.Second, 10*time.Millisecond)

	f.sweeper.Stop()
	assert.False(t, f.sweeper.IsRunning())
	f.sweeper.Stop()
}

func TestExpirationSweeper_StopsWithContext(t *testing.T) {
	f := newFixture(t, DefaultStockServiceConfig())
	f.sweeper = NewExpirationSweeper(f.service, f.reservations, SweeperConfig{Interval: time.Hour, InitialDelay: time.Hour}, logging.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.sweeper.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		f.sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}

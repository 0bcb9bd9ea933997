package mongodb

import (
	"context"

	"github.com/retail-platform/stock-service/pkg/metrics"
	pkgmongo "github.com/retail-platform/stock-service/pkg/mongodb"
	outboxmongo "github.com/retail-platform/stock-service/pkg/outbox/mongodb"
)

// Backend bundles the MongoDB implementations of the persistence ports
type Backend struct {
	Stocks       *StockRepository
	Movements    *MovementRepository
	Reservations *ReservationRepository
	Alerts       *AlertRepository
	Outbox       *outboxmongo.OutboxRepository
	Tx           *TransactionManager
}

func NewBackend(client *pkgmongo.Client, m *metrics.Metrics) *Backend {
	db := client.Database()
	return &Backend{
		Stocks:       NewStockRepository(db, m),
		Movements:    NewMovementRepository(db, m),
		Reservations: NewReservationRepository(db, m),
		Alerts:       NewAlertRepository(db, m),
		Outbox:       outboxmongo.NewOutboxRepository(db),
		Tx:           NewTransactionManager(client),
	}
}

// EnsureIndexes creates the indexes of every collection
func (b *Backend) EnsureIndexes(ctx context.Context) error {
	for _, ensure := range []func(context.Context) error{
		b.Stocks.EnsureIndexes,
		b.Movements.EnsureIndexes,
		b.Reservations.EnsureIndexes,
		b.Alerts.EnsureIndexes,
		b.Outbox.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}

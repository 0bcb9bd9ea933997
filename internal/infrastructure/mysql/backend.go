package mysql

import (
	"gorm.io/gorm"

	"github.com/retail-platform/stock-service/pkg/metrics"
)

// Backend bundles the MySQL implementations of the persistence ports
type Backend struct {
	Stocks       *StockRepository
	Movements    *MovementRepository
	Reservations *ReservationRepository
	Alerts       *AlertRepository
	Outbox       *OutboxRepository
	Tx           *TransactionManager
}

func NewBackend(db *gorm.DB, m *metrics.Metrics) *Backend {
	return &Backend{
		Stocks:       NewStockRepository(db, m),
		Movements:    NewMovementRepository(db, m),
		Reservations: NewReservationRepository(db, m),
		Alerts:       NewAlertRepository(db, m),
		Outbox:       NewOutboxRepository(db),
		Tx:           NewTransactionManager(db),
	}
}

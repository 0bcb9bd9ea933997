package domain

import (
	"context"
	"time"
)

// StockRepository persists product ledgers. Reads inside WithinTransaction
// take a row lock on backends that support one.
type StockRepository interface {
	// Create inserts a new ledger, ErrDuplicateStock if the product already has one
	Create(ctx context.Context, stock *Stock) error
	// Save updates an existing ledger, ErrConcurrentModification on version mismatch
	Save(ctx context.Context, stock *Stock) error
	// FindByProductID returns nil, nil when the product has no ledger
	FindByProductID(ctx context.Context, productID int64) (*Stock, error)
	FindAll(ctx context.Context, offset, limit int) ([]*Stock, int64, error)
	FindLowStock(ctx context.Context) ([]*Stock, error)
}

// MovementRepository is append-only
type MovementRepository interface {
	Append(ctx context.Context, movement *StockMovement) error
	// FindByProductID returns movements newest first with the total count
	FindByProductID(ctx context.Context, productID int64, offset, limit int) ([]*StockMovement, int64, error)
}

type ReservationRepository interface {
	Save(ctx context.Context, reservation *StockReservation) error
	// FindByID returns nil, nil when not found
	FindByID(ctx context.Context, id string) (*StockReservation, error)
	FindByOrderID(ctx context.Context, orderID int64) ([]*StockReservation, error)
	// FindExpired returns up to limit ACTIVE reservations whose ExpiresAt is before now, oldest first
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*StockReservation, error)
}

type AlertRepository interface {
	Save(ctx context.Context, alert *LowStockAlert) error
	// FindActiveByProductID returns nil, nil when the product has no ACTIVE alert
	FindActiveByProductID(ctx context.Context, productID int64) (*LowStockAlert, error)
	FindActive(ctx context.Context) ([]*LowStockAlert, error)
}

// EventStager writes domain events to the outbox inside the current transaction
type EventStager interface {
	Stage(ctx context.Context, events ...DomainEvent) error
}

// TransactionManager runs fn atomically. Repositories called with the ctx
// passed to fn take part in the transaction.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductValidator checks products against the catalog. It returns nil,
// ErrProductUnknown, ErrProductInactive or a transport error.
type ProductValidator interface {
	ValidateProductExists(ctx context.Context, productID int64) error
}

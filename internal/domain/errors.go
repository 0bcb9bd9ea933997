package domain

import (
	"errors"
	"fmt"
)

// Stock domain errors
var (
	// ErrInsufficientStock is returned when a request asks for more than is available
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidLedgerState is returned when confirm or release asks for more than is reserved
	ErrInvalidLedgerState = errors.New("invalid ledger state")

	// ErrLedgerInvariantViolation is returned when a mutation would leave physical != available + reserved
	ErrLedgerInvariantViolation = errors.New("ledger invariant violation")

	// ErrInvalidQuantity is returned for zero, negative or otherwise unusable quantities
	ErrInvalidQuantity = errors.New("invalid quantity")

	ErrInvalidMovement = errors.New("invalid stock movement")

	ErrInvalidReservationState = errors.New("invalid reservation state")

	ErrStockNotFound       = errors.New("stock not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrDuplicateStock      = errors.New("stock already exists for product")

	ErrProductUnknown  = errors.New("product unknown")
	ErrProductInactive = errors.New("product inactive")

	// ErrConcurrentModification is returned when an optimistic version check fails
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrLockNotAcquired is returned when a product lock could not be taken in time
	ErrLockNotAcquired = errors.New("product lock not acquired")
)

// InsufficientStockError carries the numbers behind ErrInsufficientStock
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InvalidReservationStateError names the status a reservation was in when a
// transition to Requested was attempted.
type InvalidReservationStateError struct {
	ReservationID string
	Current       ReservationStatus
	Requested     ReservationStatus
}

func (e *InvalidReservationStateError) Error() string {
	return fmt.Sprintf("reservation %s is %s, cannot become %s", e.ReservationID, e.Current, e.Requested)
}

func (e *InvalidReservationStateError) Unwrap() error { return ErrInvalidReservationState }

// LedgerInvariantViolation describes the offending quantities. Seeing one
// means a bug or corrupted data, never a user error.
type LedgerInvariantViolation struct {
	ProductID int64
	Operation string
	Available int
	Reserved  int
	Physical  int
}

func (e *LedgerInvariantViolation) Error() string {
	return fmt.Sprintf("ledger invariant violated for product %d after %s: available=%d reserved=%d physical=%d",
		e.ProductID, e.Operation, e.Available, e.Reserved, e.Physical)
}

func (e *LedgerInvariantViolation) Unwrap() error { return ErrLedgerInvariantViolation }

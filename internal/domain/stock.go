package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultMinimumQuantity is applied when a ledger is created without an explicit threshold
const DefaultMinimumQuantity = 10

// Stock is the quantity ledger of one product. PhysicalQuantity is always
// AvailableQuantity + ReservedQuantity and every quantity is non-negative.
type Stock struct {
	ID                string    `bson:"_id"`
	ProductID         int64     `bson:"productId"`
	AvailableQuantity int       `bson:"availableQuantity"`
	ReservedQuantity  int       `bson:"reservedQuantity"`
	PhysicalQuantity  int       `bson:"physicalQuantity"`
	MinimumQuantity   int       `bson:"minimumQuantity"`
	Version           int64     `bson:"version"`
	CreatedAt         time.Time `bson:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-"`
}

// NewStock creates a ledger holding initial units, all available
func NewStock(productID int64, initial, minimum int, now time.Time) (*Stock, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", ErrInvalidQuantity)
	}
	if initial < 0 {
		return nil, fmt.Errorf("%w: initial quantity must not be negative", ErrInvalidQuantity)
	}
	if minimum < 0 {
		return nil, fmt.Errorf("%w: minimum quantity must not be negative", ErrInvalidQuantity)
	}

	s := &Stock{
		ID:                uuid.New().String(),
		ProductID:         productID,
		AvailableQuantity: initial,
		PhysicalQuantity:  initial,
		MinimumQuantity:   minimum,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.AddDomainEvent(&StockCreatedEvent{
		ProductID:       productID,
		InitialQuantity: initial,
		MinimumQuantity: minimum,
		CreatedAt:       now,
	})
	return s, nil
}

type snapshot struct{ available, reserved, physical int }

func (s *Stock) snapshot() snapshot {
	return snapshot{s.AvailableQuantity, s.ReservedQuantity, s.PhysicalQuantity}
}

func (s *Stock) restore(snap snapshot) {
	s.AvailableQuantity, s.ReservedQuantity, s.PhysicalQuantity = snap.available, snap.reserved, snap.physical
}

// CheckInvariant verifies physical == available + reserved with every quantity >= 0
func (s *Stock) CheckInvariant(operation string) error {
	if s.AvailableQuantity < 0 || s.ReservedQuantity < 0 || s.PhysicalQuantity < 0 ||
		s.PhysicalQuantity != s.AvailableQuantity+s.ReservedQuantity {
		return &LedgerInvariantViolation{
			ProductID: s.ProductID,
			Operation: operation,
			Available: s.AvailableQuantity,
			Reserved:  s.ReservedQuantity,
			Physical:  s.PhysicalQuantity,
		}
	}
	return nil
}

// apply runs mutate and rolls the quantities back if the postcondition fails
func (s *Stock) apply(operation string, now time.Time, mutate func()) error {
	before := s.snapshot()
	mutate()
	if err := s.CheckInvariant(operation); err != nil {
		s.restore(before)
		return err
	}
	s.UpdatedAt = now
	return nil
}

// Reserve moves qty units from available to reserved. No partial reservations.
func (s *Stock) Reserve(qty int, now time.Time) error {
	if qty < 1 {
		return fmt.Errorf("%w: reserve quantity must be at least 1", ErrInvalidQuantity)
	}
	if qty > s.AvailableQuantity {
		return &InsufficientStockError{ProductID: s.ProductID, Requested: qty, Available: s.AvailableQuantity}
	}
	return s.apply("reserve", now, func() {
		s.AvailableQuantity -= qty
		s.ReservedQuantity += qty
	})
}

// Confirm consumes qty reserved units; they leave the building so physical drops too
func (s *Stock) Confirm(qty int, now time.Time) error {
	if qty < 1 {
		return fmt.Errorf("%w: confirm quantity must be at least 1", ErrInvalidQuantity)
	}
	if qty > s.ReservedQuantity {
		return fmt.Errorf("%w: confirm %d exceeds reserved %d for product %d", ErrInvalidLedgerState, qty, s.ReservedQuantity, s.ProductID)
	}
	return s.apply("confirm", now, func() {
		s.ReservedQuantity -= qty
		s.PhysicalQuantity -= qty
	})
}

// Release returns qty reserved units to available
func (s *Stock) Release(qty int, now time.Time) error {
	if qty < 1 {
		return fmt.Errorf("%w: release quantity must be at least 1", ErrInvalidQuantity)
	}
	if qty > s.ReservedQuantity {
		return fmt.Errorf("%w: release %d exceeds reserved %d for product %d", ErrInvalidLedgerState, qty, s.ReservedQuantity, s.ProductID)
	}
	return s.apply("release", now, func() {
		s.ReservedQuantity -= qty
		s.AvailableQuantity += qty
	})
}

// AdjustAvailable adds delta (possibly negative) to available and recomputes physical
func (s *Stock) AdjustAvailable(delta int, now time.Time) error {
	if s.AvailableQuantity+delta < 0 {
		return &InsufficientStockError{ProductID: s.ProductID, Requested: -delta, Available: s.AvailableQuantity}
	}
	return s.apply("adjust", now, func() {
		s.AvailableQuantity += delta
		s.PhysicalQuantity = s.AvailableQuantity + s.ReservedQuantity
	})
}

// SetAbsolute overwrites available and recomputes physical. Reserved is untouched.
func (s *Stock) SetAbsolute(newAvailable int, now time.Time) error {
	if newAvailable < 0 {
		return fmt.Errorf("%w: available quantity must not be negative", ErrInvalidQuantity)
	}
	return s.apply("set", now, func() {
		s.AvailableQuantity = newAvailable
		s.PhysicalQuantity = s.AvailableQuantity + s.ReservedQuantity
	})
}

// SetMinimum changes the low-stock threshold
func (s *Stock) SetMinimum(minimum int, now time.Time) error {
	if minimum < 0 {
		return fmt.Errorf("%w: minimum quantity must not be negative", ErrInvalidQuantity)
	}
	previous := s.MinimumQuantity
	s.MinimumQuantity = minimum
	s.UpdatedAt = now
	if previous != minimum {
		s.AddDomainEvent(&MinimumQuantityChangedEvent{
			ProductID:         s.ProductID,
			PreviousMinimum:   previous,
			NewMinimum:        minimum,
			AvailableQuantity: s.AvailableQuantity,
			ChangedAt:         now,
		})
	}
	return nil
}

// IsLowStock reports available < minimum
func (s *Stock) IsLowStock() bool {
	return s.AvailableQuantity < s.MinimumQuantity
}

// AddDomainEvent adds a domain event
func (s *Stock) AddDomainEvent(event DomainEvent) {
	s.DomainEvents = append(s.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (s *Stock) ClearDomainEvents() {
	s.DomainEvents = nil
}

// GetDomainEvents returns all domain events
func (s *Stock) GetDomainEvents() []DomainEvent {
	return s.DomainEvents
}

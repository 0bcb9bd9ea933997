package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultReservationTTL is how long an unconfirmed reservation holds stock
const DefaultReservationTTL = 30 * time.Minute

// ReservationStatus represents the status of a stock reservation
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationActive, ReservationConfirmed, ReservationReleased, ReservationExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationConfirmed, ReservationReleased, ReservationExpired:
		return true
	default:
		return false
	}
}

// StockReservation holds Quantity units of one product for one order
type StockReservation struct {
	ID          string            `bson:"_id"`
	ProductID   int64             `bson:"productId"`
	OrderID     int64             `bson:"orderId"`
	Quantity    int               `bson:"quantity"`
	Status      ReservationStatus `bson:"status"`
	ExpiresAt   *time.Time        `bson:"expiresAt,omitempty"`
	ConfirmedAt *time.Time        `bson:"confirmedAt,omitempty"`
	ReleasedAt  *time.Time        `bson:"releasedAt,omitempty"`
	CreatedAt   time.Time         `bson:"createdAt"`
	UpdatedAt   time.Time         `bson:"updatedAt"`

	DomainEvents []DomainEvent `bson:"-"`
}

// NewStockReservation creates an ACTIVE reservation. A ttl <= 0 leaves
// ExpiresAt nil and the reservation is never swept.
func NewStockReservation(productID, orderID int64, quantity int, ttl time.Duration, now time.Time) (*StockReservation, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: reservation quantity must be at least 1", ErrInvalidQuantity)
	}
	if productID <= 0 || orderID <= 0 {
		return nil, fmt.Errorf("%w: product and order ids must be positive", ErrInvalidQuantity)
	}

	r := &StockReservation{
		ID:        uuid.New().String(),
		ProductID: productID,
		OrderID:   orderID,
		Quantity:  quantity,
		Status:    ReservationActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		r.ExpiresAt = &expiresAt
	}

	r.AddDomainEvent(&StockReservedEvent{
		ReservationID: r.ID,
		ProductID:     productID,
		OrderID:       orderID,
		Quantity:      quantity,
		ExpiresAt:     r.ExpiresAt,
		ReservedAt:    now,
	})
	return r, nil
}

func (r *StockReservation) transition(to ReservationStatus, now time.Time) error {
	if r.Status != ReservationActive {
		return &InvalidReservationStateError{ReservationID: r.ID, Current: r.Status, Requested: to}
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// Confirm marks the reservation CONFIRMED
func (r *StockReservation) Confirm(now time.Time) error {
	if err := r.transition(ReservationConfirmed, now); err != nil {
		return err
	}
	r.ConfirmedAt = &now
	r.AddDomainEvent(&ReservationConfirmedEvent{
		ReservationID: r.ID,
		ProductID:     r.ProductID,
		OrderID:       r.OrderID,
		Quantity:      r.Quantity,
		ConfirmedAt:   now,
	})
	return nil
}

// Release marks the reservation RELEASED
func (r *StockReservation) Release(now time.Time) error {
	if err := r.transition(ReservationReleased, now); err != nil {
		return err
	}
	r.ReleasedAt = &now
	r.AddDomainEvent(&ReservationReleasedEvent{
		ReservationID: r.ID,
		ProductID:     r.ProductID,
		OrderID:       r.OrderID,
		Quantity:      r.Quantity,
		ReleasedAt:    now,
	})
	return nil
}

// Expire marks the reservation EXPIRED. ReleasedAt is set as well since the
// units went back to available.
func (r *StockReservation) Expire(now time.Time) error {
	if err := r.transition(ReservationExpired, now); err != nil {
		return err
	}
	r.ReleasedAt = &now
	r.AddDomainEvent(&ReservationExpiredEvent{
		ReservationID: r.ID,
		ProductID:     r.ProductID,
		OrderID:       r.OrderID,
		Quantity:      r.Quantity,
		ExpiredAt:     now,
	})
	return nil
}

// IsExpired is true when the reservation has a deadline and now is past it
func (r *StockReservation) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

func (r *StockReservation) IsActive() bool {
	return r.Status == ReservationActive
}

// AddDomainEvent adds a domain event
func (r *StockReservation) AddDomainEvent(event DomainEvent) {
	r.DomainEvents = append(r.DomainEvents, event)
}

// ClearDomainEvents clears all domain events
func (r *StockReservation) ClearDomainEvents() {
	r.DomainEvents = nil
}

// GetDomainEvents returns all domain events
func (r *StockReservation) GetDomainEvents() []DomainEvent {
	return r.DomainEvents
}

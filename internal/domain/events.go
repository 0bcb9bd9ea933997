package domain

import "time"

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	// ProductRef is the product ledger the event belongs to
	ProductRef() int64
}

// OrderScoped is implemented by events that belong to an order
type OrderScoped interface {
	OrderRef() int64
}

// StockCreatedEvent is emitted when a product ledger is created
type StockCreatedEvent struct {
	ProductID       int64     `json:"productId"`
	InitialQuantity int       `json:"initialQuantity"`
	MinimumQuantity int       `json:"minimumQuantity"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (e *StockCreatedEvent) EventType() string     { return "retail.stock.created" }
func (e *StockCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }
func (e *StockCreatedEvent) ProductRef() int64     { return e.ProductID }

// StockAdjustedEvent is emitted for manual IN, OUT and ADJUSTMENT changes
type StockAdjustedEvent struct {
	ProductID        int64         `json:"productId"`
	MovementType     MovementType  `json:"movementType"`
	Quantity         int           `json:"quantity"`
	PreviousQuantity int           `json:"previousQuantity"`
	NewQuantity      int           `json:"newQuantity"`
	ReferenceType    ReferenceType `json:"referenceType,omitempty"`
	ReferenceID      *int64        `json:"referenceId,omitempty"`
	PhysicalQuantity int           `json:"physicalQuantity"`
	AdjustedAt       time.Time     `json:"adjustedAt"`
}

func (e *StockAdjustedEvent) EventType() string     { return "retail.stock.adjusted" }
func (e *StockAdjustedEvent) OccurredAt() time.Time { return e.AdjustedAt }
func (e *StockAdjustedEvent) ProductRef() int64     { return e.ProductID }

// StockReservedEvent is emitted when units are reserved for an order
type StockReservedEvent struct {
	ReservationID string     `json:"reservationId"`
	ProductID     int64      `json:"productId"`
	OrderID       int64      `json:"orderId"`
	Quantity      int        `json:"quantity"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	ReservedAt    time.Time  `json:"reservedAt"`
}

func (e *StockReservedEvent) EventType() string     { return "retail.stock.reserved" }
func (e *StockReservedEvent) OccurredAt() time.Time { return e.ReservedAt }
func (e *StockReservedEvent) ProductRef() int64     { return e.ProductID }
func (e *StockReservedEvent) OrderRef() int64       { return e.OrderID }

// ReservationConfirmedEvent is emitted when reserved units are consumed by an order
type ReservationConfirmedEvent struct {
	ReservationID string    `json:"reservationId"`
	ProductID     int64     `json:"productId"`
	OrderID       int64     `json:"orderId"`
	Quantity      int       `json:"quantity"`
	ConfirmedAt   time.Time `json:"confirmedAt"`
}

func (e *ReservationConfirmedEvent) EventType() string {
	return "retail.stock.reservation-confirmed"
}
func (e *ReservationConfirmedEvent) OccurredAt() time.Time { return e.ConfirmedAt }
func (e *ReservationConfirmedEvent) ProductRef() int64     { return e.ProductID }
func (e *ReservationConfirmedEvent) OrderRef() int64       { return e.OrderID }

type ReservationReleasedEvent struct {
	ReservationID string    `json:"reservationId"`
	ProductID     int64     `json:"productId"`
	OrderID       int64     `json:"orderId"`
	Quantity      int       `json:"quantity"`
	ReleasedAt    time.Time `json:"releasedAt"`
}

func (e *ReservationReleasedEvent) EventType() string {
	return "retail.stock.reservation-released"
}
func (e *ReservationReleasedEvent) OccurredAt() time.Time { return e.ReleasedAt }
func (e *ReservationReleasedEvent) ProductRef() int64     { return e.ProductID }
func (e *ReservationReleasedEvent) OrderRef() int64       { return e.OrderID }

type ReservationExpiredEvent struct {
	ReservationID string    `json:"reservationId"`
	ProductID     int64     `json:"productId"`
	OrderID       int64     `json:"orderId"`
	Quantity      int       `json:"quantity"`
	ExpiredAt     time.Time `json:"expiredAt"`
}

func (e *ReservationExpiredEvent) EventType() string {
	return "retail.stock.reservation-expired"
}
func (e *ReservationExpiredEvent) OccurredAt() time.Time { return e.ExpiredAt }
func (e *ReservationExpiredEvent) ProductRef() int64     { return e.ProductID }
func (e *ReservationExpiredEvent) OrderRef() int64       { return e.OrderID }

// MinimumQuantityChangedEvent is emitted when the low-stock threshold changes
type MinimumQuantityChangedEvent struct {
	ProductID         int64     `json:"productId"`
	PreviousMinimum   int       `json:"previousMinimum"`
	NewMinimum        int       `json:"newMinimum"`
	AvailableQuantity int       `json:"availableQuantity"`
	ChangedAt         time.Time `json:"changedAt"`
}

func (e *MinimumQuantityChangedEvent) EventType() string     { return "retail.stock.minimum-changed" }
func (e *MinimumQuantityChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
func (e *MinimumQuantityChangedEvent) ProductRef() int64     { return e.ProductID }

// LowStockAlertOpenedEvent is emitted when available drops below minimum
type LowStockAlertOpenedEvent struct {
	AlertID           string    `json:"alertId"`
	ProductID         int64     `json:"productId"`
	AvailableQuantity int       `json:"availableQuantity"`
	MinimumQuantity   int       `json:"minimumQuantity"`
	OpenedAt          time.Time `json:"openedAt"`
}

func (e *LowStockAlertOpenedEvent) EventType() string {
	return "retail.stock.low-stock-alert-opened"
}
func (e *LowStockAlertOpenedEvent) OccurredAt() time.Time { return e.OpenedAt }
func (e *LowStockAlertOpenedEvent) ProductRef() int64     { return e.ProductID }

// LowStockAlertResolvedEvent is emitted when available is back at or above minimum
type LowStockAlertResolvedEvent struct {
	AlertID           string    `json:"alertId"`
	ProductID         int64     `json:"productId"`
	AvailableQuantity int       `json:"availableQuantity"`
	MinimumQuantity   int       `json:"minimumQuantity"`
	ResolvedAt        time.Time `json:"resolvedAt"`
}

func (e *LowStockAlertResolvedEvent) EventType() string {
	return "retail.stock.low-stock-alert-resolved"
}
func (e *LowStockAlertResolvedEvent) OccurredAt() time.Time { return e.ResolvedAt }
func (e *LowStockAlertResolvedEvent) ProductRef() int64     { return e.ProductID }

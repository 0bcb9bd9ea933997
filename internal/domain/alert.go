package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertStatus represents the status of a low-stock alert
type AlertStatus string

const (
	AlertActive   AlertStatus = "ACTIVE"
	AlertResolved AlertStatus = "RESOLVED"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertActive, AlertResolved:
		return true
	default:
		return false
	}
}

// LowStockAlert records that a product fell below its minimum. A product has
// at most one ACTIVE alert.
type LowStockAlert struct {
	ID                string      `bson:"_id"`
	ProductID         int64       `bson:"productId"`
	AvailableQuantity int         `bson:"availableQuantity"`
	MinimumQuantity   int         `bson:"minimumQuantity"`
	AlertStatus       AlertStatus `bson:"alertStatus"`
	CreatedAt         time.Time   `bson:"createdAt"`
	ResolvedAt        *time.Time  `bson:"resolvedAt,omitempty"`

	DomainEvents []DomainEvent `bson:"-"`
}

// NewLowStockAlert opens an alert from the ledger's current numbers
func NewLowStockAlert(stock *Stock, now time.Time) *LowStockAlert {
	a := &LowStockAlert{
		ID:                uuid.New().String(),
		ProductID:         stock.ProductID,
		AvailableQuantity: stock.AvailableQuantity,
		MinimumQuantity:   stock.MinimumQuantity,
		AlertStatus:       AlertActive,
		CreatedAt:         now,
	}
	a.AddDomainEvent(&LowStockAlertOpenedEvent{
		AlertID:           a.ID,
		ProductID:         a.ProductID,
		AvailableQuantity: a.AvailableQuantity,
		MinimumQuantity:   a.MinimumQuantity,
		OpenedAt:          now,
	})
	return a
}

// Resolve closes the alert. Resolving a RESOLVED alert is a no-op.
func (a *LowStockAlert) Resolve(stock *Stock, now time.Time) {
	if a.AlertStatus == AlertResolved {
		return
	}
	a.AlertStatus = AlertResolved
	a.ResolvedAt = &now
	a.AddDomainEvent(&LowStockAlertResolvedEvent{
		AlertID:           a.ID,
		ProductID:         a.ProductID,
		AvailableQuantity: stock.AvailableQuantity,
		MinimumQuantity:   stock.MinimumQuantity,
		ResolvedAt:        now,
	})
}

func (a *LowStockAlert) IsActive() bool {
	return a.AlertStatus == AlertActive
}

func (a *LowStockAlert) AddDomainEvent(event DomainEvent) {
	a.DomainEvents = append(a.DomainEvents, event)
}

func (a *LowStockAlert) ClearDomainEvents() {
	a.DomainEvents = nil
}

func (a *LowStockAlert) GetDomainEvents() []DomainEvent {
	return a.DomainEvents
}

// AlertAction is what the tracker must do after a ledger change
type AlertAction int

const (
	AlertNone AlertAction = iota
	AlertOpen
	AlertResolve
)

func (a AlertAction) String() string {
	switch a {
	case AlertOpen:
		return "open"
	case AlertResolve:
		return "resolve"
	default:
		return "none"
	}
}

// EvaluateAlert decides whether an alert must be opened or resolved for stock.
// active is the product's ACTIVE alert or nil.
//
//	low  && no active  -> open
//	!low && active     -> resolve
//	otherwise          -> none
func EvaluateAlert(stock *Stock, active *LowStockAlert) AlertAction {
	hasActive := active != nil && active.IsActive()
	low := stock.IsLowStock()

	switch {
	case low && !hasActive:
		return AlertOpen
	case !low && hasActive:
		return AlertResolve
	default:
		return AlertNone
	}
}

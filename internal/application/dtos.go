package application

import "time"

// StockDTO represents a product ledger in responses
type StockDTO struct {
	ID                string    `json:"id"`
	ProductID         int64     `json:"productId"`
	ProductName       string    `json:"productName,omitempty"`
	AvailableQuantity int       `json:"availableQuantity"`
	ReservedQuantity  int       `json:"reservedQuantity"`
	PhysicalQuantity  int       `json:"physicalQuantity"`
	MinimumQuantity   int       `json:"minimumQuantity"`
	IsLowStock        bool      `json:"isLowStock"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ReservationDTO represents a stock reservation
type ReservationDTO struct {
	ID          string     `json:"id"`
	ProductID   int64      `json:"productId"`
	OrderID     int64      `json:"orderId"`
	Quantity    int        `json:"quantity"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	ReleasedAt  *time.Time `json:"releasedAt,omitempty"`
}

// MovementDTO represents one entry of the movement history
type MovementDTO struct {
	ID               string    `json:"id"`
	ProductID        int64     `json:"productId"`
	MovementType     string    `json:"movementType"`
	Quantity         int       `json:"quantity"`
	PreviousQuantity int       `json:"previousQuantity"`
	NewQuantity      int       `json:"newQuantity"`
	ReferenceType    string    `json:"referenceType,omitempty"`
	ReferenceID      *int64    `json:"referenceId,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedByUserID  *int64    `json:"createdByUserId,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// LowStockAlertDTO represents a low-stock alert
type LowStockAlertDTO struct {
	ID                string     `json:"id"`
	ProductID         int64      `json:"productId"`
	ProductName       string     `json:"productName,omitempty"`
	AvailableQuantity int        `json:"availableQuantity"`
	MinimumQuantity   int        `json:"minimumQuantity"`
	AlertStatus       string     `json:"alertStatus"`
	CreatedAt         time.Time  `json:"createdAt"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
}

// SweepReport summarises one expiration sweep
type SweepReport struct {
	Found     int           `json:"found"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Rechecked int           `json:"rechecked"`
	Duration  time.Duration `json:"durationNs"`
}

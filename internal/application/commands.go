package application

import "github.com/retail-platform/stock-service/internal/domain"

// CreateStockCommand creates the ledger of a product
type CreateStockCommand struct {
	ProductID       int64
	InitialQuantity int
	MinimumQuantity *int // nil means domain.DefaultMinimumQuantity
	UserID          *int64
}

// ReserveStockCommand holds units of a product for an order
type ReserveStockCommand struct {
	ProductID int64
	OrderID   int64
	Quantity  int
}

// AdjustStockCommand changes available stock outside the reservation flow.
// For IN and OUT Quantity is a delta, for ADJUSTMENT it is the new available value.
type AdjustStockCommand struct {
	ProductID     int64
	MovementType  domain.MovementType
	Quantity      int
	ReferenceType domain.ReferenceType
	ReferenceID   *int64
	Notes         string
	UserID        *int64
}

// UpdateMinimumQuantityCommand changes the low-stock threshold
type UpdateMinimumQuantityCommand struct {
	ProductID       int64
	MinimumQuantity int
}

// ListMovementsQuery pages through a product's movement history
type ListMovementsQuery struct {
	ProductID int64
	Offset    int
	Limit     int
}

// ListStockQuery pages through all ledgers
type ListStockQuery struct {
	Offset int
	Limit  int
}

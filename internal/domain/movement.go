package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a ledger change
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementReserve    MovementType = "RESERVE"
	MovementRelease    MovementType = "RELEASE"
	MovementTransfer   MovementType = "TRANSFER"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementReturn     MovementType = "RETURN"
)

// IsValid reports whether t is a known movement type
func (t MovementType) IsValid() bool {
	switch t {
	case MovementIn, MovementOut, MovementReserve, MovementRelease,
		MovementTransfer, MovementAdjustment, MovementReturn:
		return true
	default:
		return false
	}
}

// ReferenceType names what caused a movement
type ReferenceType string

const (
	ReferenceOrder    ReferenceType = "ORDER"
	ReferencePurchase ReferenceType = "PURCHASE"
	ReferenceManual   ReferenceType = "MANUAL"
	ReferenceTransfer ReferenceType = "TRANSFER"
	ReferenceReturn   ReferenceType = "RETURN"
)

func (t ReferenceType) IsValid() bool {
	switch t {
	case ReferenceOrder, ReferencePurchase, ReferenceManual, ReferenceTransfer, ReferenceReturn:
		return true
	default:
		return false
	}
}

// StockMovement is an immutable audit record of one ledger change.
// PreviousQuantity and NewQuantity measure AvailableQuantity, except for the
// OUT written on reservation confirm, which measures PhysicalQuantity.
type StockMovement struct {
	ID               string        `bson:"_id"`
	ProductID        int64         `bson:"productId"`
	MovementType     MovementType  `bson:"movementType"`
	Quantity         int           `bson:"quantity"`
	PreviousQuantity int           `bson:"previousQuantity"`
	NewQuantity      int           `bson:"newQuantity"`
	ReferenceType    ReferenceType `bson:"referenceType,omitempty"`
	ReferenceID      *int64        `bson:"referenceId,omitempty"`
	Notes            string        `bson:"notes,omitempty"`
	CreatedByUserID  *int64        `bson:"createdByUserId,omitempty"`
	CreatedAt        time.Time     `bson:"createdAt"`
}

// MovementSpec is the input to NewStockMovement
type MovementSpec struct {
	ProductID        int64
	MovementType     MovementType
	Quantity         int
	PreviousQuantity int
	NewQuantity      int
	ReferenceType    ReferenceType
	ReferenceID      *int64
	Notes            string
	CreatedByUserID  *int64
	CreatedAt        time.Time
}

// NewStockMovement validates spec and builds a movement record
func NewStockMovement(spec MovementSpec) (*StockMovement, error) {
	if spec.ProductID <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", ErrInvalidMovement)
	}
	if !spec.MovementType.IsValid() {
		return nil, fmt.Errorf("%w: unknown movement type %q", ErrInvalidMovement, spec.MovementType)
	}
	if spec.ReferenceType != "" && !spec.ReferenceType.IsValid() {
		return nil, fmt.Errorf("%w: unknown reference type %q", ErrInvalidMovement, spec.ReferenceType)
	}
	if spec.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidMovement)
	}
	if spec.PreviousQuantity < 0 || spec.NewQuantity < 0 {
		return nil, fmt.Errorf("%w: previous and new quantities must not be negative", ErrInvalidMovement)
	}

	createdAt := spec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	// v7 ids sort by creation, which breaks createdAt ties in history queries
	return &StockMovement{
		ID:               uuid.Must(uuid.NewV7()).String(),
		ProductID:        spec.ProductID,
		MovementType:     spec.MovementType,
		Quantity:         spec.Quantity,
		PreviousQuantity: spec.PreviousQuantity,
		NewQuantity:      spec.NewQuantity,
		ReferenceType:    spec.ReferenceType,
		ReferenceID:      spec.ReferenceID,
		Notes:            spec.Notes,
		CreatedByUserID:  spec.CreatedByUserID,
		CreatedAt:        createdAt,
	}, nil
}

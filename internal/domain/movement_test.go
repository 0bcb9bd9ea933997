package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStockMovement(t *testing.T) {
	orderID := int64(1001)
	m, err := NewStockMovement(MovementSpec{
		ProductID:        42,
		MovementType:     MovementReserve,
		Quantity:         3,
		PreviousQuantity: 10,
		NewQuantity:      7,
		ReferenceType:    ReferenceOrder,
		ReferenceID:      &orderID,
		Notes:            "Stock reserved for order 1001",
		CreatedAt:        testNow,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, MovementReserve, m.MovementType)
	assert.Equal(t, 10, m.PreviousQuantity)
	assert.Equal(t, 7, m.NewQuantity)
	assert.Equal(t, testNow, m.CreatedAt)
	assert.Equal(t, orderID, *m.ReferenceID)
}

func TestNewStockMovement_Rejects(t *testing.T) {
	valid := MovementSpec{ProductID: 42, MovementType: MovementIn, Quantity: 1, PreviousQuantity: 0, NewQuantity: 1}

	tests := []struct {
		name   string
		mutate func(s *MovementSpec)
	}{
		{"zero quantity", func(s *MovementSpec) { s.Quantity = 0 }},
		{"negative quantity", func(s *MovementSpec) { s.Quantity = -2 }},
		{"negative previous", func(s *MovementSpec) { s.PreviousQuantity = -1 }},
		{"negative new", func(s *MovementSpec) { s.NewQuantity = -1 }},
		{"unknown type", func(s *MovementSpec) { s.MovementType = "SHRINK" }},
		{"unknown reference", func(s *MovementSpec) { s.ReferenceType = "INVOICE" }},
		{"missing product", func(s *MovementSpec) { s.ProductID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid
			tt.mutate(&spec)
			_, err := NewStockMovement(spec)
			assert.ErrorIs(t, err, ErrInvalidMovement)
		})
	}
}

func TestMovementType_IsValid(t *testing.T) {
	for _, mt := range []MovementType{MovementIn, MovementOut, MovementReserve, MovementRelease, MovementTransfer, MovementAdjustment, MovementReturn} {
		assert.True(t, mt.IsValid(), mt)
	}
	assert.False(t, MovementType("").IsValid())
	assert.True(t, ReferencePurchase.IsValid())
	assert.False(t, ReferenceType("").IsValid())
}

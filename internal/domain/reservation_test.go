package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockReservation_Lifecycle(t *testing.T) {
	r, err := NewStockReservation(42, 1001, 3, DefaultReservationTTL, testNow)
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, ReservationActive, r.Status)
	require.NotNil(t, r.ExpiresAt)
	assert.Equal(t, testNow.Add(30*time.Minute), *r.ExpiresAt)
	require.Len(t, r.GetDomainEvents(), 1)
	assert.Equal(t, "retail.stock.reserved", r.GetDomainEvents()[0].EventType())

	later := testNow.Add(time.Minute)
	require.NoError(t, r.Confirm(later))
	assert.Equal(t, ReservationConfirmed, r.Status)
	require.NotNil(t, r.ConfirmedAt)
	assert.Equal(t, later, *r.ConfirmedAt)
	assert.Nil(t, r.ReleasedAt)
}

func TestStockReservation_Release(t *testing.T) {
	r, err := NewStockReservation(42, 1001, 3, DefaultReservationTTL, testNow)
	require.NoError(t, err)

	require.NoError(t, r.Release(testNow))
	assert.Equal(t, ReservationReleased, r.Status)
	assert.NotNil(t, r.ReleasedAt)
}

func TestStockReservation_ExpireSetsReleasedAt(t *testing.T) {
	r, err := NewStockReservation(42, 1001, 3, DefaultReservationTTL, testNow)
	require.NoError(t, err)

	at := testNow.Add(31 * time.Minute)
	require.NoError(t, r.Expire(at))
	assert.Equal(t, ReservationExpired, r.Status)
	require.NotNil(t, r.ReleasedAt)
	assert.Equal(t, at, *r.ReleasedAt)
}

func TestStockReservation_TerminalStatesRejectTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *StockReservation) error
	}{
		{"confirmed", func(r *StockReservation) error { return r.Confirm(testNow) }},
		{"released", func(r *StockReservation) error { return r.Release(testNow) }},
		{"expired", func(r *StockReservation) error { return r.Expire(testNow) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewStockReservation(42, 1001, 3, DefaultReservationTTL, testNow)
			require.NoError(t, err)
			require.NoError(t, tt.setup(r))
			status := r.Status

			for _, next := range []func(time.Time) error{r.Confirm, r.Release, r.Expire} {
				err := next(testNow)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidReservationState)

				var stateErr *InvalidReservationStateError
				require.True(t, errors.As(err, &stateErr))
				assert.Equal(t, r.ID, stateErr.ReservationID)
				assert.Equal(t, status, stateErr.Current)
			}
			assert.Equal(t, status, r.Status)
		})
	}
}

func TestStockReservation_IsExpired(t *testing.T) {
	r, err := NewStockReservation(42, 1001, 3, time.Minute, testNow)
	require.NoError(t, err)

	assert.False(t, r.IsExpired(testNow))
	assert.False(t, r.IsExpired(testNow.Add(time.Minute)))
	assert.True(t, r.IsExpired(testNow.Add(time.Minute+time.Second)))
}

func TestStockReservation_NonPositiveTTLNeverExpires(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Minute} {
		r, err := NewStockReservation(42, 1001, 3, ttl, testNow)
		require.NoError(t, err)
		assert.Nil(t, r.ExpiresAt)
		assert.False(t, r.IsExpired(testNow.Add(24*time.Hour)))
	}
}

func TestNewStockReservation_Validation(t *testing.T) {
	_, err := NewStockReservation(42, 1001, 0, time.Minute, testNow)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewStockReservation(42, 0, 1, time.Minute, testNow)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestReservationStatus(t *testing.T) {
	assert.True(t, ReservationActive.IsValid())
	assert.False(t, ReservationStatus("PENDING").IsValid())
	assert.False(t, ReservationActive.IsTerminal())
	assert.True(t, ReservationExpired.IsTerminal())
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAlert(t *testing.T) {
	tests := []struct {
		name      string
		available int
		minimum   int
		active    bool
		want      AlertAction
	}{
		{"low without alert opens", 4, 5, false, AlertOpen},
		{"low with alert does nothing", 4, 5, true, AlertNone},
		{"healthy with alert resolves", 5, 5, true, AlertResolve},
		{"healthy without alert does nothing", 10, 5, false, AlertNone},
		{"zero minimum never low", 0, 0, false, AlertNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStock(t, tt.available, tt.minimum)
			var active *LowStockAlert
			if tt.active {
				active = NewLowStockAlert(s, testNow)
			}
			assert.Equal(t, tt.want, EvaluateAlert(s, active))
		})
	}
}

func TestEvaluateAlert_ResolvedAlertCountsAsNone(t *testing.T) {
	s := newTestStock(t, 1, 5)
	alert := NewLowStockAlert(s, testNow)
	alert.Resolve(s, testNow)

	assert.Equal(t, AlertOpen, EvaluateAlert(s, alert))
}

func TestLowStockAlert_Lifecycle(t *testing.T) {
	s := newTestStock(t, 3, 10)

	alert := NewLowStockAlert(s, testNow)
	assert.True(t, alert.IsActive())
	assert.Equal(t, 3, alert.AvailableQuantity)
	assert.Equal(t, 10, alert.MinimumQuantity)
	require.Len(t, alert.GetDomainEvents(), 1)
	assert.Equal(t, "retail.stock.low-stock-alert-opened", alert.GetDomainEvents()[0].EventType())
	alert.ClearDomainEvents()

	require.NoError(t, s.AdjustAvailable(20, testNow))
	alert.Resolve(s, testNow)
	assert.Equal(t, AlertResolved, alert.AlertStatus)
	require.NotNil(t, alert.ResolvedAt)
	require.Len(t, alert.GetDomainEvents(), 1)

	resolved := alert.GetDomainEvents()[0].(*LowStockAlertResolvedEvent)
	assert.Equal(t, 23, resolved.AvailableQuantity)

	alert.Resolve(s, testNow)
	assert.Len(t, alert.GetDomainEvents(), 1)
}

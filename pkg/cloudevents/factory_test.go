package cloudevents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/retail-platform/stock-service/pkg/logging"
)

func TestCreateStockEvent(t *testing.T) {
	f := NewEventFactory(SourceStock)
	ctx := logging.ContextWithCorrelationID(context.Background(), "corr-1")

	event := f.CreateStockEvent(ctx, StockReserved, 42, 7, map[string]int{"quantity": 3})

	assert.Equal(t, "1.0", event.SpecVersion)
	assert.Equal(t, StockReserved, event.Type)
	assert.Equal(t, SourceStock, event.Source)
	assert.Equal(t, "stock/42", event.Subject)
	assert.Equal(t, "42", event.ProductID)
	assert.Equal(t, "7", event.OrderID)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.NotEmpty(t, event.ID)
	assert.Empty(t, event.TraceParent)
}

func TestCreateStockEvent_NoOrder(t *testing.T) {
	f := NewEventFactory(SourceStock)

	event := f.CreateStockEvent(context.Background(), StockAdjusted, 1, 0, nil)

	assert.Empty(t, event.OrderID)
}

package cloudevents

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/propagation"

	"github.com/retail-platform/stock-service/pkg/logging"
)

// EventFactory creates CloudEvents for a single source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent creates a new CloudEvent. The correlation id and the current
// trace context are copied from ctx when present.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *CloudEvent {
	event := &CloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
		CorrelationID:   logging.CorrelationIDFromContext(ctx),
	}

	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	event.TraceParent = carrier.Get("traceparent")
	event.TraceState = carrier.Get("tracestate")

	return event
}

// CreateStockEvent creates an event whose subject is the product ledger.
// orderID is attached as an extension when non-zero.
func (f *EventFactory) CreateStockEvent(ctx context.Context, eventType string, productID, orderID int64, data interface{}) *CloudEvent {
	event := f.CreateEvent(ctx, eventType, "stock/"+strconv.FormatInt(productID, 10), data)
	event.ProductID = strconv.FormatInt(productID, 10)
	if orderID != 0 {
		event.OrderID = strconv.FormatInt(orderID, 10)
	}
	return event
}

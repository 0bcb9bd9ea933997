package cloudevents

import (
	"time"
)

// Event types emitted by the stock service
const (
	StockCreated               = "retail.stock.created"
	StockAdjusted              = "retail.stock.adjusted"
	StockReserved              = "retail.stock.reserved"
	StockReservationConfirmed  = "retail.stock.reservation-confirmed"
	StockReservationReleased   = "retail.stock.reservation-released"
	StockReservationExpired    = "retail.stock.reservation-expired"
	StockMinimumChanged        = "retail.stock.minimum-changed"
	StockLowStockAlertOpened   = "retail.stock.low-stock-alert-opened"
	StockLowStockAlertResolved = "retail.stock.low-stock-alert-resolved"
)

// SourceStock is the CloudEvents source of the stock service
const SourceStock = "/retail/stock-service"

// CloudEvent is a CloudEvents v1.0 envelope with the platform extensions
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	CorrelationID string `json:"correlationid,omitempty"`
	ProductID     string `json:"productid,omitempty"`
	OrderID       string `json:"orderid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

package mongodb

import (
	"time"

	"github.com/retail-platform/stock-service/pkg/metrics"
)

// observe records one collection call; use as defer observe(...)(&err)
func observe(m *metrics.Metrics, collection, operation string) func(*error) {
	start := time.Now()
	return func(err *error) {
		m.RecordDBOperation(collection, operation, *err == nil, time.Since(start))
	}
}

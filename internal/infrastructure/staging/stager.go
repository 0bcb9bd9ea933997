// Package staging turns domain events into outbox records inside the
// transaction that produced them.
package staging

import (
	"context"
	"fmt"
	"strconv"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/cloudevents"
	"github.com/retail-platform/stock-service/pkg/kafka"
	"github.com/retail-platform/stock-service/pkg/outbox"
)

// AggregateType is recorded on every staged outbox event
const AggregateType = "Stock"

// OutboxStager implements domain.EventStager on top of an outbox repository
type OutboxStager struct {
	repo    outbox.Repository
	factory *cloudevents.EventFactory
}

// NewOutboxStager creates a new OutboxStager
func NewOutboxStager(repo outbox.Repository, factory *cloudevents.EventFactory) *OutboxStager {
	return &OutboxStager{repo: repo, factory: factory}
}

// Stage converts events to CloudEvents and saves them with ctx, so they
// commit or roll back with the surrounding transaction.
func (s *OutboxStager) Stage(ctx context.Context, events ...domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	records := make([]*outbox.Event, 0, len(events))
	for _, event := range events {
		var orderID int64
		if scoped, ok := event.(domain.OrderScoped); ok {
			orderID = scoped.OrderRef()
		}

		ce := s.factory.CreateStockEvent(ctx, event.EventType(), event.ProductRef(), orderID, event)
		ce.Time = event.OccurredAt().UTC()

		record, err := outbox.NewEvent(strconv.FormatInt(event.ProductRef(), 10), AggregateType, TopicFor(event), ce)
		if err != nil {
			return fmt.Errorf("failed to create outbox event for %s: %w", event.EventType(), err)
		}
		records = append(records, record)
	}

	return s.repo.SaveAll(ctx, records)
}

// TopicFor routes alert events to the alert topic and everything else to the stock topic
func TopicFor(event domain.DomainEvent) string {
	switch event.(type) {
	case *domain.LowStockAlertOpenedEvent, *domain.LowStockAlertResolvedEvent:
		return kafka.Topics.AlertEvents
	default:
		return kafka.Topics.StockEvents
	}
}

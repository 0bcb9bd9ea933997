package outbox

import (
	"context"
	"time"
)

// Repository persists outbox events. SaveAll must honour the transaction
// carried by ctx so events commit or roll back with the state change.
type Repository interface {
	SaveAll(ctx context.Context, events []*Event) error

	// FindUnpublished returns undelivered events below the retry limit, oldest first
	FindUnpublished(ctx context.Context, limit int) ([]*Event, error)

	MarkPublished(ctx context.Context, eventID string) error

	IncrementRetry(ctx context.Context, eventID string, errorMsg string) error

	// DeletePublished removes events delivered before now-olderThan
	DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error)
}

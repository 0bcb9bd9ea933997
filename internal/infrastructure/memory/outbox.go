package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/retail-platform/stock-service/pkg/outbox"
)

// OutboxRepository implements outbox.Repository on the memory store
type OutboxRepository struct {
	store *Store
	now   func() time.Time
}

func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store, now: time.Now}
}

func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.Event) error {
	defer r.store.write(ctx)()

	for _, e := range events {
		r.store.outbox = append(r.store.outbox, *e)
	}
	return nil
}

func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.Event, error) {
	defer r.store.read(ctx)()

	var result []*outbox.Event
	for i := range r.store.outbox {
		if !r.store.outbox[i].ShouldRetry() {
			continue
		}
		e := r.store.outbox[i]
		result = append(result, &e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	defer r.store.write(ctx)()

	e, err := r.find(eventID)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	e.PublishedAt = &now
	return nil
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	defer r.store.write(ctx)()

	e, err := r.find(eventID)
	if err != nil {
		return err
	}
	e.RetryCount++
	e.LastError = errorMsg
	return nil
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	defer r.store.write(ctx)()

	cutoff := r.now().UTC().Add(-olderThan)
	kept := r.store.outbox[:0]
	var deleted int64
	for _, e := range r.store.outbox {
		if e.PublishedAt != nil && e.PublishedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.store.outbox = kept
	return deleted, nil
}

// Events returns a copy of every stored outbox event, oldest first
func (r *OutboxRepository) Events() []outbox.Event {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]outbox.Event(nil), r.store.outbox...)
}

func (r *OutboxRepository) find(eventID string) (*outbox.Event, error) {
	for i := range r.store.outbox {
		if r.store.outbox[i].ID == eventID {
			return &r.store.outbox[i], nil
		}
	}
	return nil, fmt.Errorf("outbox event %s not found", eventID)
}

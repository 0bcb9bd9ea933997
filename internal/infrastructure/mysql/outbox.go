package mysql

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/retail-platform/stock-service/pkg/outbox"
)

// OutboxRepository implements outbox.Repository on the outbox_events table.
// SaveAll joins the transaction carried by ctx.
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) SaveAll(ctx context.Context, events []*outbox.Event) error {
	if len(events) == 0 {
		return nil
	}
	db, _ := conn(ctx, r.db)
	if err := db.Create(events).Error; err != nil {
		return fmt.Errorf("failed to save outbox events: %w", err)
	}
	return nil
}

func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]*outbox.Event, error) {
	var events []*outbox.Event
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL AND retry_count < ?", outbox.DefaultMaxRetries).
		Order("created_at").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find unpublished events: %w", err)
	}
	return events, nil
}

func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	result := r.db.WithContext(ctx).Model(&outbox.Event{}).
		Where("id = ?", eventID).
		Update("published_at", time.Now().UTC())
	if result.Error != nil {
		return fmt.Errorf("failed to mark event as published: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

func (r *OutboxRepository) IncrementRetry(ctx context.Context, eventID string, errorMsg string) error {
	result := r.db.WithContext(ctx).Model(&outbox.Event{}).
		Where("id = ?", eventID).
		Updates(map[string]interface{}{
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  errorMsg,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to increment retry count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("event not found: %s", eventID)
	}
	return nil
}

func (r *OutboxRepository) DeletePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := time.Now().UTC().Add(-olderThan)
	result := r.db.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", threshold).
		Delete(&outbox.Event{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete published events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

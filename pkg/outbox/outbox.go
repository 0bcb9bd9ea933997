package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/retail-platform/stock-service/pkg/cloudevents"
)

// DefaultMaxRetries bounds delivery attempts before an event is parked
const DefaultMaxRetries = 10

// Event is a CloudEvent stored alongside the state change that produced it.
// It is written in the same transaction and delivered later by the Publisher.
type Event struct {
	ID            string          `bson:"_id" json:"id" gorm:"primaryKey;size:36"`
	AggregateID   string          `bson:"aggregateId" json:"aggregateId" gorm:"size:64;index"`
	AggregateType string          `bson:"aggregateType" json:"aggregateType" gorm:"size:64"`
	EventType     string          `bson:"eventType" json:"eventType" gorm:"size:128"`
	Topic         string          `bson:"topic" json:"topic" gorm:"size:128"`
	Payload       json.RawMessage `bson:"payload" json:"payload" gorm:"type:json"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt" gorm:"index"`
	PublishedAt   *time.Time      `bson:"publishedAt,omitempty" json:"publishedAt,omitempty" gorm:"index"`
	RetryCount    int             `bson:"retryCount" json:"retryCount"`
	LastError     string          `bson:"lastError,omitempty" json:"lastError,omitempty" gorm:"type:text"`
}

// TableName is used by the gorm backed repository
func (Event) TableName() string { return "outbox_events" }

// NewEvent wraps a CloudEvent for the outbox
func NewEvent(aggregateID, aggregateType, topic string, ce *cloudevents.CloudEvent) (*Event, error) {
	payload, err := json.Marshal(ce)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     ce.Type,
		Topic:         topic,
		Payload:       payload,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// IsPublished checks if the event has been published
func (e *Event) IsPublished() bool {
	return e.PublishedAt != nil
}

// ShouldRetry checks if the event is still eligible for delivery
func (e *Event) ShouldRetry() bool {
	return !e.IsPublished() && e.RetryCount < DefaultMaxRetries
}

// ToCloudEvent decodes the stored payload
func (e *Event) ToCloudEvent() (*cloudevents.CloudEvent, error) {
	var ce cloudevents.CloudEvent
	if err := json.Unmarshal(e.Payload, &ce); err != nil {
		return nil, err
	}
	return &ce, nil
}

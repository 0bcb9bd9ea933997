package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retail-platform/stock-service/pkg/kafka"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/metrics"
)

// Publisher delivers outbox events to Kafka
type Publisher struct {
	repo      Repository
	producer  kafka.EventPublisher
	logger    *logging.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	batchSize int
	retention time.Duration

	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	stoppedCh    chan struct{}
	publishedCnt int
	failedCnt    int
}

// PublisherConfig holds configuration for the outbox publisher
type PublisherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// Retention is how long delivered events are kept; zero disables cleanup
	Retention time.Duration
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		PollInterval: time.Second,
		BatchSize:    100,
		Retention:    7 * 24 * time.Hour,
	}
}

// NewPublisher creates a new outbox publisher
func NewPublisher(repo Repository, producer kafka.EventPublisher, logger *logging.Logger, m *metrics.Metrics, config *PublisherConfig) *Publisher {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	return &Publisher{
		repo:      repo,
		producer:  producer,
		logger:    logger.WithComponent("outbox-publisher"),
		metrics:   m,
		interval:  config.PollInterval,
		batchSize: config.BatchSize,
		retention: config.Retention,
	}
}

// Start starts the polling loop
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("publisher already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.stoppedCh = make(chan struct{})

	p.logger.Info("Starting outbox publisher", "interval", p.interval, "batchSize", p.batchSize)

	go p.run(ctx, p.stopCh, p.stoppedCh)
	return nil
}

// Stop stops the loop and waits for the in-flight batch to finish
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return fmt.Errorf("publisher not running")
	}
	stopCh, stoppedCh := p.stopCh, p.stoppedCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)
	<-stoppedCh

	stats := p.Stats()
	p.logger.Info("Outbox publisher stopped", "published", stats["published"], "failed", stats["failed"])
	return nil
}

func (p *Publisher) run(ctx context.Context, stopCh <-chan struct{}, stoppedCh chan<- struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var lastCleanup time.Time
	for {
		select {
		case <-ticker.C:
			p.ProcessBatch(ctx)
			if p.retention > 0 && time.Since(lastCleanup) > time.Hour {
				p.cleanup(ctx)
				lastCleanup = time.Now()
			}
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ProcessBatch publishes one batch of pending events and returns how many were delivered
func (p *Publisher) ProcessBatch(ctx context.Context) int {
	events, err := p.repo.FindUnpublished(ctx, p.batchSize)
	if err != nil {
		p.logger.WithError(err).Error("Failed to find unpublished events")
		return 0
	}
	p.metrics.SetOutboxPending(len(events))

	delivered := 0
	for _, event := range events {
		if err := p.publishEvent(ctx, event); err != nil {
			p.logger.WithError(err).Error("Failed to publish event",
				"eventId", event.ID,
				"eventType", event.EventType,
				"aggregateId", event.AggregateID,
			)
			p.incr(&p.failedCnt)
			if err := p.repo.IncrementRetry(ctx, event.ID, err.Error()); err != nil {
				p.logger.WithError(err).Error("Failed to increment retry count", "eventId", event.ID)
			}
			continue
		}

		p.incr(&p.publishedCnt)
		delivered++
		if err := p.repo.MarkPublished(ctx, event.ID); err != nil {
			p.logger.WithError(err).Error("Failed to mark event as published", "eventId", event.ID)
		}
	}
	return delivered
}

func (p *Publisher) publishEvent(ctx context.Context, event *Event) error {
	ce, err := event.ToCloudEvent()
	if err != nil {
		return fmt.Errorf("failed to decode CloudEvent: %w", err)
	}
	if err := p.producer.PublishEvent(ctx, event.Topic, ce); err != nil {
		return fmt.Errorf("failed to publish to Kafka: %w", err)
	}
	return nil
}

func (p *Publisher) cleanup(ctx context.Context) {
	n, err := p.repo.DeletePublished(ctx, p.retention)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to delete published outbox events")
		return
	}
	if n > 0 {
		p.logger.Debug("Deleted published outbox events", "count", n)
	}
}

func (p *Publisher) incr(counter *int) {
	p.mu.Lock()
	*counter++
	p.mu.Unlock()
}

// IsRunning returns whether the publisher is running
func (p *Publisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns publisher statistics
func (p *Publisher) Stats() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int{
		"published": p.publishedCnt,
		"failed":    p.failedCnt,
	}
}

package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/metrics"
)

// SweeperConfig configures the expiration sweeper
type SweeperConfig struct {
	// Interval between runs
	Interval time.Duration `json:"interval"`

	// InitialDelay before the first run after Start
	InitialDelay time.Duration `json:"initialDelay"`

	// BatchSize caps the reservations expired per run
	BatchSize int `json:"batchSize"`
}

// DefaultSweeperConfig returns default configuration
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:     5 * time.Minute,
		InitialDelay: 1 * time.Minute,
		BatchSize:    500,
	}
}

// ExpirationSweeper periodically expires overdue ACTIVE reservations
type ExpirationSweeper struct {
	service      *StockService
	reservations domain.ReservationRepository
	config       SweeperConfig
	logger       *logging.Logger
	metrics      *metrics.Metrics
	now          func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	runMu    sync.Mutex
}

// NewExpirationSweeper creates a new ExpirationSweeper
func NewExpirationSweeper(
	service *StockService,
	reservations domain.ReservationRepository,
	config SweeperConfig,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ExpirationSweeper {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultSweeperConfig().BatchSize
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	return &ExpirationSweeper{
		service:      service,
		reservations: reservations,
		config:       config,
		logger:       logger.WithComponent("expiration-sweeper"),
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Start begins sweeping after the initial delay
func (s *ExpirationSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("expiration sweeper is already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})

	go s.run(ctx, s.stopChan, s.doneChan)

	s.logger.Info("Expiration sweeper started",
		"interval", s.config.Interval.String(),
		"initialDelay", s.config.InitialDelay.String(),
		"batchSize", s.config.BatchSize,
	)
	return nil
}

// Stop signals the loop and waits for an in-flight run to finish
func (s *ExpirationSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.doneChan
	s.running = false
	s.mu.Unlock()

	<-done
	s.logger.Info("Expiration sweeper stopped")
}

// IsRunning returns whether the sweeper loop is active
func (s *ExpirationSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ExpirationSweeper) run(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	if s.config.InitialDelay > 0 {
		timer := time.NewTimer(s.config.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		s.RunOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep. Runs never overlap; a failure on one
// reservation does not stop the others.
func (s *ExpirationSweeper) RunOnce(ctx context.Context) SweepReport {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	var report SweepReport

	report.Rechecked = s.service.RetryPendingAlerts(ctx)

	now := s.now()
	expired, err := s.reservations.FindExpired(ctx, now, s.config.BatchSize)
	if err != nil {
		report.Duration = time.Since(start)
		s.metrics.RecordSweep(0, 1, report.Duration)
		s.logger.WithError(err).Error("Failed to load expired reservations")
		return report
	}
	report.Found = len(expired)

	for _, reservation := range expired {
		ok, err := s.service.ExpireReservation(ctx, reservation.ID, now)
		switch {
		case err != nil:
			report.Failed++
			s.logger.WithError(err).Error("Failed to expire reservation",
				"reservationId", reservation.ID,
				"productId", reservation.ProductID,
				"orderId", reservation.OrderID,
			)
		case ok:
			report.Processed++
			s.logger.Info("Reservation expired",
				"reservationId", reservation.ID,
				"productId", reservation.ProductID,
				"orderId", reservation.OrderID,
				"quantity", reservation.Quantity,
			)
		default:
			report.Skipped++
		}
	}

	report.Duration = time.Since(start)
	s.metrics.RecordSweep(report.Processed, report.Failed, report.Duration)

	if report.Found > 0 || report.Rechecked > 0 {
		s.logger.Info(fmt.Sprintf("Expired reservations sweep completed. Processed: %d/%d", report.Processed, report.Found),
			"failed", report.Failed,
			"skipped", report.Skipped,
			"alertsRechecked", report.Rechecked,
			"duration", report.Duration.String(),
		)
	}
	return report
}

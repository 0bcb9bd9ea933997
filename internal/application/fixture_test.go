package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/internal/infrastructure/locking"
	"github.com/retail-platform/stock-service/internal/infrastructure/memory"
	"github.com/retail-platform/stock-service/internal/infrastructure/staging"
	"github.com/retail-platform/stock-service/pkg/cloudevents"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/outbox"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeCatalog answers ValidateProductExists from a map; unknown ids are valid
type fakeCatalog struct {
	mu     sync.Mutex
	errors map[int64]error
	names  map[int64]string
}

func (c *fakeCatalog) ValidateProductExists(_ context.Context, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors[productID]
}

func (c *fakeCatalog) ProductName(_ context.Context, productID int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.names[productID]
	if !ok {
		return "", errors.New("catalog down")
	}
	return name, nil
}

// flakyAlerts fails every call while failing is set
type flakyAlerts struct {
	domain.AlertRepository
	mu      sync.Mutex
	failing bool
}

func (f *flakyAlerts) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func (f *flakyAlerts) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("alert store unavailable")
	}
	return nil
}

func (f *flakyAlerts) Save(ctx context.Context, a *domain.LowStockAlert) error {
	if err := f.err(); err != nil {
		return err
	}
	return f.AlertRepository.Save(ctx, a)
}

func (f *flakyAlerts) FindActiveByProductID(ctx context.Context, productID int64) (*domain.LowStockAlert, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	return f.AlertRepository.FindActiveByProductID(ctx, productID)
}

// failingMovements rejects appends while failing is set
type failingMovements struct {
	domain.MovementRepository
	failing bool
}

func (f *failingMovements) Append(ctx context.Context, m *domain.StockMovement) error {
	if f.failing {
		return errors.New("movement store unavailable")
	}
	return f.MovementRepository.Append(ctx, m)
}

type fixture struct {
	service      *StockService
	sweeper      *ExpirationSweeper
	clock        *fakeClock
	catalog      *fakeCatalog
	stocks       *memory.StockRepository
	reservations *memory.ReservationRepository
	alerts       *flakyAlerts
	movements    *failingMovements
	outbox       *memory.OutboxRepository
}

func newFixture(t *testing.T, config StockServiceConfig) *fixture {
	t.Helper()

	store := memory.NewStore()
	outboxRepo := memory.NewOutboxRepository(store)
	f := &fixture{
		clock:        &fakeClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)},
		catalog:      &fakeCatalog{errors: map[int64]error{}, names: map[int64]string{}},
		stocks:       memory.NewStockRepository(store),
		reservations: memory.NewReservationRepository(store),
		alerts:       &flakyAlerts{AlertRepository: memory.NewAlertRepository(store)},
		movements:    &failingMovements{MovementRepository: memory.NewMovementRepository(store)},
		outbox:       outboxRepo,
	}

	repos := Repositories{
		Stocks:       f.stocks,
		Movements:    f.movements,
		Reservations: f.reservations,
		Alerts:       f.alerts,
		Tx:           memory.NewTransactionManager(store),
		Events:       staging.NewOutboxStager(outboxRepo, cloudevents.NewEventFactory(cloudevents.SourceStock)),
	}

	f.service = NewStockService(repos, f.catalog, locking.NewKeyedMutex(time.Second), config, logging.NewNop(), nil).
		WithProductNamer(f.catalog)
	f.service.now = f.clock.Now
	f.service.alerts.now = f.clock.Now

	f.sweeper = NewExpirationSweeper(f.service, f.reservations, DefaultSweeperConfig(), logging.NewNop(), nil)
	f.sweeper.now = f.clock.Now
	return f
}

func (f *fixture) createStock(t *testing.T, productID int64, initial, minimum int) {
	t.Helper()
	_, err := f.service.CreateStock(context.Background(), CreateStockCommand{
		ProductID:       productID,
		InitialQuantity: initial,
		MinimumQuantity: &minimum,
	})
	require.NoError(t, err)
}

func (f *fixture) ledger(t *testing.T, productID int64) *domain.Stock {
	t.Helper()
	stock, err := f.stocks.FindByProductID(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, stock)
	require.NoError(t, stock.CheckInvariant("test"))
	return stock
}

func (f *fixture) movementsOf(t *testing.T, productID int64) []*domain.StockMovement {
	t.Helper()
	movements, _, err := f.movements.FindByProductID(context.Background(), productID, 0, 0)
	require.NoError(t, err)
	return movements
}

func (f *fixture) activeAlert(t *testing.T, productID int64) *domain.LowStockAlert {
	t.Helper()
	alert, err := f.alerts.AlertRepository.FindActiveByProductID(context.Background(), productID)
	require.NoError(t, err)
	return alert
}

func (f *fixture) outboxTypes() []string {
	var types []string
	for _, e := range f.outbox.Events() {
		types = append(types, e.EventType)
	}
	return types
}

func (f *fixture) outboxOn(topic string) []outbox.Event {
	var events []outbox.Event
	for _, e := range f.outbox.Events() {
		if e.Topic == topic {
			events = append(events, e)
		}
	}
	return events
}

package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/retail-platform/stock-service/internal/domain"
	pkgmongo "github.com/retail-platform/stock-service/pkg/mongodb"
	stocktesting "github.com/retail-platform/stock-service/pkg/testing"
)

type BackendIntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	container *stocktesting.MongoDBContainer
	client    *pkgmongo.Client
	backend   *Backend
}

func TestBackendIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping MongoDB integration tests in short mode")
	}
	suite.Run(t, new(BackendIntegrationTestSuite))
}

func (s *BackendIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := stocktesting.NewMongoDBContainer(s.ctx)
	if err != nil {
		s.T().Skipf("mongodb container unavailable: %v", err)
	}
	s.container = container

	config := pkgmongo.DefaultConfig()
	config.URI = container.URI
	config.Database = "stock_test"
	s.client, err = pkgmongo.NewClient(s.ctx, config)
	s.Require().NoError(err)

	s.backend = NewBackend(s.client, nil)
}

func (s *BackendIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close(s.ctx)
	}
	if s.container != nil {
		s.Require().NoError(s.container.Close(s.ctx))
	}
}

func (s *BackendIntegrationTestSuite) SetupTest() {
	s.Require().NoError(s.client.Database().Drop(s.ctx))
	s.Require().NoError(s.backend.EnsureIndexes(s.ctx))
}

func (s *BackendIntegrationTestSuite) newStock(productID int64, initial int) *domain.Stock {
	stock, err := domain.NewStock(productID, initial, 5, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.backend.Stocks.Create(s.ctx, stock))
	return stock
}

func (s *BackendIntegrationTestSuite) TestStock_CreateIsUniquePerProduct() {
	s.newStock(1, 10)

	dup, err := domain.NewStock(1, 3, 5, time.Now().UTC())
	s.Require().NoError(err)
	s.ErrorIs(s.backend.Stocks.Create(s.ctx, dup), domain.ErrDuplicateStock)
}

func (s *BackendIntegrationTestSuite) TestStock_SaveChecksVersion() {
	stock := s.newStock(1, 10)
	stale, err := s.backend.Stocks.FindByProductID(s.ctx, 1)
	s.Require().NoError(err)

	s.Require().NoError(stock.Reserve(4, time.Now().UTC()))
	s.Require().NoError(s.backend.Stocks.Save(s.ctx, stock))
	s.Equal(int64(2), stock.Version)

	s.Require().NoError(stale.Reserve(1, time.Now().UTC()))
	s.ErrorIs(s.backend.Stocks.Save(s.ctx, stale), domain.ErrConcurrentModification)

	missing, err := domain.NewStock(2, 1, 0, time.Now().UTC())
	s.Require().NoError(err)
	s.ErrorIs(s.backend.Stocks.Save(s.ctx, missing), domain.ErrStockNotFound)

	stored, err := s.backend.Stocks.FindByProductID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(6, stored.AvailableQuantity)
	s.Equal(4, stored.ReservedQuantity)
	s.Equal(10, stored.PhysicalQuantity)

	none, err := s.backend.Stocks.FindByProductID(s.ctx, 99)
	s.Require().NoError(err)
	s.Nil(none)
}

func (s *BackendIntegrationTestSuite) TestStock_FindLowStock() {
	s.newStock(1, 2)
	s.newStock(2, 20)
	s.newStock(3, 4)

	low, err := s.backend.Stocks.FindLowStock(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(low, 2)
	s.Equal(int64(1), low[0].ProductID)
	s.Equal(int64(3), low[1].ProductID)

	page, total, err := s.backend.Stocks.FindAll(s.ctx, 1, 1)
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(page, 1)
	s.Equal(int64(2), page[0].ProductID)
}

func (s *BackendIntegrationTestSuite) TestTransaction_RollsBackAllWrites() {
	s.newStock(1, 10)

	boom := errors.New("boom")
	err := s.backend.Tx.WithinTransaction(s.ctx, func(ctx context.Context) error {
		stock, err := s.backend.Stocks.FindByProductID(ctx, 1)
		s.Require().NoError(err)
		s.Require().NoError(stock.Reserve(3, time.Now().UTC()))
		s.Require().NoError(s.backend.Stocks.Save(ctx, stock))

		reservation, err := domain.NewStockReservation(1, 7, 3, time.Minute, time.Now().UTC())
		s.Require().NoError(err)
		s.Require().NoError(s.backend.Reservations.Save(ctx, reservation))
		return boom
	})
	s.ErrorIs(err, boom)

	stock, err := s.backend.Stocks.FindByProductID(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(10, stock.AvailableQuantity)

	reservations, err := s.backend.Reservations.FindByOrderID(s.ctx, 7)
	s.Require().NoError(err)
	s.Empty(reservations)
}

func (s *BackendIntegrationTestSuite) TestReservations_FindExpired() {
	now := time.Now().UTC()
	old, err := domain.NewStockReservation(1, 1, 1, time.Minute, now.Add(-time.Hour))
	s.Require().NoError(err)
	fresh, err := domain.NewStockReservation(1, 2, 1, time.Hour, now)
	s.Require().NoError(err)
	forever, err := domain.NewStockReservation(1, 3, 1, 0, now.Add(-time.Hour))
	s.Require().NoError(err)
	confirmed, err := domain.NewStockReservation(1, 4, 1, time.Minute, now.Add(-time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(confirmed.Confirm(now))

	for _, r := range []*domain.StockReservation{old, fresh, forever, confirmed} {
		s.Require().NoError(s.backend.Reservations.Save(s.ctx, r))
	}

	expired, err := s.backend.Reservations.FindExpired(s.ctx, now, 10)
	s.Require().NoError(err)
	s.Require().Len(expired, 1)
	s.Equal(old.ID, expired[0].ID)
}

func (s *BackendIntegrationTestSuite) TestMovements_NewestFirst() {
	now := time.Now().UTC()
	for i := 1; i <= 3; i++ {
		m, err := domain.NewStockMovement(domain.MovementSpec{
			ProductID:    1,
			MovementType: domain.MovementIn,
			Quantity:     i,
			NewQuantity:  i,
			CreatedAt:    now,
		})
		s.Require().NoError(err)
		s.Require().NoError(s.backend.Movements.Append(s.ctx, m))
	}

	movements, total, err := s.backend.Movements.FindByProductID(s.ctx, 1, 0, 2)
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Require().Len(movements, 2)
	s.Equal(3, movements[0].Quantity)
	s.Equal(2, movements[1].Quantity)
}

func (s *BackendIntegrationTestSuite) TestAlerts_OneActivePerProduct() {
	stock := s.newStock(1, 2)
	first := domain.NewLowStockAlert(stock, time.Now().UTC())
	s.Require().NoError(s.backend.Alerts.Save(s.ctx, first))

	second := domain.NewLowStockAlert(stock, time.Now().UTC())
	s.Error(s.backend.Alerts.Save(s.ctx, second))

	first.Resolve(stock, time.Now().UTC())
	s.Require().NoError(s.backend.Alerts.Save(s.ctx, first))
	s.Require().NoError(s.backend.Alerts.Save(s.ctx, second))

	active, err := s.backend.Alerts.FindActiveByProductID(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().NotNil(active)
	s.Equal(second.ID, active.ID)
}

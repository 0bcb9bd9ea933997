package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/metrics"
	"github.com/retail-platform/stock-service/pkg/tracing"
)

const tracerName = "stock-service"

// ProductLocker serialises all work on one product. Different products never contend.
type ProductLocker interface {
	Lock(ctx context.Context, productID int64) (func(), error)
}

// ProductNamer resolves display names for responses
type ProductNamer interface {
	ProductName(ctx context.Context, productID int64) (string, error)
}

// StockServiceConfig holds the tunables of the reservation engine
type StockServiceConfig struct {
	// ReservationTTL is added to the creation time to get ExpiresAt. <= 0 disables expiry.
	ReservationTTL time.Duration
}

// DefaultStockServiceConfig returns default configuration
func DefaultStockServiceConfig() StockServiceConfig {
	return StockServiceConfig{ReservationTTL: domain.DefaultReservationTTL}
}

// Repositories groups the persistence ports of one storage backend
type Repositories struct {
	Stocks       domain.StockRepository
	Movements    domain.MovementRepository
	Reservations domain.ReservationRepository
	Alerts       domain.AlertRepository
	Tx           domain.TransactionManager
	Events       domain.EventStager
}

// StockService runs every ledger operation as lock, transaction, commit,
// alert recheck, unlock.
type StockService struct {
	stocks       domain.StockRepository
	movements    domain.MovementRepository
	reservations domain.ReservationRepository
	alertRepo    domain.AlertRepository
	tx           domain.TransactionManager
	events       domain.EventStager
	products     domain.ProductValidator
	names        ProductNamer
	locker       ProductLocker
	alerts       *AlertTracker
	config       StockServiceConfig
	logger       *logging.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewStockService creates a new StockService
func NewStockService(
	repos Repositories,
	products domain.ProductValidator,
	locker ProductLocker,
	config StockServiceConfig,
	logger *logging.Logger,
	m *metrics.Metrics,
) *StockService {
	return &StockService{
		stocks:       repos.Stocks,
		movements:    repos.Movements,
		reservations: repos.Reservations,
		alertRepo:    repos.Alerts,
		tx:           repos.Tx,
		events:       repos.Events,
		products:     products,
		locker:       locker,
		alerts:       NewAlertTracker(repos.Stocks, repos.Alerts, repos.Tx, repos.Events, logger, m),
		config:       config,
		logger:       logger.WithComponent("stock-service"),
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithProductNamer enables product name enrichment of stock and alert responses
func (s *StockService) WithProductNamer(names ProductNamer) *StockService {
	s.names = names
	return s
}

// AlertTracker exposes the tracker, mainly for the sweeper and tests
func (s *StockService) AlertTracker() *AlertTracker {
	return s.alerts
}

// run executes fn for productID under the product lock and in one
// transaction, then rechecks the product's alert. Once the lock is held the
// work is not cancelled by ctx.
func (s *StockService) run(ctx context.Context, operation string, productID int64, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "StockService."+operation,
		attribute.Int64("product.id", productID),
		attribute.String("stock.operation", operation),
	)

	err := s.locked(ctx, productID, fn)

	tracing.EndSpan(span, err)
	s.metrics.RecordStockOperation(operation, operationStatus(err), time.Since(start))
	if errors.Is(err, domain.ErrLedgerInvariantViolation) {
		s.metrics.RecordLedgerInvariantViolation()
		s.logger.WithProduct(productID).WithError(err).Critical(ctx, "Ledger invariant violated, transaction rolled back",
			"operation", operation)
	}
	return err
}

func (s *StockService) locked(ctx context.Context, productID int64, fn func(ctx context.Context) error) error {
	waitStart := time.Now()
	unlock, err := s.locker.Lock(ctx, productID)
	s.metrics.RecordLockWait(err == nil, time.Since(waitStart))
	if err != nil {
		return fmt.Errorf("failed to lock product %d: %w", productID, err)
	}
	defer unlock()

	ctx = context.WithoutCancel(ctx)
	if err := s.tx.WithinTransaction(ctx, fn); err != nil {
		return err
	}

	s.alerts.RecheckAfterCommit(ctx, productID)
	return nil
}

type eventSource interface {
	GetDomainEvents() []domain.DomainEvent
	ClearDomainEvents()
}

// stage hands the pending events of sources to the outbox of the current transaction
func (s *StockService) stage(ctx context.Context, sources ...eventSource) error {
	var events []domain.DomainEvent
	for _, src := range sources {
		events = append(events, src.GetDomainEvents()...)
	}
	if len(events) == 0 {
		return nil
	}
	if err := s.events.Stage(ctx, events...); err != nil {
		return fmt.Errorf("failed to stage events: %w", err)
	}
	for _, src := range sources {
		src.ClearDomainEvents()
	}
	return nil
}

func (s *StockService) appendMovement(ctx context.Context, spec domain.MovementSpec) error {
	movement, err := domain.NewStockMovement(spec)
	if err != nil {
		return err
	}
	if err := s.movements.Append(ctx, movement); err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

func (s *StockService) requireStock(ctx context.Context, productID int64) (*domain.Stock, error) {
	stock, err := s.stocks.FindByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock: %w", err)
	}
	if stock == nil {
		return nil, fmt.Errorf("%w: product %d", domain.ErrStockNotFound, productID)
	}
	return stock, nil
}

func (s *StockService) requireReservation(ctx context.Context, id string) (*domain.StockReservation, error) {
	reservation, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrReservationNotFound, id)
	}
	return reservation, nil
}

// CreateStock creates the ledger of a product with its initial quantity
func (s *StockService) CreateStock(ctx context.Context, cmd CreateStockCommand) (*StockDTO, error) {
	minimum := domain.DefaultMinimumQuantity
	if cmd.MinimumQuantity != nil {
		minimum = *cmd.MinimumQuantity
	}
	if cmd.InitialQuantity < 0 || minimum < 0 {
		return nil, MapDomainError(fmt.Errorf("%w: quantities must not be negative", domain.ErrInvalidQuantity))
	}
	if err := s.products.ValidateProductExists(ctx, cmd.ProductID); err != nil {
		return nil, MapDomainError(err)
	}

	var created *domain.Stock
	err := s.run(ctx, "create", cmd.ProductID, func(ctx context.Context) error {
		existing, err := s.stocks.FindByProductID(ctx, cmd.ProductID)
		if err != nil {
			return fmt.Errorf("failed to load stock: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("%w: product %d", domain.ErrDuplicateStock, cmd.ProductID)
		}

		now := s.now()
		stock, err := domain.NewStock(cmd.ProductID, cmd.InitialQuantity, minimum, now)
		if err != nil {
			return err
		}
		if err := s.stocks.Create(ctx, stock); err != nil {
			return err
		}

		if cmd.InitialQuantity > 0 {
			err := s.appendMovement(ctx, domain.MovementSpec{
				ProductID:        cmd.ProductID,
				MovementType:     domain.MovementIn,
				Quantity:         cmd.InitialQuantity,
				PreviousQuantity: 0,
				NewQuantity:      cmd.InitialQuantity,
				ReferenceType:    domain.ReferenceManual,
				Notes:            "Initial stock creation",
				CreatedByUserID:  cmd.UserID,
				CreatedAt:        now,
			})
			if err != nil {
				return err
			}
		}

		created = stock
		return s.stage(ctx, stock)
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to create stock", "productId", cmd.ProductID)
		return nil, MapDomainError(err)
	}

	s.logger.Audit(ctx, "create", "stock", strconv.FormatInt(cmd.ProductID, 10), auditUser(cmd.UserID), map[string]any{
		"initialQuantity": cmd.InitialQuantity,
		"minimumQuantity": minimum,
	})
	return s.withName(ctx, ToStockDTO(created)), nil
}

// ReserveStock holds units for an order. Either the whole quantity is reserved or nothing is.
func (s *StockService) ReserveStock(ctx context.Context, cmd ReserveStockCommand) (*ReservationDTO, error) {
	if cmd.Quantity < 1 {
		return nil, MapDomainError(fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidQuantity))
	}
	if cmd.OrderID <= 0 {
		return nil, MapDomainError(fmt.Errorf("%w: order id must be positive", domain.ErrInvalidQuantity))
	}
	if err := s.products.ValidateProductExists(ctx, cmd.ProductID); err != nil {
		return nil, MapDomainError(err)
	}

	var reservation *domain.StockReservation
	err := s.run(ctx, "reserve", cmd.ProductID, func(ctx context.Context) error {
		stock, err := s.stocks.FindByProductID(ctx, cmd.ProductID)
		if err != nil {
			return fmt.Errorf("failed to load stock: %w", err)
		}
		if stock == nil {
			return fmt.Errorf("%w: no stock for product %d", domain.ErrProductUnknown, cmd.ProductID)
		}

		now := s.now()
		previous := stock.AvailableQuantity
		if err := stock.Reserve(cmd.Quantity, now); err != nil {
			return err
		}

		reservation, err = domain.NewStockReservation(cmd.ProductID, cmd.OrderID, cmd.Quantity, s.config.ReservationTTL, now)
		if err != nil {
			return err
		}

		if err := s.stocks.Save(ctx, stock); err != nil {
			return err
		}
		if err := s.reservations.Save(ctx, reservation); err != nil {
			return fmt.Errorf("failed to save reservation: %w", err)
		}

		orderID := cmd.OrderID
		err = s.appendMovement(ctx, domain.MovementSpec{
			ProductID:        cmd.ProductID,
			MovementType:     domain.MovementReserve,
			Quantity:         cmd.Quantity,
			PreviousQuantity: previous,
			NewQuantity:      stock.AvailableQuantity,
			ReferenceType:    domain.ReferenceOrder,
			ReferenceID:      &orderID,
			Notes:            fmt.Sprintf("Stock reserved for order %d", cmd.OrderID),
			CreatedAt:        now,
		})
		if err != nil {
			return err
		}

		return s.stage(ctx, reservation)
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to reserve stock", "productId", cmd.ProductID, "orderId", cmd.OrderID, "quantity", cmd.Quantity)
		return nil, MapDomainError(err)
	}

	s.logger.Info("Reserved stock", "productId", cmd.ProductID, "orderId", cmd.OrderID, "quantity", cmd.Quantity, "reservationId", reservation.ID)
	return ToReservationDTO(reservation), nil
}

// ConfirmReservation consumes an ACTIVE reservation. The units leave the
// building, so physical drops together with reserved.
func (s *StockService) ConfirmReservation(ctx context.Context, reservationID string) (*ReservationDTO, error) {
	current, err := s.requireReservation(ctx, reservationID)
	if err != nil {
		return nil, MapDomainError(err)
	}

	var confirmed *domain.StockReservation
	err = s.run(ctx, "confirm", current.ProductID, func(ctx context.Context) error {
		reservation, err := s.requireReservation(ctx, reservationID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := reservation.Confirm(now); err != nil {
			return err
		}

		stock, err := s.requireStock(ctx, reservation.ProductID)
		if err != nil {
			return err
		}
		previous := stock.PhysicalQuantity
		if err := stock.Confirm(reservation.Quantity, now); err != nil {
			return err
		}

		if err := s.stocks.Save(ctx, stock); err != nil {
			return err
		}
		if err := s.reservations.Save(ctx, reservation); err != nil {
			return fmt.Errorf("failed to save reservation: %w", err)
		}

		orderID := reservation.OrderID
		err = s.appendMovement(ctx, domain.MovementSpec{
			ProductID:        reservation.ProductID,
			MovementType:     domain.MovementOut,
			Quantity:         reservation.Quantity,
			PreviousQuantity: previous,
			NewQuantity:      stock.PhysicalQuantity,
			ReferenceType:    domain.ReferenceOrder,
			ReferenceID:      &orderID,
			Notes:            "Order confirmed - reservation " + reservation.ID,
			CreatedAt:        now,
		})
		if err != nil {
			return err
		}

		confirmed = reservation
		return s.stage(ctx, reservation)
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to confirm reservation", "reservationId", reservationID)
		return nil, MapDomainError(err)
	}

	s.logger.Info("Confirmed reservation", "reservationId", reservationID, "productId", confirmed.ProductID, "orderId", confirmed.OrderID)
	return ToReservationDTO(confirmed), nil
}

// ReleaseReservation returns the units of an ACTIVE reservation to available
func (s *StockService) ReleaseReservation(ctx context.Context, reservationID string) (*ReservationDTO, error) {
	current, err := s.requireReservation(ctx, reservationID)
	if err != nil {
		return nil, MapDomainError(err)
	}

	var released *domain.StockReservation
	err = s.run(ctx, "release", current.ProductID, func(ctx context.Context) error {
		reservation, err := s.requireReservation(ctx, reservationID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := reservation.Release(now); err != nil {
			return err
		}
		if err := s.releaseUnits(ctx, reservation, "Reservation released - "+reservation.ID, now); err != nil {
			return err
		}

		released = reservation
		return s.stage(ctx, reservation)
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to release reservation", "reservationId", reservationID)
		return nil, MapDomainError(err)
	}

	s.logger.Info("Released reservation", "reservationId", reservationID, "productId", released.ProductID, "orderId", released.OrderID)
	return ToReservationDTO(released), nil
}

// ExpireReservation is the sweeper path. It reports false when the
// reservation is no longer ACTIVE or not yet overdue by the time the lock is
// held; that is not an error.
func (s *StockService) ExpireReservation(ctx context.Context, reservationID string, now time.Time) (bool, error) {
	current, err := s.requireReservation(ctx, reservationID)
	if err != nil {
		return false, err
	}
	if !current.IsActive() {
		return false, nil
	}

	expired := false
	err = s.run(ctx, "expire", current.ProductID, func(ctx context.Context) error {
		reservation, err := s.requireReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if !reservation.IsActive() || !reservation.IsExpired(now) {
			return nil
		}

		if err := reservation.Expire(now); err != nil {
			return err
		}
		if err := s.releaseUnits(ctx, reservation, "Reservation expired - "+reservation.ID, now); err != nil {
			return err
		}

		expired = true
		return s.stage(ctx, reservation)
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// releaseUnits moves the reservation's units back to available and records the RELEASE movement
func (s *StockService) releaseUnits(ctx context.Context, reservation *domain.StockReservation, notes string, now time.Time) error {
	stock, err := s.requireStock(ctx, reservation.ProductID)
	if err != nil {
		return err
	}
	previous := stock.AvailableQuantity
	if err := stock.Release(reservation.Quantity, now); err != nil {
		return err
	}

	if err := s.stocks.Save(ctx, stock); err != nil {
		return err
	}
	if err := s.reservations.Save(ctx, reservation); err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}

	orderID := reservation.OrderID
	return s.appendMovement(ctx, domain.MovementSpec{
		ProductID:        reservation.ProductID,
		MovementType:     domain.MovementRelease,
		Quantity:         reservation.Quantity,
		PreviousQuantity: previous,
		NewQuantity:      stock.AvailableQuantity,
		ReferenceType:    domain.ReferenceOrder,
		ReferenceID:      &orderID,
		Notes:            notes,
		CreatedAt:        now,
	})
}

// ReleaseReservationsByOrder releases every ACTIVE reservation of an order,
// each on its own. It returns how many were released.
func (s *StockService) ReleaseReservationsByOrder(ctx context.Context, orderID int64) (int, error) {
	reservations, err := s.reservations.FindByOrderID(ctx, orderID)
	if err != nil {
		return 0, MapDomainError(fmt.Errorf("failed to load reservations: %w", err))
	}

	released := 0
	var errs []error
	for _, r := range reservations {
		if !r.IsActive() {
			continue
		}
		if _, err := s.ReleaseReservation(ctx, r.ID); err != nil {
			if errors.Is(err, domain.ErrInvalidReservationState) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		released++
	}

	s.logger.Info("Released reservations for order", "orderId", orderID, "released", released, "failed", len(errs))
	if len(errs) > 0 {
		return released, errors.Join(errs...)
	}
	return released, nil
}

// AdjustStock applies IN, OUT or ADJUSTMENT outside the reservation flow
func (s *StockService) AdjustStock(ctx context.Context, cmd AdjustStockCommand) (*StockDTO, error) {
	switch cmd.MovementType {
	case domain.MovementIn, domain.MovementOut:
		if cmd.Quantity < 1 {
			return nil, MapDomainError(fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidQuantity))
		}
	case domain.MovementAdjustment:
		if cmd.Quantity < 0 {
			return nil, MapDomainError(fmt.Errorf("%w: quantity must not be negative", domain.ErrInvalidQuantity))
		}
	default:
		return nil, MapDomainError(fmt.Errorf("%w: %q cannot be applied as an adjustment", domain.ErrInvalidMovement, cmd.MovementType))
	}
	if cmd.ReferenceType != "" && !cmd.ReferenceType.IsValid() {
		return nil, MapDomainError(fmt.Errorf("%w: unknown reference type %q", domain.ErrInvalidMovement, cmd.ReferenceType))
	}
	if err := s.products.ValidateProductExists(ctx, cmd.ProductID); err != nil {
		return nil, MapDomainError(err)
	}

	var adjusted *domain.Stock
	err := s.run(ctx, "adjust", cmd.ProductID, func(ctx context.Context) error {
		stock, err := s.requireStock(ctx, cmd.ProductID)
		if err != nil {
			return err
		}

		now := s.now()
		previous := stock.AvailableQuantity
		moved := cmd.Quantity

		switch cmd.MovementType {
		case domain.MovementIn:
			err = stock.AdjustAvailable(cmd.Quantity, now)
		case domain.MovementOut:
			err = stock.AdjustAvailable(-cmd.Quantity, now)
		case domain.MovementAdjustment:
			err = stock.SetAbsolute(cmd.Quantity, now)
			moved = stock.AvailableQuantity - previous
			if moved < 0 {
				moved = -moved
			}
		}
		if err != nil {
			return err
		}

		adjusted = stock
		if moved == 0 {
			return nil
		}

		if err := s.stocks.Save(ctx, stock); err != nil {
			return err
		}
		err = s.appendMovement(ctx, domain.MovementSpec{
			ProductID:        cmd.ProductID,
			MovementType:     cmd.MovementType,
			Quantity:         moved,
			PreviousQuantity: previous,
			NewQuantity:      stock.AvailableQuantity,
			ReferenceType:    cmd.ReferenceType,
			ReferenceID:      cmd.ReferenceID,
			Notes:            cmd.Notes,
			CreatedByUserID:  cmd.UserID,
			CreatedAt:        now,
		})
		if err != nil {
			return err
		}

		stock.AddDomainEvent(&domain.StockAdjustedEvent{
			ProductID:        cmd.ProductID,
			MovementType:     cmd.MovementType,
			Quantity:         moved,
			PreviousQuantity: previous,
			NewQuantity:      stock.AvailableQuantity,
			ReferenceType:    cmd.ReferenceType,
			ReferenceID:      cmd.ReferenceID,
			PhysicalQuantity: stock.PhysicalQuantity,
			AdjustedAt:       now,
		})
		return s.stage(ctx, stock)
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to adjust stock", "productId", cmd.ProductID, "movementType", cmd.MovementType, "quantity", cmd.Quantity)
		return nil, MapDomainError(err)
	}

	s.logger.Audit(ctx, "adjust", "stock", strconv.FormatInt(cmd.ProductID, 10), auditUser(cmd.UserID), map[string]any{
		"movementType":  cmd.MovementType,
		"quantity":      cmd.Quantity,
		"referenceType": cmd.ReferenceType,
		"available":     adjusted.AvailableQuantity,
	})
	return s.withName(ctx, ToStockDTO(adjusted)), nil
}

// UpdateMinimumQuantity changes the low-stock threshold. No movement is written.
func (s *StockService) UpdateMinimumQuantity(ctx context.Context, cmd UpdateMinimumQuantityCommand) (*StockDTO, error) {
	if cmd.MinimumQuantity < 0 {
		return nil, MapDomainError(fmt.Errorf("%w: minimum quantity must not be negative", domain.ErrInvalidQuantity))
	}

	var updated *domain.Stock
	err := s.run(ctx, "update_minimum", cmd.ProductID, func(ctx context.Context) error {
		stock, err := s.requireStock(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		if err := stock.SetMinimum(cmd.MinimumQuantity, s.now()); err != nil {
			return err
		}
		if err := s.stocks.Save(ctx, stock); err != nil {
			return err
		}
		updated = stock
		return s.stage(ctx, stock)
	})
	if err != nil {
		return nil, MapDomainError(err)
	}

	s.logger.Audit(ctx, "update_minimum", "stock", strconv.FormatInt(cmd.ProductID, 10), "", map[string]any{
		"minimumQuantity": cmd.MinimumQuantity,
	})
	return s.withName(ctx, ToStockDTO(updated)), nil
}

// RetryPendingAlerts rechecks every product whose post-commit alert recheck
// failed or whose alert disagrees with its ledger. It returns how many are no
// longer pending.
func (s *StockService) RetryPendingAlerts(ctx context.Context) int {
	if flagged, err := s.alerts.FlagDrifted(ctx); err != nil {
		s.logger.WithError(err).Warn("Could not reconcile low stock alerts")
	} else if flagged > 0 {
		s.logger.Warn("Low stock alerts out of step with ledgers", "products", flagged)
	}

	recovered := 0
	for _, productID := range s.alerts.Pending() {
		unlock, err := s.locker.Lock(ctx, productID)
		if err != nil {
			s.logger.WithError(err).Warn("Could not lock product for alert retry", "productId", productID)
			continue
		}
		s.alerts.RecheckAfterCommit(context.WithoutCancel(ctx), productID)
		unlock()

		if !s.alerts.IsPending(productID) {
			recovered++
		}
	}
	return recovered
}

// GetStock returns the ledger of a product
func (s *StockService) GetStock(ctx context.Context, productID int64) (*StockDTO, error) {
	stock, err := s.requireStock(ctx, productID)
	if err != nil {
		return nil, MapDomainError(err)
	}
	return s.withName(ctx, ToStockDTO(stock)), nil
}

// ListStock pages through all ledgers
func (s *StockService) ListStock(ctx context.Context, query ListStockQuery) ([]StockDTO, int64, error) {
	stocks, total, err := s.stocks.FindAll(ctx, query.Offset, query.Limit)
	if err != nil {
		return nil, 0, MapDomainError(fmt.Errorf("failed to list stock: %w", err))
	}
	return s.toStockDTOs(ctx, stocks), total, nil
}

// ListLowStock returns every ledger whose available is below its minimum
func (s *StockService) ListLowStock(ctx context.Context) ([]StockDTO, error) {
	stocks, err := s.stocks.FindLowStock(ctx)
	if err != nil {
		return nil, MapDomainError(fmt.Errorf("failed to list low stock: %w", err))
	}
	return s.toStockDTOs(ctx, stocks), nil
}

// ListMovements returns a product's movements, newest first
func (s *StockService) ListMovements(ctx context.Context, query ListMovementsQuery) ([]MovementDTO, int64, error) {
	movements, total, err := s.movements.FindByProductID(ctx, query.ProductID, query.Offset, query.Limit)
	if err != nil {
		return nil, 0, MapDomainError(fmt.Errorf("failed to list movements: %w", err))
	}

	dtos := make([]MovementDTO, 0, len(movements))
	for _, m := range movements {
		dtos = append(dtos, ToMovementDTO(m))
	}
	return dtos, total, nil
}

// GetReservationsByOrder returns every reservation of an order regardless of status
func (s *StockService) GetReservationsByOrder(ctx context.Context, orderID int64) ([]ReservationDTO, error) {
	reservations, err := s.reservations.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, MapDomainError(fmt.Errorf("failed to load reservations: %w", err))
	}
	return ToReservationDTOs(reservations), nil
}

// GetReservation returns a single reservation by id
func (s *StockService) GetReservation(ctx context.Context, reservationID string) (*ReservationDTO, error) {
	reservation, err := s.requireReservation(ctx, reservationID)
	if err != nil {
		return nil, MapDomainError(err)
	}
	return ToReservationDTO(reservation), nil
}

// ListActiveAlerts returns all ACTIVE low-stock alerts
func (s *StockService) ListActiveAlerts(ctx context.Context) ([]LowStockAlertDTO, error) {
	alerts, err := s.alertRepo.FindActive(ctx)
	if err != nil {
		return nil, MapDomainError(fmt.Errorf("failed to list alerts: %w", err))
	}
	s.metrics.SetActiveAlerts(len(alerts))

	dtos := make([]LowStockAlertDTO, 0, len(alerts))
	for _, a := range alerts {
		dto := ToLowStockAlertDTO(a)
		dto.ProductName = s.productName(ctx, a.ProductID)
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

func (s *StockService) toStockDTOs(ctx context.Context, stocks []*domain.Stock) []StockDTO {
	dtos := make([]StockDTO, 0, len(stocks))
	for _, stock := range stocks {
		dtos = append(dtos, *s.withName(ctx, ToStockDTO(stock)))
	}
	return dtos
}

func (s *StockService) withName(ctx context.Context, dto *StockDTO) *StockDTO {
	if dto != nil {
		dto.ProductName = s.productName(ctx, dto.ProductID)
	}
	return dto
}

// productName is best effort; a catalog failure never fails the request
func (s *StockService) productName(ctx context.Context, productID int64) string {
	if s.names == nil {
		return ""
	}
	name, err := s.names.ProductName(ctx, productID)
	if err != nil {
		s.logger.Debug("Could not fetch product name", "productId", productID, "error", err)
		return ""
	}
	return name
}

func auditUser(userID *int64) string {
	if userID == nil {
		return ""
	}
	return strconv.FormatInt(*userID, 10)
}

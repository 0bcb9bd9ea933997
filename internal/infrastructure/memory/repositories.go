package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/retail-platform/stock-service/internal/domain"
)

// StockRepository implements domain.StockRepository
type StockRepository struct {
	store *Store
}

func NewStockRepository(store *Store) *StockRepository {
	return &StockRepository{store: store}
}

func (r *StockRepository) Create(ctx context.Context, stock *domain.Stock) error {
	defer r.store.write(ctx)()

	if _, exists := r.store.stocks[stock.ProductID]; exists {
		return fmt.Errorf("%w: product %d", domain.ErrDuplicateStock, stock.ProductID)
	}
	stock.Version = 1
	r.store.stocks[stock.ProductID] = detachStock(stock)
	return nil
}

func (r *StockRepository) Save(ctx context.Context, stock *domain.Stock) error {
	defer r.store.write(ctx)()

	current, exists := r.store.stocks[stock.ProductID]
	if !exists {
		return fmt.Errorf("%w: product %d", domain.ErrStockNotFound, stock.ProductID)
	}
	if current.Version != stock.Version {
		return fmt.Errorf("%w: stock of product %d is at version %d, not %d",
			domain.ErrConcurrentModification, stock.ProductID, current.Version, stock.Version)
	}
	stock.Version++
	r.store.stocks[stock.ProductID] = detachStock(stock)
	return nil
}

func (r *StockRepository) FindByProductID(ctx context.Context, productID int64) (*domain.Stock, error) {
	defer r.store.read(ctx)()

	stock, ok := r.store.stocks[productID]
	if !ok {
		return nil, nil
	}
	return &stock, nil
}

func (r *StockRepository) FindAll(ctx context.Context, offset, limit int) ([]*domain.Stock, int64, error) {
	defer r.store.read(ctx)()

	all := r.sorted(func(*domain.Stock) bool { return true })
	return page(all, offset, limit), int64(len(all)), nil
}

func (r *StockRepository) FindLowStock(ctx context.Context) ([]*domain.Stock, error) {
	defer r.store.read(ctx)()

	return r.sorted((*domain.Stock).IsLowStock), nil
}

func (r *StockRepository) sorted(keep func(*domain.Stock) bool) []*domain.Stock {
	result := make([]*domain.Stock, 0, len(r.store.stocks))
	for _, s := range r.store.stocks {
		stock := s
		if keep(&stock) {
			result = append(result, &stock)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })
	return result
}

func detachStock(stock *domain.Stock) domain.Stock {
	copied := *stock
	copied.DomainEvents = nil
	return copied
}

// MovementRepository implements domain.MovementRepository
type MovementRepository struct {
	store *Store
}

func NewMovementRepository(store *Store) *MovementRepository {
	return &MovementRepository{store: store}
}

func (r *MovementRepository) Append(ctx context.Context, movement *domain.StockMovement) error {
	defer r.store.write(ctx)()

	r.store.movements = append(r.store.movements, *movement)
	return nil
}

func (r *MovementRepository) FindByProductID(ctx context.Context, productID int64, offset, limit int) ([]*domain.StockMovement, int64, error) {
	defer r.store.read(ctx)()

	var result []*domain.StockMovement
	// newest first: walk the append log backwards
	for i := len(r.store.movements) - 1; i >= 0; i-- {
		if r.store.movements[i].ProductID == productID {
			m := r.store.movements[i]
			result = append(result, &m)
		}
	}
	return page(result, offset, limit), int64(len(result)), nil
}

// ReservationRepository implements domain.ReservationRepository
type ReservationRepository struct {
	store *Store
}

func NewReservationRepository(store *Store) *ReservationRepository {
	return &ReservationRepository{store: store}
}

func (r *ReservationRepository) Save(ctx context.Context, reservation *domain.StockReservation) error {
	defer r.store.write(ctx)()

	copied := *reservation
	copied.DomainEvents = nil
	r.store.reservations[reservation.ID] = copied
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*domain.StockReservation, error) {
	defer r.store.read(ctx)()

	reservation, ok := r.store.reservations[id]
	if !ok {
		return nil, nil
	}
	return &reservation, nil
}

func (r *ReservationRepository) FindByOrderID(ctx context.Context, orderID int64) ([]*domain.StockReservation, error) {
	defer r.store.read(ctx)()

	return r.filter(func(res *domain.StockReservation) bool { return res.OrderID == orderID }, 0), nil
}

func (r *ReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.StockReservation, error) {
	defer r.store.read(ctx)()

	return r.filter(func(res *domain.StockReservation) bool {
		return res.IsActive() && res.ExpiresAt != nil && res.ExpiresAt.Before(now)
	}, limit), nil
}

// filter returns matching reservations oldest first
func (r *ReservationRepository) filter(keep func(*domain.StockReservation) bool, limit int) []*domain.StockReservation {
	var result []*domain.StockReservation
	for _, res := range r.store.reservations {
		reservation := res
		if keep(&reservation) {
			result = append(result, &reservation)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// AlertRepository implements domain.AlertRepository
type AlertRepository struct {
	store *Store
}

func NewAlertRepository(store *Store) *AlertRepository {
	return &AlertRepository{store: store}
}

func (r *AlertRepository) Save(ctx context.Context, alert *domain.LowStockAlert) error {
	defer r.store.write(ctx)()

	if alert.IsActive() {
		for id, existing := range r.store.alerts {
			if id != alert.ID && existing.ProductID == alert.ProductID && existing.IsActive() {
				return fmt.Errorf("product %d already has active alert %s", alert.ProductID, id)
			}
		}
	}

	copied := *alert
	copied.DomainEvents = nil
	r.store.alerts[alert.ID] = copied
	return nil
}

func (r *AlertRepository) FindActiveByProductID(ctx context.Context, productID int64) (*domain.LowStockAlert, error) {
	defer r.store.read(ctx)()

	for _, a := range r.store.alerts {
		if a.ProductID == productID && a.IsActive() {
			alert := a
			return &alert, nil
		}
	}
	return nil, nil
}

func (r *AlertRepository) FindActive(ctx context.Context) ([]*domain.LowStockAlert, error) {
	defer r.store.read(ctx)()

	var result []*domain.LowStockAlert
	for _, a := range r.store.alerts {
		if a.IsActive() {
			alert := a
			result = append(result, &alert)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ProductID < result[j].ProductID })
	return result, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	if offset < 0 {
		offset = 0
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

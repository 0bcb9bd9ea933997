package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/metrics"
)

func observe(m *metrics.Metrics, table, operation string) func(*error) {
	start := time.Now()
	return func(err *error) {
		m.RecordDBOperation(table, operation, *err == nil, time.Since(start))
	}
}

// forUpdate locks the selected rows when running inside a transaction
func forUpdate(db *gorm.DB, inTx bool) *gorm.DB {
	if inTx {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

// StockRepository implements domain.StockRepository
type StockRepository struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

func NewStockRepository(db *gorm.DB, m *metrics.Metrics) *StockRepository {
	return &StockRepository{db: db, metrics: m}
}

func (r *StockRepository) Create(ctx context.Context, stock *domain.Stock) (err error) {
	defer observe(r.metrics, "stocks", "insert")(&err)

	db, _ := conn(ctx, r.db)
	stock.Version = 1
	if err = db.Create(toStockModel(stock)).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: product %d", domain.ErrDuplicateStock, stock.ProductID)
		}
		return fmt.Errorf("failed to insert stock: %w", err)
	}
	return nil
}

func (r *StockRepository) Save(ctx context.Context, stock *domain.Stock) (err error) {
	defer observe(r.metrics, "stocks", "update")(&err)

	db, _ := conn(ctx, r.db)
	result := db.Model(&stockModel{}).
		Where("product_id = ? AND version = ?", stock.ProductID, stock.Version).
		Updates(map[string]interface{}{
			"available_quantity": stock.AvailableQuantity,
			"reserved_quantity":  stock.ReservedQuantity,
			"physical_quantity":  stock.PhysicalQuantity,
			"minimum_quantity":   stock.MinimumQuantity,
			"updated_at":         stock.UpdatedAt,
			"version":            gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&stockModel{}).Where("product_id = ?", stock.ProductID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check stock: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: product %d", domain.ErrStockNotFound, stock.ProductID)
		}
		return fmt.Errorf("%w: stock of product %d changed since version %d",
			domain.ErrConcurrentModification, stock.ProductID, stock.Version)
	}

	stock.Version++
	return nil
}

func (r *StockRepository) FindByProductID(ctx context.Context, productID int64) (_ *domain.Stock, err error) {
	defer observe(r.metrics, "stocks", "find")(&err)

	db, inTx := conn(ctx, r.db)
	var model stockModel
	err = forUpdate(db, inTx).Where("product_id = ?", productID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stock: %w", err)
	}
	return model.toDomain(), nil
}

func (r *StockRepository) FindAll(ctx context.Context, offset, limit int) (_ []*domain.Stock, total int64, err error) {
	defer observe(r.metrics, "stocks", "find")(&err)

	db, _ := conn(ctx, r.db)
	if err = db.Model(&stockModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count stock: %w", err)
	}

	query := db.Order("product_id").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []stockModel
	if err = query.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find stock: %w", err)
	}
	return stocksToDomain(models), total, nil
}

func (r *StockRepository) FindLowStock(ctx context.Context) (_ []*domain.Stock, err error) {
	defer observe(r.metrics, "stocks", "find")(&err)

	db, _ := conn(ctx, r.db)
	var models []stockModel
	if err = db.Where("available_quantity < minimum_quantity").Order("product_id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find low stock: %w", err)
	}
	return stocksToDomain(models), nil
}

func stocksToDomain(models []stockModel) []*domain.Stock {
	stocks := make([]*domain.Stock, 0, len(models))
	for i := range models {
		stocks = append(stocks, models[i].toDomain())
	}
	return stocks
}

// MovementRepository implements domain.MovementRepository
type MovementRepository struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

func NewMovementRepository(db *gorm.DB, m *metrics.Metrics) *MovementRepository {
	return &MovementRepository{db: db, metrics: m}
}

func (r *MovementRepository) Append(ctx context.Context, movement *domain.StockMovement) (err error) {
	defer observe(r.metrics, "stock_movements", "insert")(&err)

	db, _ := conn(ctx, r.db)
	if err = db.Create(toMovementModel(movement)).Error; err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}

func (r *MovementRepository) FindByProductID(ctx context.Context, productID int64, offset, limit int) (_ []*domain.StockMovement, total int64, err error) {
	defer observe(r.metrics, "stock_movements", "find")(&err)

	db, _ := conn(ctx, r.db)
	scoped := db.Model(&movementModel{}).Where("product_id = ?", productID)
	if err = scoped.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count movements: %w", err)
	}

	query := db.Where("product_id = ?", productID).Order("created_at DESC, id DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	var models []movementModel
	if err = query.Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find movements: %w", err)
	}

	movements := make([]*domain.StockMovement, 0, len(models))
	for i := range models {
		movements = append(movements, models[i].toDomain())
	}
	return movements, total, nil
}

// ReservationRepository implements domain.ReservationRepository
type ReservationRepository struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

func NewReservationRepository(db *gorm.DB, m *metrics.Metrics) *ReservationRepository {
	return &ReservationRepository{db: db, metrics: m}
}

func (r *ReservationRepository) Save(ctx context.Context, reservation *domain.StockReservation) (err error) {
	defer observe(r.metrics, "stock_reservations", "upsert")(&err)

	db, _ := conn(ctx, r.db)
	if err = db.Save(toReservationModel(reservation)).Error; err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (_ *domain.StockReservation, err error) {
	defer observe(r.metrics, "stock_reservations", "find")(&err)

	db, inTx := conn(ctx, r.db)
	var model reservationModel
	err = forUpdate(db, inTx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return model.toDomain(), nil
}

func (r *ReservationRepository) FindByOrderID(ctx context.Context, orderID int64) (_ []*domain.StockReservation, err error) {
	defer observe(r.metrics, "stock_reservations", "find")(&err)

	db, _ := conn(ctx, r.db)
	return r.find(db.Where("order_id = ?", orderID).Order("created_at"))
}

func (r *ReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) (_ []*domain.StockReservation, err error) {
	defer observe(r.metrics, "stock_reservations", "find")(&err)

	db, _ := conn(ctx, r.db)
	query := db.Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", string(domain.ReservationActive), now).
		Order("expires_at")
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.find(query)
}

func (r *ReservationRepository) find(query *gorm.DB) ([]*domain.StockReservation, error) {
	var models []reservationModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	reservations := make([]*domain.StockReservation, 0, len(models))
	for i := range models {
		reservations = append(reservations, models[i].toDomain())
	}
	return reservations, nil
}

// AlertRepository implements domain.AlertRepository. A unique index on a
// generated column keeps at most one ACTIVE alert per product.
type AlertRepository struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

func NewAlertRepository(db *gorm.DB, m *metrics.Metrics) *AlertRepository {
	return &AlertRepository{db: db, metrics: m}
}

func (r *AlertRepository) Save(ctx context.Context, alert *domain.LowStockAlert) (err error) {
	defer observe(r.metrics, "low_stock_alerts", "upsert")(&err)

	db, _ := conn(ctx, r.db)
	model := toAlertModel(alert)

	// plain UPDATE then INSERT: an upsert would fold a second ACTIVE alert into the first
	result := db.Model(&alertModel{}).Where("id = ?", model.ID).Updates(map[string]interface{}{
		"available_quantity": model.AvailableQuantity,
		"minimum_quantity":   model.MinimumQuantity,
		"alert_status":       model.AlertStatus,
		"resolved_at":        model.ResolvedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update alert: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if err = db.Create(model).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("product %d already has an active alert: %w", alert.ProductID, err)
		}
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) FindActiveByProductID(ctx context.Context, productID int64) (_ *domain.LowStockAlert, err error) {
	defer observe(r.metrics, "low_stock_alerts", "find")(&err)

	db, _ := conn(ctx, r.db)
	var model alertModel
	err = db.Where("product_id = ? AND alert_status = ?", productID, string(domain.AlertActive)).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alert: %w", err)
	}
	return model.toDomain(), nil
}

func (r *AlertRepository) FindActive(ctx context.Context) (_ []*domain.LowStockAlert, err error) {
	defer observe(r.metrics, "low_stock_alerts", "find")(&err)

	db, _ := conn(ctx, r.db)
	var models []alertModel
	if err = db.Where("alert_status = ?", string(domain.AlertActive)).Order("product_id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find alerts: %w", err)
	}
	alerts := make([]*domain.LowStockAlert, 0, len(models))
	for i := range models {
		alerts = append(alerts, models[i].toDomain())
	}
	return alerts, nil
}

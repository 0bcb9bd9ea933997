package mysql

import (
	"time"

	"github.com/retail-platform/stock-service/internal/domain"
)

type stockModel struct {
	ID                string    `gorm:"primaryKey;size:36"`
	ProductID         int64     `gorm:"uniqueIndex:uniq_stocks_product_id"`
	AvailableQuantity int       `gorm:"not null"`
	ReservedQuantity  int       `gorm:"not null"`
	PhysicalQuantity  int       `gorm:"not null"`
	MinimumQuantity   int       `gorm:"not null"`
	Version           int64     `gorm:"not null"`
	CreatedAt         time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime:false"`
}

func (stockModel) TableName() string { return "stocks" }

func toStockModel(s *domain.Stock) *stockModel {
	return &stockModel{
		ID:                s.ID,
		ProductID:         s.ProductID,
		AvailableQuantity: s.AvailableQuantity,
		ReservedQuantity:  s.ReservedQuantity,
		PhysicalQuantity:  s.PhysicalQuantity,
		MinimumQuantity:   s.MinimumQuantity,
		Version:           s.Version,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func (m *stockModel) toDomain() *domain.Stock {
	return &domain.Stock{
		ID:                m.ID,
		ProductID:         m.ProductID,
		AvailableQuantity: m.AvailableQuantity,
		ReservedQuantity:  m.ReservedQuantity,
		PhysicalQuantity:  m.PhysicalQuantity,
		MinimumQuantity:   m.MinimumQuantity,
		Version:           m.Version,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

type movementModel struct {
	// v7 uuids, so id order follows insertion order
	ID               string `gorm:"primaryKey;size:36"`
	ProductID        int64  `gorm:"index:idx_movements_product_created,priority:1"`
	MovementType     string `gorm:"size:16;not null"`
	Quantity         int    `gorm:"not null"`
	PreviousQuantity int    `gorm:"not null"`
	NewQuantity      int    `gorm:"not null"`
	ReferenceType    string `gorm:"size:16"`
	ReferenceID      *int64
	Notes            string `gorm:"type:text"`
	CreatedByUserID  *int64
	CreatedAt        time.Time `gorm:"index:idx_movements_product_created,priority:2;autoCreateTime:false"`
}

func (movementModel) TableName() string { return "stock_movements" }

func toMovementModel(m *domain.StockMovement) *movementModel {
	return &movementModel{
		ID:               m.ID,
		ProductID:        m.ProductID,
		MovementType:     string(m.MovementType),
		Quantity:         m.Quantity,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		ReferenceType:    string(m.ReferenceType),
		ReferenceID:      m.ReferenceID,
		Notes:            m.Notes,
		CreatedByUserID:  m.CreatedByUserID,
		CreatedAt:        m.CreatedAt,
	}
}

func (m *movementModel) toDomain() *domain.StockMovement {
	return &domain.StockMovement{
		ID:               m.ID,
		ProductID:        m.ProductID,
		MovementType:     domain.MovementType(m.MovementType),
		Quantity:         m.Quantity,
		PreviousQuantity: m.PreviousQuantity,
		NewQuantity:      m.NewQuantity,
		ReferenceType:    domain.ReferenceType(m.ReferenceType),
		ReferenceID:      m.ReferenceID,
		Notes:            m.Notes,
		CreatedByUserID:  m.CreatedByUserID,
		CreatedAt:        m.CreatedAt.UTC(),
	}
}

type reservationModel struct {
	ID          string     `gorm:"primaryKey;size:36"`
	ProductID   int64      `gorm:"not null"`
	OrderID     int64      `gorm:"index:idx_reservations_order_id"`
	Quantity    int        `gorm:"not null"`
	Status      string     `gorm:"size:16;index:idx_reservations_status_expires,priority:1"`
	ExpiresAt   *time.Time `gorm:"index:idx_reservations_status_expires,priority:2"`
	ConfirmedAt *time.Time
	ReleasedAt  *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime:false"`
}

func (reservationModel) TableName() string { return "stock_reservations" }

func toReservationModel(r *domain.StockReservation) *reservationModel {
	return &reservationModel{
		ID:          r.ID,
		ProductID:   r.ProductID,
		OrderID:     r.OrderID,
		Quantity:    r.Quantity,
		Status:      string(r.Status),
		ExpiresAt:   r.ExpiresAt,
		ConfirmedAt: r.ConfirmedAt,
		ReleasedAt:  r.ReleasedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (m *reservationModel) toDomain() *domain.StockReservation {
	return &domain.StockReservation{
		ID:          m.ID,
		ProductID:   m.ProductID,
		OrderID:     m.OrderID,
		Quantity:    m.Quantity,
		Status:      domain.ReservationStatus(m.Status),
		ExpiresAt:   utcPtr(m.ExpiresAt),
		ConfirmedAt: utcPtr(m.ConfirmedAt),
		ReleasedAt:  utcPtr(m.ReleasedAt),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type alertModel struct {
	ID                string    `gorm:"primaryKey;size:36"`
	ProductID         int64     `gorm:"not null;index:idx_alerts_product_id"`
	AvailableQuantity int       `gorm:"not null"`
	MinimumQuantity   int       `gorm:"not null"`
	AlertStatus       string    `gorm:"size:16;index:idx_alerts_status"`
	// NULL unless ACTIVE, so the unique index allows one ACTIVE alert per product
	ActiveProductID   *int64    `gorm:"->;type:bigint GENERATED ALWAYS AS (IF(alert_status = 'ACTIVE', product_id, NULL)) STORED;uniqueIndex:uniq_alerts_active_product"`
	CreatedAt         time.Time `gorm:"autoCreateTime:false"`
	ResolvedAt        *time.Time
}

func (alertModel) TableName() string { return "low_stock_alerts" }

func toAlertModel(a *domain.LowStockAlert) *alertModel {
	return &alertModel{
		ID:                a.ID,
		ProductID:         a.ProductID,
		AvailableQuantity: a.AvailableQuantity,
		MinimumQuantity:   a.MinimumQuantity,
		AlertStatus:       string(a.AlertStatus),
		CreatedAt:         a.CreatedAt,
		ResolvedAt:        a.ResolvedAt,
	}
}

func (m *alertModel) toDomain() *domain.LowStockAlert {
	return &domain.LowStockAlert{
		ID:                m.ID,
		ProductID:         m.ProductID,
		AvailableQuantity: m.AvailableQuantity,
		MinimumQuantity:   m.MinimumQuantity,
		AlertStatus:       domain.AlertStatus(m.AlertStatus),
		CreatedAt:         m.CreatedAt.UTC(),
		ResolvedAt:        utcPtr(m.ResolvedAt),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

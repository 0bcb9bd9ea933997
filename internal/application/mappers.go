package application

import "github.com/retail-platform/stock-service/internal/domain"

// ToStockDTO converts a domain Stock to StockDTO
func ToStockDTO(stock *domain.Stock) *StockDTO {
	if stock == nil {
		return nil
	}
	return &StockDTO{
		ID:                stock.ID,
		ProductID:         stock.ProductID,
		AvailableQuantity: stock.AvailableQuantity,
		ReservedQuantity:  stock.ReservedQuantity,
		PhysicalQuantity:  stock.PhysicalQuantity,
		MinimumQuantity:   stock.MinimumQuantity,
		IsLowStock:        stock.IsLowStock(),
		CreatedAt:         stock.CreatedAt,
		UpdatedAt:         stock.UpdatedAt,
	}
}

// ToReservationDTO converts a domain StockReservation to ReservationDTO
func ToReservationDTO(r *domain.StockReservation) *ReservationDTO {
	if r == nil {
		return nil
	}
	return &ReservationDTO{
		ID:          r.ID,
		ProductID:   r.ProductID,
		OrderID:     r.OrderID,
		Quantity:    r.Quantity,
		Status:      string(r.Status),
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		ConfirmedAt: r.ConfirmedAt,
		ReleasedAt:  r.ReleasedAt,
	}
}

func ToReservationDTOs(reservations []*domain.StockReservation) []ReservationDTO {
	dtos := make([]ReservationDTO, 0, len(reservations))
	for _, r := range reservations {
		dtos = append(dtos, *ToReservationDTO(r))
	}
	return dtos
}

// ToMovementDTO converts a domain StockMovement to MovementDTO
func ToMovementDTO(m *domain.StockMovement) MovementDTO {
	return MovementDTO{
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

// ToLowStockAlertDTO converts a domain LowStockAlert to LowStockAlertDTO
func ToLowStockAlertDTO(a *domain.LowStockAlert) LowStockAlertDTO {
	return LowStockAlertDTO{
		ID:                a.ID,
		ProductID:         a.ProductID,
		AvailableQuantity: a.AvailableQuantity,
		MinimumQuantity:   a.MinimumQuantity,
		AlertStatus:       string(a.AlertStatus),
		CreatedAt:         a.CreatedAt,
		ResolvedAt:        a.ResolvedAt,
	}
}

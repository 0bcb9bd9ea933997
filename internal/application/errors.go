package application

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/errors"
)

// MapDomainError converts domain errors to AppErrors for the HTTP boundary.
// The domain error stays wrapped so errors.Is keeps working on the result.
func MapDomainError(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}

	var appErr *errors.AppError
	switch {
	case stderrors.Is(err, domain.ErrInsufficientStock):
		appErr = errors.NewAppError(errors.CodeInsufficientStock, err.Error(), http.StatusConflict)
		var insufficient *domain.InsufficientStockError
		if stderrors.As(err, &insufficient) {
			appErr.WithDetail("requested", strconv.Itoa(insufficient.Requested)).
				WithDetail("available", strconv.Itoa(insufficient.Available))
		}
	case stderrors.Is(err, domain.ErrInvalidReservationState):
		appErr = errors.NewAppError(errors.CodeInvalidReservationState, err.Error(), http.StatusConflict)
	case stderrors.Is(err, domain.ErrInvalidLedgerState):
		appErr = errors.ErrConflict(err.Error())
	case stderrors.Is(err, domain.ErrDuplicateStock):
		appErr = errors.NewAppError(errors.CodeDuplicateStock, err.Error(), http.StatusConflict)
	case stderrors.Is(err, domain.ErrProductUnknown):
		appErr = errors.NewAppError(errors.CodeProductUnknown, err.Error(), http.StatusNotFound)
	case stderrors.Is(err, domain.ErrProductInactive):
		appErr = errors.NewAppError(errors.CodeProductInactive, err.Error(), http.StatusUnprocessableEntity)
	case stderrors.Is(err, domain.ErrStockNotFound):
		appErr = errors.ErrNotFound("stock")
	case stderrors.Is(err, domain.ErrReservationNotFound):
		appErr = errors.ErrNotFound("reservation")
	case stderrors.Is(err, domain.ErrInvalidQuantity), stderrors.Is(err, domain.ErrInvalidMovement):
		appErr = errors.ErrValidation(err.Error())
	case stderrors.Is(err, domain.ErrLockNotAcquired), stderrors.Is(err, domain.ErrConcurrentModification):
		appErr = errors.ErrRetryable(err.Error())
	case stderrors.Is(err, domain.ErrLedgerInvariantViolation):
		appErr = errors.NewAppError(errors.CodeLedgerInvariantViolation, "stock ledger is inconsistent", http.StatusInternalServerError)
	default:
		appErr = errors.ErrInternal("")
	}
	return appErr.Wrap(err)
}

// operationStatus classifies err for the stock_operations_total metric
func operationStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case stderrors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case stderrors.Is(err, domain.ErrInvalidReservationState), stderrors.Is(err, domain.ErrInvalidLedgerState):
		return "invalid_state"
	case stderrors.Is(err, domain.ErrProductUnknown), stderrors.Is(err, domain.ErrProductInactive),
		stderrors.Is(err, domain.ErrReservationNotFound), stderrors.Is(err, domain.ErrStockNotFound):
		return "not_found"
	case stderrors.Is(err, domain.ErrInvalidQuantity), stderrors.Is(err, domain.ErrInvalidMovement):
		return "invalid"
	case stderrors.Is(err, domain.ErrLockNotAcquired), stderrors.Is(err, domain.ErrConcurrentModification):
		return "retryable"
	case stderrors.Is(err, domain.ErrLedgerInvariantViolation):
		return "invariant_violation"
	default:
		return "error"
	}
}

package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/logging"
	"github.com/retail-platform/stock-service/pkg/metrics"
)

// AlertTracker keeps the low-stock alert of a product in step with its
// ledger. Callers must hold the product lock.
type AlertTracker struct {
	stocks  domain.StockRepository
	alerts  domain.AlertRepository
	tx      domain.TransactionManager
	stager  domain.EventStager
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.Mutex
	pending map[int64]struct{}
}

// NewAlertTracker creates a new AlertTracker
func NewAlertTracker(
	stocks domain.StockRepository,
	alerts domain.AlertRepository,
	tx domain.TransactionManager,
	stager domain.EventStager,
	logger *logging.Logger,
	m *metrics.Metrics,
) *AlertTracker {
	return &AlertTracker{
		stocks:  stocks,
		alerts:  alerts,
		tx:      tx,
		stager:  stager,
		logger:  logger.WithComponent("alert-tracker"),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		pending: make(map[int64]struct{}),
	}
}

// Recheck loads the product's ledger and opens or resolves its alert
func (t *AlertTracker) Recheck(ctx context.Context, productID int64) (domain.AlertAction, error) {
	action := domain.AlertNone

	err := t.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		stock, err := t.stocks.FindByProductID(ctx, productID)
		if err != nil {
			return fmt.Errorf("failed to load stock: %w", err)
		}
		if stock == nil {
			return nil
		}

		active, err := t.alerts.FindActiveByProductID(ctx, productID)
		if err != nil {
			return fmt.Errorf("failed to load active alert: %w", err)
		}

		action = domain.EvaluateAlert(stock, active)
		var alert *domain.LowStockAlert
		switch action {
		case domain.AlertOpen:
			alert = domain.NewLowStockAlert(stock, t.now())
		case domain.AlertResolve:
			alert = active
			alert.Resolve(stock, t.now())
		case domain.AlertNone:
			return nil
		}

		if err := t.alerts.Save(ctx, alert); err != nil {
			return fmt.Errorf("failed to save alert: %w", err)
		}
		if err := t.stager.Stage(ctx, alert.GetDomainEvents()...); err != nil {
			return fmt.Errorf("failed to stage alert events: %w", err)
		}
		alert.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return domain.AlertNone, err
	}

	switch action {
	case domain.AlertOpen:
		t.metrics.RecordAlertOpened()
		t.logger.Warn("Low stock alert created", "productId", productID)
	case domain.AlertResolve:
		t.metrics.RecordAlertResolved()
		t.logger.Info("Low stock alert resolved", "productId", productID)
	}
	return action, nil
}

// RecheckAfterCommit runs Recheck for a ledger change that is already
// committed. A failure does not undo the change: the product is flagged for
// the sweeper to retry and the error is only logged.
func (t *AlertTracker) RecheckAfterCommit(ctx context.Context, productID int64) {
	if _, err := t.Recheck(ctx, productID); err != nil {
		t.flag(productID)
		t.metrics.RecordAlertRecheckFailure()
		t.logger.WithError(err).Error("Alert recheck failed, product flagged for retry", "productId", productID)
		return
	}
	t.unflag(productID)
}

// FlagDrifted compares low-stock ledgers with active alerts and flags every
// product on which they disagree. It returns the number newly flagged.
func (t *AlertTracker) FlagDrifted(ctx context.Context) (int, error) {
	low, err := t.stocks.FindLowStock(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load low stock: %w", err)
	}
	active, err := t.alerts.FindActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load active alerts: %w", err)
	}

	lowIDs := make(map[int64]struct{}, len(low))
	for _, stock := range low {
		lowIDs[stock.ProductID] = struct{}{}
	}
	alerted := make(map[int64]struct{}, len(active))
	for _, alert := range active {
		alerted[alert.ProductID] = struct{}{}
	}

	var drifted []int64
	for id := range lowIDs {
		if _, ok := alerted[id]; !ok {
			drifted = append(drifted, id)
		}
	}
	for id := range alerted {
		if _, ok := lowIDs[id]; !ok {
			drifted = append(drifted, id)
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	flagged := 0
	for _, id := range drifted {
		if _, ok := t.pending[id]; !ok {
			t.pending[id] = struct{}{}
			flagged++
		}
	}
	return flagged, nil
}

func (t *AlertTracker) flag(productID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending[productID] = struct{}{}
}

func (t *AlertTracker) unflag(productID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, productID)
}

// Pending returns the flagged products in ascending order
func (t *AlertTracker) Pending() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int64, 0, len(t.pending))
	for id := range t.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsPending reports whether productID awaits a recheck retry
func (t *AlertTracker) IsPending(productID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[productID]
	return ok
}

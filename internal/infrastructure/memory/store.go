// Package memory keeps every repository in process. It backs local runs and
// the application tests; all data is lost on restart. Transactions hold one
// store-wide lock, so work on different products runs one at a time here.
package memory

import (
	"context"
	"sync"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/outbox"
)

type txKey struct{}

// Store holds the state shared by the memory repositories
type Store struct {
	mu sync.RWMutex

	stocks       map[int64]domain.Stock
	movements    []domain.StockMovement
	reservations map[string]domain.StockReservation
	alerts       map[string]domain.LowStockAlert
	outbox       []outbox.Event
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		stocks:       make(map[int64]domain.Stock),
		reservations: make(map[string]domain.StockReservation),
		alerts:       make(map[string]domain.LowStockAlert),
	}
}

type snapshot struct {
	stocks       map[int64]domain.Stock
	movements    []domain.StockMovement
	reservations map[string]domain.StockReservation
	alerts       map[string]domain.LowStockAlert
	outbox       []outbox.Event
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		stocks:       make(map[int64]domain.Stock, len(s.stocks)),
		movements:    append([]domain.StockMovement(nil), s.movements...),
		reservations: make(map[string]domain.StockReservation, len(s.reservations)),
		alerts:       make(map[string]domain.LowStockAlert, len(s.alerts)),
		outbox:       append([]outbox.Event(nil), s.outbox...),
	}
	for k, v := range s.stocks {
		snap.stocks[k] = v
	}
	for k, v := range s.reservations {
		snap.reservations[k] = v
	}
	for k, v := range s.alerts {
		snap.alerts[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.stocks = snap.stocks
	s.movements = snap.movements
	s.reservations = snap.reservations
	s.alerts = snap.alerts
	s.outbox = snap.outbox
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// read takes the shared lock unless ctx already owns the store
func (s *Store) read(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *Store) write(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// TransactionManager implements domain.TransactionManager. A transaction
// holds the store exclusively and restores the pre-transaction state when fn
// fails.
type TransactionManager struct {
	store *Store
}

func NewTransactionManager(store *Store) *TransactionManager {
	return &TransactionManager{store: store}
}

// WithinTransaction runs fn atomically. Nested calls join the outer transaction.
func (m *TransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.store.inTx(ctx) {
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	snap := m.store.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, m.store)); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

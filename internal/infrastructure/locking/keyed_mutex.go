// Package locking provides the per-product locks that serialise ledger
// operations.
package locking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/retail-platform/stock-service/internal/domain"
)

// KeyedMutex is an in-process lock per product. Entries are reference
// counted and removed once nobody holds or waits for them.
type KeyedMutex struct {
	// Timeout bounds the wait for a lock; zero waits until ctx is done
	Timeout time.Duration

	mu    sync.Mutex
	locks map[int64]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex creates a KeyedMutex
func NewKeyedMutex(timeout time.Duration) *KeyedMutex {
	return &KeyedMutex{Timeout: timeout, locks: make(map[int64]*keyLock)}
}

// Lock blocks until productID is free, ctx is done or the timeout passes
func (k *KeyedMutex) Lock(ctx context.Context, productID int64) (func(), error) {
	l := k.acquireRef(productID)

	if k.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.Timeout)
		defer cancel()
	}

	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		k.releaseRef(productID, l)
		return nil, fmt.Errorf("%w: product %d: %v", domain.ErrLockNotAcquired, productID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.sem
			k.releaseRef(productID, l)
		})
	}, nil
}

func (k *KeyedMutex) acquireRef(productID int64) *keyLock {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.locks == nil {
		k.locks = make(map[int64]*keyLock)
	}
	l, ok := k.locks[productID]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		k.locks[productID] = l
	}
	l.refs++
	return l
}

func (k *KeyedMutex) releaseRef(productID int64, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(k.locks, productID)
	}
}

// size is the number of live entries
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

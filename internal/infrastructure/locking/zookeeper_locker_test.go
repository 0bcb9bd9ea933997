package locking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/logging"
)

// fakeZK keeps nodes in memory and fires watches on delete
type fakeZK struct {
	mu       sync.Mutex
	nodes    map[string]bool
	seq      int
	watchers map[string][]chan zk.Event
}

func newFakeZK() *fakeZK {
	return &fakeZK{nodes: make(map[string]bool), watchers: make(map[string][]chan zk.Event)}
}

func (f *fakeZK) Create(path string, _ []byte, _ int32, _ []zk.ACL) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nodes[path] {
		return "", zk.ErrNodeExists
	}
	f.nodes[path] = true
	return path, nil
}

func (f *fakeZK) CreateProtectedEphemeralSequential(path string, _ []byte, _ []zk.ACL) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	// mimic the protected prefix so ordering by name alone would be wrong
	dir := path[:len(path)-len("lock-")]
	node := fmt.Sprintf("%s_c_%02d-lock-%010d", dir, 99-f.seq, f.seq)
	f.nodes[node] = true
	return node, nil
}

func (f *fakeZK) Children(path string) ([]string, *zk.Stat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var children []string
	prefix := path + "/"
	for node := range f.nodes {
		if len(node) > len(prefix) && node[:len(prefix)] == prefix {
			children = append(children, node[len(prefix):])
		}
	}
	return children, &zk.Stat{}, nil
}

func (f *fakeZK) ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan zk.Event, 1)
	if !f.nodes[path] {
		return false, nil, ch, nil
	}
	f.watchers[path] = append(f.watchers[path], ch)
	return true, &zk.Stat{}, ch, nil
}

func (f *fakeZK) Delete(path string, _ int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.nodes[path] {
		return zk.ErrNoNode
	}
	delete(f.nodes, path)
	for _, ch := range f.watchers[path] {
		ch <- zk.Event{Type: zk.EventNodeDeleted, Path: path}
	}
	delete(f.watchers, path)
	return nil
}

func TestZookeeperLocker_HandsOverInOrder(t *testing.T) {
	conn := newFakeZK()
	locker := NewZookeeperLocker(conn, time.Second, logging.NewNop())

	unlockFirst, err := locker.Lock(context.Background(), 5)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		unlock, err := locker.Lock(context.Background(), 5)
		if err == nil {
			close(acquired)
			unlock()
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired while first still holds")
	case <-time.After(50 * time.Millisecond):
	}

	unlockFirst()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired")
	}
}

func TestZookeeperLocker_Timeout(t *testing.T) {
	conn := newFakeZK()
	locker := NewZookeeperLocker(conn, 30*time.Millisecond, logging.NewNop())

	unlock, err := locker.Lock(context.Background(), 5)
	require.NoError(t, err)
	defer unlock()

	_, err = locker.Lock(context.Background(), 5)
	assert.ErrorIs(t, err, domain.ErrLockNotAcquired)

	children, _, _ := conn.Children(zkLockRoot + "/product-5")
	assert.Len(t, children, 1, "waiter must remove its node")
}

func TestPredecessor_UsesSequenceNotName(t *testing.T) {
	children := []string{
		"_c_aa-lock-0000000003",
		"_c_zz-lock-0000000001",
		"_c_mm-lock-0000000002",
	}

	prev, first := predecessor(children, "_c_zz-lock-0000000001")
	assert.True(t, first)
	assert.Empty(t, prev)

	prev, first = predecessor(children, "_c_aa-lock-0000000003")
	assert.False(t, first)
	assert.Equal(t, "_c_mm-lock-0000000002", prev)
}

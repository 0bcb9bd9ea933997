package locking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/logging"
)

const zkLockRoot = "/stock-locks"

// zkConn is the subset of *zk.Conn used by ZookeeperLocker
type zkConn interface {
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	CreateProtectedEphemeralSequential(path string, data []byte, acl []zk.ACL) (string, error)
	Children(path string) ([]string, *zk.Stat, error)
	ExistsW(path string) (bool, *zk.Stat, <-chan zk.Event, error)
	Delete(path string, version int32) error
}

// ZookeeperLocker implements the ephemeral sequential node recipe: the
// holder is the child with the lowest sequence number, every waiter watches
// its predecessor.
type ZookeeperLocker struct {
	conn    zkConn
	root    string
	timeout time.Duration
	logger  *logging.Logger
}

// NewZookeeperLocker creates a ZookeeperLocker. timeout bounds the wait per lock.
func NewZookeeperLocker(conn zkConn, timeout time.Duration, logger *logging.Logger) *ZookeeperLocker {
	return &ZookeeperLocker{conn: conn, root: zkLockRoot, timeout: timeout, logger: logger.WithComponent("zookeeper-locker")}
}

// ConnectZookeeper dials the ensemble
func ConnectZookeeper(servers []string, sessionTimeout time.Duration) (*zk.Conn, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	return conn, nil
}

func (l *ZookeeperLocker) ensure(path string) error {
	_, err := l.conn.Create(path, nil, 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

// Lock blocks until the product's lock node is the lowest child
func (l *ZookeeperLocker) Lock(ctx context.Context, productID int64) (func(), error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := l.ensure(l.root); err != nil {
		return nil, err
	}
	lockPath := fmt.Sprintf("%s/product-%d", l.root, productID)
	if err := l.ensure(lockPath); err != nil {
		return nil, err
	}

	node, err := l.conn.CreateProtectedEphemeralSequential(lockPath+"/lock-", nil, zk.WorldACL(zk.PermAll))
	if err != nil {
		return nil, fmt.Errorf("failed to create lock node: %w", err)
	}
	name := strings.TrimPrefix(node, lockPath+"/")

	unlock := func() {
		if err := l.conn.Delete(node, -1); err != nil && !errors.Is(err, zk.ErrNoNode) {
			l.logger.WithError(err).Warn("Failed to delete lock node", "node", node)
		}
	}

	for {
		children, _, err := l.conn.Children(lockPath)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("failed to list lock nodes: %w", err)
		}

		prev, first := predecessor(children, name)
		if first {
			return unlock, nil
		}
		if prev == "" {
			unlock()
			return nil, fmt.Errorf("lock node %s vanished", node)
		}

		exists, _, events, err := l.conn.ExistsW(lockPath + "/" + prev)
		if err != nil {
			unlock()
			return nil, fmt.Errorf("failed to watch %s: %w", prev, err)
		}
		if !exists {
			continue
		}

		select {
		case <-events:
		case <-ctx.Done():
			unlock()
			return nil, fmt.Errorf("%w: product %d: %v", domain.ErrLockNotAcquired, productID, ctx.Err())
		}
	}
}

// sequence extracts the counter zookeeper appends to sequential nodes.
// Protected nodes carry a session prefix, so names must not be compared directly.
func sequence(name string) string {
	if len(name) < 10 {
		return name
	}
	return name[len(name)-10:]
}

// predecessor returns the child just before self in sequence order, and
// whether self is the lowest
func predecessor(children []string, self string) (string, bool) {
	sort.Slice(children, func(i, j int) bool { return sequence(children[i]) < sequence(children[j]) })

	for i, child := range children {
		if child != self {
			continue
		}
		if i == 0 {
			return "", true
		}
		return children[i-1], false
	}
	return "", false
}

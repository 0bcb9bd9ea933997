package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	pkgmongo "github.com/retail-platform/stock-service/pkg/mongodb"
)

// TransactionManager implements domain.TransactionManager with multi-document
// transactions. Requires a replica set.
type TransactionManager struct {
	client *pkgmongo.Client
}

func NewTransactionManager(client *pkgmongo.Client) *TransactionManager {
	return &TransactionManager{client: client}
}

// WithinTransaction runs fn in a transaction. A call made with a context that
// already carries a session joins it.
func (m *TransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	return m.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}

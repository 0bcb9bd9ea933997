package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-platform/stock-service/internal/domain"
	pkgmongo "github.com/retail-platform/stock-service/pkg/mongodb"
	"github.com/retail-platform/stock-service/pkg/metrics"
)

const alertsCollection = "low_stock_alerts"

// AlertRepository implements domain.AlertRepository. A partial unique index
// keeps at most one ACTIVE alert per product.
type AlertRepository struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
}

func NewAlertRepository(db *mongo.Database, m *metrics.Metrics) *AlertRepository {
	return &AlertRepository{collection: db.Collection(alertsCollection), metrics: m}
}

func (r *AlertRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "productId", Value: 1}},
			Options: options.Index().
				SetName("uniq_active_productId").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"alertStatus": domain.AlertActive}),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create alert indexes: %w", err)
	}
	return nil
}

func (r *AlertRepository) Save(ctx context.Context, alert *domain.LowStockAlert) (err error) {
	defer observe(r.metrics, alertsCollection, "upsert")(&err)

	opts := options.Replace().SetUpsert(true)
	if _, err = r.collection.ReplaceOne(ctx, bson.M{"_id": alert.ID}, alert, opts); err != nil {
		if pkgmongo.IsDuplicateKey(err) {
			return fmt.Errorf("product %d already has an active alert: %w", alert.ProductID, err)
		}
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

func (r *AlertRepository) FindActiveByProductID(ctx context.Context, productID int64) (_ *domain.LowStockAlert, err error) {
	defer observe(r.metrics, alertsCollection, "find")(&err)

	var alert domain.LowStockAlert
	err = r.collection.FindOne(ctx, bson.M{"productId": productID, "alertStatus": domain.AlertActive}).Decode(&alert)
	if pkgmongo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alert: %w", err)
	}
	return &alert, nil
}

func (r *AlertRepository) FindActive(ctx context.Context) (_ []*domain.LowStockAlert, err error) {
	defer observe(r.metrics, alertsCollection, "find")(&err)

	opts := options.Find().SetSort(pkgmongo.SortAscending("productId"))
	cursor, err := r.collection.Find(ctx, bson.M{"alertStatus": domain.AlertActive}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find alerts: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []*domain.LowStockAlert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}
	return alerts, nil
}

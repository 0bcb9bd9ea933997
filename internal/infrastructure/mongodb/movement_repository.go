package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-platform/stock-service/internal/domain"
	"github.com/retail-platform/stock-service/pkg/metrics"
)

const movementsCollection = "stock_movements"

// MovementRepository implements domain.MovementRepository. Movements are insert only.
type MovementRepository struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
}

func NewMovementRepository(db *mongo.Database, m *metrics.Metrics) *MovementRepository {
	return &MovementRepository{collection: db.Collection(movementsCollection), metrics: m}
}

func (r *MovementRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_productId_createdAt"),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create movement indexes: %w", err)
	}
	return nil
}

func (r *MovementRepository) Append(ctx context.Context, movement *domain.StockMovement) (err error) {
	defer observe(r.metrics, movementsCollection, "insert")(&err)

	if _, err = r.collection.InsertOne(ctx, movement); err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}
	return nil
}

func (r *MovementRepository) FindByProductID(ctx context.Context, productID int64, offset, limit int) (_ []*domain.StockMovement, _ int64, err error) {
	defer observe(r.metrics, movementsCollection, "find")(&err)

	filter := bson.M{"productId": productID}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count movements: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find movements: %w", err)
	}
	defer cursor.Close(ctx)

	var movements []*domain.StockMovement
	if err := cursor.All(ctx, &movements); err != nil {
		return nil, 0, fmt.Errorf("failed to decode movements: %w", err)
	}
	return movements, total, nil
}

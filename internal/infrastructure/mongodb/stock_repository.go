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

const stocksCollection = "stocks"

// StockRepository implements domain.StockRepository. Save is optimistic on
// the version field in addition to the product lock held by the service.
type StockRepository struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
}

func NewStockRepository(db *mongo.Database, m *metrics.Metrics) *StockRepository {
	return &StockRepository{collection: db.Collection(stocksCollection), metrics: m}
}

func (r *StockRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}},
			Options: options.Index().SetName("uniq_productId").SetUnique(true),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create stock indexes: %w", err)
	}
	return nil
}

func (r *StockRepository) Create(ctx context.Context, stock *domain.Stock) (err error) {
	defer observe(r.metrics, stocksCollection, "insert")(&err)

	stock.Version = 1
	if _, err = r.collection.InsertOne(ctx, stock); err != nil {
		if pkgmongo.IsDuplicateKey(err) {
			return fmt.Errorf("%w: product %d", domain.ErrDuplicateStock, stock.ProductID)
		}
		return fmt.Errorf("failed to insert stock: %w", err)
	}
	return nil
}

func (r *StockRepository) Save(ctx context.Context, stock *domain.Stock) (err error) {
	defer observe(r.metrics, stocksCollection, "update")(&err)

	filter := bson.M{"productId": stock.ProductID, "version": stock.Version}
	update := bson.M{
		"$set": bson.M{
			"availableQuantity": stock.AvailableQuantity,
			"reservedQuantity":  stock.ReservedQuantity,
			"physicalQuantity":  stock.PhysicalQuantity,
			"minimumQuantity":   stock.MinimumQuantity,
			"updatedAt":         stock.UpdatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"productId": stock.ProductID})
		if err != nil {
			return fmt.Errorf("failed to check stock: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: product %d", domain.ErrStockNotFound, stock.ProductID)
		}
		return fmt.Errorf("%w: stock of product %d changed since version %d",
			domain.ErrConcurrentModification, stock.ProductID, stock.Version)
	}

	stock.Version++
	return nil
}

func (r *StockRepository) FindByProductID(ctx context.Context, productID int64) (_ *domain.Stock, err error) {
	defer observe(r.metrics, stocksCollection, "find")(&err)

	var stock domain.Stock
	err = r.collection.FindOne(ctx, bson.M{"productId": productID}).Decode(&stock)
	if pkgmongo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stock: %w", err)
	}
	return &stock, nil
}

func (r *StockRepository) FindAll(ctx context.Context, offset, limit int) (_ []*domain.Stock, _ int64, err error) {
	defer observe(r.metrics, stocksCollection, "find")(&err)

	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count stock: %w", err)
	}

	opts := options.Find().SetSort(pkgmongo.SortAscending("productId")).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	stocks, err := r.find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return stocks, total, nil
}

func (r *StockRepository) FindLowStock(ctx context.Context) (_ []*domain.Stock, err error) {
	defer observe(r.metrics, stocksCollection, "find")(&err)

	filter := bson.M{"$expr": bson.M{"$lt": bson.A{"$availableQuantity", "$minimumQuantity"}}}
	return r.find(ctx, filter, options.Find().SetSort(pkgmongo.SortAscending("productId")))
}

func (r *StockRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*domain.Stock, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find stock: %w", err)
	}
	defer cursor.Close(ctx)

	var stocks []*domain.Stock
	if err := cursor.All(ctx, &stocks); err != nil {
		return nil, fmt.Errorf("failed to decode stock: %w", err)
	}
	return stocks, nil
}

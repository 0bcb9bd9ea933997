package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/retail-platform/stock-service/internal/domain"
	pkgmongo "github.com/retail-platform/stock-service/pkg/mongodb"
	"github.com/retail-platform/stock-service/pkg/metrics"
)

const reservationsCollection = "stock_reservations"

// ReservationRepository implements domain.ReservationRepository
type ReservationRepository struct {
	collection *mongo.Collection
	metrics    *metrics.Metrics
}

func NewReservationRepository(db *mongo.Database, m *metrics.Metrics) *ReservationRepository {
	return &ReservationRepository{collection: db.Collection(reservationsCollection), metrics: m}
}

func (r *ReservationRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "orderId", Value: 1}},
			Options: options.Index().SetName("idx_orderId"),
		},
		// sweeper lookup
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("idx_status_expiresAt"),
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create reservation indexes: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Save(ctx context.Context, reservation *domain.StockReservation) (err error) {
	defer observe(r.metrics, reservationsCollection, "upsert")(&err)

	opts := options.Replace().SetUpsert(true)
	if _, err = r.collection.ReplaceOne(ctx, bson.M{"_id": reservation.ID}, reservation, opts); err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (_ *domain.StockReservation, err error) {
	defer observe(r.metrics, reservationsCollection, "find")(&err)

	var reservation domain.StockReservation
	err = r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&reservation)
	if pkgmongo.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}
	return &reservation, nil
}

func (r *ReservationRepository) FindByOrderID(ctx context.Context, orderID int64) (_ []*domain.StockReservation, err error) {
	defer observe(r.metrics, reservationsCollection, "find")(&err)

	return r.find(ctx, bson.M{"orderId": orderID}, options.Find().SetSort(pkgmongo.SortAscending("createdAt")))
}

// FindExpired returns ACTIVE reservations whose expiresAt is before now, oldest first.
// Reservations without an expiry never match.
func (r *ReservationRepository) FindExpired(ctx context.Context, now time.Time, limit int) (_ []*domain.StockReservation, err error) {
	defer observe(r.metrics, reservationsCollection, "find")(&err)

	filter := bson.M{
		"status":    domain.ReservationActive,
		"expiresAt": bson.M{"$lt": now},
	}
	opts := options.Find().SetSort(pkgmongo.SortAscending("expiresAt"))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *ReservationRepository) find(ctx context.Context, filter any, opts *options.FindOptions) ([]*domain.StockReservation, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var reservations []*domain.StockReservation
	if err := cursor.All(ctx, &reservations); err != nil {
		return nil, fmt.Errorf("failed to decode reservations: %w", err)
	}
	return reservations, nil
}

package mongodb

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SortAscending creates an ascending sort option
func SortAscending(field string) bson.D {
	return bson.D{{Key: field, Value: 1}}
}

// Pagination represents zero-based offset pagination
type Pagination struct {
	Offset int64
	Limit  int64
}

// IsDuplicateKey reports whether err is a unique index violation
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// IsNotFound reports whether err is mongo.ErrNoDocuments
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookmarket/server/internal/models"
)

// Clock is swapped in tests that need deterministic creation times.
var Clock = time.Now

// newestFirst orders by creation time; _id breaks ties between records created
// within the same millisecond.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// InsertOne stamps doc with a new identity and creation time and performs a
// single insert. The stamped doc is returned only if the write succeeded.
func InsertOne[T models.IRecord](ctx context.Context, coll *mongo.Collection, doc T) (T, error) {
	doc.Stamp(Clock())
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to insert into %s: %w", coll.Name(), err)
	}
	return doc, nil
}

// FindNewestFirst returns every document in coll, most recently created first.
// The result is never nil.
func FindNewestFirst[T any](ctx context.Context, coll *mongo.Collection) ([]T, error) {
	cursor, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	if err = cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", coll.Name(), err)
	}
	if results == nil {
		results = make([]T, 0)
	}
	return results, nil
}

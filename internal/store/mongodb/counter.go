package mongodb

import (
	"context"
	"fmt"

	"krishi-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Counter increments a per-name document with $inc; the upsert makes the
// first call create it.
type Counter struct {
	coll *mongo.Collection
}

func NewCounter(coll *mongo.Collection) *Counter {
	return &Counter{coll: coll}
}

func (c *Counter) Next(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter models.Counter
	err := c.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", name, err)
	}
	return counter.Value, nil
}

package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"krishi-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxUpdateAttempts = 5

// Repository is a store.Repository over one collection. Documents carry a
// "version" field; Update replaces a document only if the version it read is
// still current.
type Repository[T any] struct {
	coll *mongo.Collection
}

func NewRepository[T any](coll *mongo.Collection) *Repository[T] {
	return &Repository[T]{coll: coll}
}

func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	if _, err := r.coll.InsertOne(ctx, entity); err != nil {
		return translate(err)
	}
	return nil
}

func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	var e T
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *Repository[T]) Find(ctx context.Context, q store.Query) ([]T, error) {
	opts := options.Find()
	if q.SortBy.Path != "" {
		dir := 1
		if q.Desc {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.SortBy.Path, Value: dir}, {Key: "_id", Value: dir}})
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := r.coll.Find(ctx, filter(q), opts)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *Repository[T]) Count(ctx context.Context, q store.Query) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, filter(q))
	if err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (r *Repository[T]) Sum(ctx context.Context, f store.Field, q store.Query) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter(q)}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$" + f.Path}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, translate(err)
	}
	var rows []struct {
		Total float64 `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, translate(err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (r *Repository[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		raw, err := r.coll.FindOne(ctx, bson.M{"_id": id}).Raw()
		if err != nil {
			return nil, translate(err)
		}

		var meta struct {
			Version int64 `bson:"version"`
		}
		if err := bson.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("mongo: read version: %w", err)
		}
		var e T
		if err := bson.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("mongo: decode: %w", err)
		}

		if err := fn(&e); err != nil {
			return nil, err
		}

		doc, err := withVersion(&e, meta.Version+1)
		if err != nil {
			return nil, err
		}
		res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": id, "version": meta.Version}, doc)
		if err != nil {
			return nil, translate(err)
		}
		if res.MatchedCount == 1 {
			return &e, nil
		}
	}
	return nil, store.ErrConflict
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func filter(q store.Query) bson.M {
	var and []bson.M

	for _, c := range q.Where {
		and = append(and, bson.M{c.Field.Path: c.Value})
	}

	if len(q.AnyOf) > 0 {
		var or []bson.M
		for _, c := range q.AnyOf {
			or = append(or, bson.M{c.Field.Path: c.Value})
		}
		and = append(and, bson.M{"$or": or})
	}

	for _, c := range q.Contains {
		and = append(and, bson.M{c.Field.Path: insensitive(fmt.Sprint(c.Value))})
	}

	if q.Search != "" && len(q.SearchIn) > 0 {
		var or []bson.M
		for _, f := range q.SearchIn {
			or = append(or, bson.M{f.Path: insensitive(q.Search)})
		}
		and = append(and, bson.M{"$or": or})
	}

	if len(and) == 0 {
		return bson.M{}
	}
	return bson.M{"$and": and}
}

func insensitive(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}

// withVersion encodes e and overwrites its version field.
func withVersion[T any](e *T, version int64) (bson.D, error) {
	data, err := bson.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("mongo: encode: %w", err)
	}
	var doc bson.D
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("mongo: encode: %w", err)
	}
	for i := range doc {
		if doc[i].Key == "version" {
			doc[i].Value = version
			return doc, nil
		}
	}
	return append(doc, bson.E{Key: "version", Value: version}), nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

package mongodb

import (
	"errors"
	"testing"
	"time"

	"krishi-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestFilterEmpty(t *testing.T) {
	assert.Equal(t, bson.M{}, filter(store.Query{}))
}

func TestFilterCombinesClauses(t *testing.T) {
	status := store.Field{Path: "status"}
	name := store.Field{Path: "crop.name"}
	number := store.Field{Path: "listingNumber"}

	got := filter(store.Query{
		Where:    []store.Cond{store.Eq(status, "active")},
		Contains: []store.Cond{store.Eq(name, "rice (basmati)")},
		Search:   "CL-1",
		SearchIn: []store.Field{name, number},
	})

	and, ok := got["$and"].([]bson.M)
	require.True(t, ok)
	require.Len(t, and, 3)
	assert.Equal(t, bson.M{"status": "active"}, and[0])
	assert.Equal(t, bson.M{"crop.name": bson.M{"$regex": `rice \(basmati\)`, "$options": "i"}}, and[1])

	or, ok := and[2]["$or"].([]bson.M)
	require.True(t, ok)
	assert.Len(t, or, 2)
}

func TestWithVersionOverwrites(t *testing.T) {
	type doc struct {
		ID        string    `bson:"_id"`
		Version   int64     `bson:"version"`
		CreatedAt time.Time `bson:"createdAt"`
	}

	d, err := withVersion(&doc{ID: "x", Version: 3, CreatedAt: time.Now()}, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.Map()["version"])

	type bare struct {
		ID string `bson:"_id"`
	}
	d, err = withVersion(&bare{ID: "y"}, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Map()["version"])
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(mongo.ErrNoDocuments), store.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translate(dup), store.ErrDuplicate)

	other := errors.New("socket closed")
	assert.Same(t, other, translate(other))
}

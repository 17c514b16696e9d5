package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"krishi-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type crate struct {
	ID        string    `bson:"_id"`
	Code      string    `bson:"code"`
	Owner     owner     `bson:"owner"`
	Status    string    `bson:"status"`
	Weight    float64   `bson:"weight"`
	CreatedAt time.Time `bson:"createdAt"`
}

type owner struct {
	Name  string `bson:"name"`
	Phone string `bson:"phone"`
}

var (
	fieldCode   = store.Field{Path: "code"}
	fieldStatus = store.Field{Path: "status"}
	fieldName   = store.Field{Path: "owner.name"}
	fieldWeight = store.Field{Path: "weight"}
	fieldCreate = store.Field{Path: "createdAt"}
)

func seed(t *testing.T) *Repository[crate] {
	t.Helper()
	repo := New[crate](fieldCode)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	items := []crate{
		{ID: "a", Code: "C1", Owner: owner{"Ramesh Kumar", "9876543210"}, Status: "open", Weight: 10, CreatedAt: base},
		{ID: "b", Code: "C2", Owner: owner{"Sita Devi", "9123456780"}, Status: "open", Weight: 5.5, CreatedAt: base.Add(time.Hour)},
		{ID: "c", Code: "C3", Owner: owner{"Arjun Singh", "9000000001"}, Status: "closed", Weight: 7, CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range items {
		require.NoError(t, repo.Create(context.Background(), &items[i]))
	}
	return repo
}

func TestCreateRejectsDuplicates(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	err := repo.Create(ctx, &crate{ID: "a", Code: "C9"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	err = repo.Create(ctx, &crate{ID: "z", Code: "C2"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestGetMissing(t *testing.T) {
	repo := New[crate]()
	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindFiltersAndSorts(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	got, err := repo.Find(ctx, store.Query{
		Where:  []store.Cond{store.Eq(fieldStatus, "open")},
		SortBy: fieldCreate,
		Desc:   true,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)

	got, err = repo.Find(ctx, store.Query{Search: "SINGH", SearchIn: []store.Field{fieldName, fieldCode}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].ID)

	got, err = repo.Find(ctx, store.Query{AnyOf: []store.Cond{store.Eq(fieldCode, "C1"), store.Eq(fieldCode, "C3")}})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = repo.Find(ctx, store.Query{SortBy: fieldCreate, Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestCountAndSum(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()
	open := store.Query{Where: []store.Cond{store.Eq(fieldStatus, "open")}, Limit: 1}

	n, err := repo.Count(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	total, err := repo.Sum(ctx, fieldWeight, open)
	require.NoError(t, err)
	assert.InDelta(t, 15.5, total, 0.0001)
}

func TestUpdateWritesOnlyOnSuccess(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	_, err := repo.Update(ctx, "a", func(c *crate) error {
		c.Status = "closed"
		return errors.New("guard failed")
	})
	require.Error(t, err)

	got, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "open", got.Status)

	updated, err := repo.Update(ctx, "a", func(c *crate) error {
		c.Status = "closed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "closed", updated.Status)

	_, err = repo.Update(ctx, "a", func(c *crate) error {
		c.Code = "C2"
		return nil
	})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = repo.Update(ctx, "missing", func(*crate) error { return nil })
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	repo := seed(t)
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, "b"))
	assert.ErrorIs(t, repo.Delete(ctx, "b"), store.ErrNotFound)

	n, err := repo.Count(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

package database

import (
	"context"
	"testing"

	"krishi-backend/internal/config"
	"krishi-backend/internal/models"
	"krishi-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, &config.Config{DBDriver: config.DriverMemory, SequenceSource: config.SequenceDatabase})
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Redis)

	require.NoError(t, s.Users.Create(ctx, &models.User{ID: "u-1", Username: "ramesh", Email: "r@example.com"}))
	err = s.Users.Create(ctx, &models.User{ID: "u-2", Username: "ramesh", Email: "other@example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	first, err := s.Sequence.Next(ctx, "crop_listing")
	require.NoError(t, err)
	second, err := s.Sequence.Next(ctx, "crop_listing")
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{DBDriver: "sqlite"})
	assert.Error(t, err)
}

func TestMigrateMemoryIsNoop(t *testing.T) {
	assert.NoError(t, Migrate(context.Background(), &config.Config{DBDriver: config.DriverMemory}))
}

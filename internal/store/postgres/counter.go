package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Counter hands out sequence values from the counters table. The upsert
// increments and returns in one statement, so concurrent callers never see
// the same value.
type Counter struct {
	db *gorm.DB
}

func NewCounter(db *gorm.DB) *Counter {
	return &Counter{db: db}
}

func (c *Counter) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := c.db.WithContext(ctx).Raw(`
		INSERT INTO counters (name, value) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, name).Scan(&value).Error
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", name, err)
	}
	return value, nil
}

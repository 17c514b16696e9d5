// Package sequence produces the human-readable numbers stamped on listings
// and quotations.
package sequence

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	ListingCounter   = "crop_listing"
	QuotationCounter = "quotation"

	ListingPrefix   = "CL"
	QuotationPrefix = "KS"
)

// Generator returns strictly increasing values per counter name, unique
// under concurrent callers.
type Generator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Format renders PREFIX-<epoch millis>-<ordinal>, the ordinal zero padded to
// four digits.
func Format(prefix string, at time.Time, n int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, at.UnixMilli(), n)
}

// Number draws the next value from gen and formats it.
func Number(ctx context.Context, gen Generator, counter, prefix string, at time.Time) (string, error) {
	n, err := gen.Next(ctx, counter)
	if err != nil {
		return "", fmt.Errorf("next %s number: %w", counter, err)
	}
	return Format(prefix, at, n), nil
}

type Memory struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]int64)}
}

func (m *Memory) Next(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name]++
	return m.values[name], nil
}

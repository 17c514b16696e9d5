package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestFormat(t *testing.T) {
	at := time.UnixMilli(1718000000123)

	assert.Equal(t, "CL-1718000000123-0001", Format(ListingPrefix, at, 1))
	assert.Equal(t, "KS-1718000000123-0042", Format(QuotationPrefix, at, 42))
	assert.Equal(t, "CL-1718000000123-12345", Format(ListingPrefix, at, 12345))
}

func TestMemoryCountersAreIndependent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a, _ := m.Next(ctx, ListingCounter)
	b, _ := m.Next(ctx, ListingCounter)
	q, _ := m.Next(ctx, QuotationCounter)

	assert.Equal(t, int64(1), a)
	assert.Equal(t, int64(2), b)
	assert.Equal(t, int64(1), q)
}

func TestMemoryUniqueUnderConcurrency(t *testing.T) {
	m := NewMemory()
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		g    errgroup.Group
	)

	for i := 0; i < 200; i++ {
		g.Go(func() error {
			n, err := m.Next(context.Background(), ListingCounter)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[n] {
				t.Errorf("value %d handed out twice", n)
			}
			seen[n] = true
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, seen, 200)
}

package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		wantOffset  int
		wantLimit   int
		wantPage    int
	}{
		{"defaults", 0, 0, 0, DefaultLimit, 1},
		{"third page", 3, 20, 40, 20, 3},
		{"limit clamped", 1, 1000, 0, MaxLimit, 1},
		{"negative page", -4, 5, 0, 5, 1},
		{"huge page clamped", math.MaxInt, 10, (MaxPage - 1) * 10, 10, MaxPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Query
			p := Page(&q, tt.page, tt.limit)
			assert.Equal(t, tt.wantOffset, q.Offset)
			assert.Equal(t, tt.wantLimit, q.Limit)
			assert.Equal(t, tt.wantPage, p.Page)
		})
	}
}

func TestPaginationWithTotal(t *testing.T) {
	var q Query
	p := Page(&q, 1, 10)

	assert.Equal(t, 0, p.WithTotal(0).Pages)
	assert.Equal(t, 1, p.WithTotal(10).Pages)
	assert.Equal(t, 3, p.WithTotal(21).Pages)
	assert.Equal(t, int64(21), p.WithTotal(21).Total)
}

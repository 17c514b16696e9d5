// Package store defines the persistence contract shared by the Postgres,
// Mongo and in-memory backends.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("resource not found")
	ErrDuplicate = errors.New("duplicate resource")
	ErrConflict  = errors.New("concurrent modification")
)

// Field names one persisted attribute in both layouts: Column is the SQL
// column, Path the dotted document path (also the bson/json name).
type Field struct {
	Column string
	Path   string
}

type Cond struct {
	Field Field
	Value any
}

func Eq(f Field, v any) Cond { return Cond{Field: f, Value: v} }

// Query filters a collection. Empty parts are ignored.
type Query struct {
	Where    []Cond // exact match, all
	AnyOf    []Cond // exact match, at least one
	Contains []Cond // case-insensitive substring, all
	Search   string // case-insensitive substring over SearchIn, at least one
	SearchIn []Field
	SortBy   Field
	Desc     bool
	Offset   int
	Limit    int // 0 means unbounded
}

type Repository[T any] interface {
	Create(ctx context.Context, entity *T) error
	Get(ctx context.Context, id string) (*T, error)
	Find(ctx context.Context, q Query) ([]T, error)
	Count(ctx context.Context, q Query) (int64, error)
	Sum(ctx context.Context, f Field, q Query) (float64, error)

	// Update loads the entity, hands it to fn and writes it back only when
	// fn returns nil. Backends guarantee no other Update on the same id
	// interleaves between the load and the write.
	Update(ctx context.Context, id string, fn func(*T) error) (*T, error)

	Delete(ctx context.Context, id string) error
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Pages int   `json:"pages"`
	Limit int   `json:"limit"`
}

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (page-1)*limit far from overflow.
	MaxPage = 1_000_000
)

// Page clamps page/limit and fills the query's offset and limit.
func Page(q *Query, page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page > MaxPage {
		page = MaxPage
	}
	q.Offset = (page - 1) * limit
	q.Limit = limit
	return Pagination{Page: page, Limit: limit}
}

// WithTotal completes a Pagination once the total is known.
func (p Pagination) WithTotal(total int64) Pagination {
	p.Total = total
	p.Pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return p
}

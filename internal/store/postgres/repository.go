package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"krishi-backend/internal/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is a GORM-backed store.Repository. The db must be opened with
// TranslateError so unique violations surface as gorm.ErrDuplicatedKey.
type Repository[T any] struct {
	db *gorm.DB
}

func NewRepository[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	return translate(r.db.WithContext(ctx).Create(entity).Error)
}

func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	if !validID(id) {
		return nil, store.ErrNotFound
	}
	var e T
	if err := r.db.WithContext(ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *Repository[T]) Find(ctx context.Context, q store.Query) ([]T, error) {
	tx := r.scope(ctx, q)
	if q.SortBy.Column != "" {
		tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: q.SortBy.Column}, Desc: q.Desc})
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var out []T
	if err := tx.Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (r *Repository[T]) Count(ctx context.Context, q store.Query) (int64, error) {
	var n int64
	if err := r.scope(ctx, q).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func (r *Repository[T]) Sum(ctx context.Context, f store.Field, q store.Query) (float64, error) {
	var total float64
	err := r.scope(ctx, q).
		Select(fmt.Sprintf("COALESCE(SUM(%s), 0)", f.Column)).
		Scan(&total).Error
	if err != nil {
		return 0, translate(err)
	}
	return total, nil
}

// Update runs fn against the row locked with SELECT ... FOR UPDATE and saves
// it in the same transaction.
func (r *Repository[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	if !validID(id) {
		return nil, store.ErrNotFound
	}
	var e T
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&e, "id = ?", id).Error; err != nil {
			return err
		}
		if err := fn(&e); err != nil {
			return err
		}
		return tx.Save(&e).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return store.ErrNotFound
	}
	res := r.db.WithContext(ctx).Delete(new(T), "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository[T]) scope(ctx context.Context, q store.Query) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(new(T))

	for _, c := range q.Where {
		tx = tx.Where(fmt.Sprintf("%s = ?", c.Field.Column), c.Value)
	}

	if len(q.AnyOf) > 0 {
		group := r.db.Session(&gorm.Session{NewDB: true})
		for _, c := range q.AnyOf {
			group = group.Or(fmt.Sprintf("%s = ?", c.Field.Column), c.Value)
		}
		tx = tx.Where(group)
	}

	for _, c := range q.Contains {
		tx = tx.Where(fmt.Sprintf("LOWER(%s) LIKE ?", c.Field.Column), likePattern(fmt.Sprint(c.Value)))
	}

	if q.Search != "" && len(q.SearchIn) > 0 {
		pattern := likePattern(q.Search)
		group := r.db.Session(&gorm.Session{NewDB: true})
		for _, f := range q.SearchIn {
			group = group.Or(fmt.Sprintf("LOWER(%s) LIKE ?", f.Column), pattern)
		}
		tx = tx.Where(group)
	}
	return tx
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// Primary keys are uuid columns; anything else cannot exist and would make
// Postgres reject the statement.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

// translate maps gorm errors to store sentinels. Errors produced by an
// Update callback pass through unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

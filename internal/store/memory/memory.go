// Package memory is an in-process store backend. Documents are kept as BSON
// so filters use the same paths as the Mongo backend.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"krishi-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
)

type Repository[T any] struct {
	mu     sync.RWMutex
	docs   map[string]bson.Raw
	seq    map[string]int64
	next   int64
	unique []store.Field
}

// New returns an empty repository. Values at the unique paths must not
// repeat across documents.
func New[T any](unique ...store.Field) *Repository[T] {
	return &Repository[T]{
		docs:   make(map[string]bson.Raw),
		seq:    make(map[string]int64),
		unique: unique,
	}
}

func (r *Repository[T]) Create(_ context.Context, entity *T) error {
	raw, id, err := encode(entity)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; ok {
		return fmt.Errorf("%w: _id %s", store.ErrDuplicate, id)
	}
	if err := r.checkUnique(id, raw); err != nil {
		return err
	}
	r.next++
	r.docs[id] = raw
	r.seq[id] = r.next
	return nil
}

func (r *Repository[T]) Get(_ context.Context, id string) (*T, error) {
	r.mu.RLock()
	raw, ok := r.docs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return decode[T](raw)
}

func (r *Repository[T]) Find(_ context.Context, q store.Query) ([]T, error) {
	r.mu.RLock()
	ids := r.match(q)
	raws := make([]bson.Raw, len(ids))
	for i, id := range ids {
		raws[i] = r.docs[id]
	}
	r.mu.RUnlock()

	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		e, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *Repository[T]) Count(_ context.Context, q store.Query) (int64, error) {
	q.Offset, q.Limit = 0, 0
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.match(q))), nil
}

func (r *Repository[T]) Sum(_ context.Context, f store.Field, q store.Query) (float64, error) {
	q.Offset, q.Limit = 0, 0
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total float64
	for _, id := range r.match(q) {
		rv, err := r.docs[id].LookupErr(strings.Split(f.Path, ".")...)
		if err != nil {
			continue
		}
		if n, ok := number(rv); ok {
			total += n
		}
	}
	return total, nil
}

func (r *Repository[T]) Update(_ context.Context, id string, fn func(*T) error) (*T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, ok := r.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	e, err := decode[T](raw)
	if err != nil {
		return nil, err
	}
	if err := fn(e); err != nil {
		return nil, err
	}

	updated, newID, err := encode(e)
	if err != nil {
		return nil, err
	}
	if newID != id {
		return nil, fmt.Errorf("memory: update changed _id from %s to %s", id, newID)
	}
	if err := r.checkUnique(id, updated); err != nil {
		return nil, err
	}
	r.docs[id] = updated
	return decode[T](updated)
}

func (r *Repository[T]) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.docs, id)
	delete(r.seq, id)
	return nil
}

// match returns the ids satisfying q in result order. Callers hold the lock.
func (r *Repository[T]) match(q store.Query) []string {
	var ids []string
	for id, raw := range r.docs {
		if matches(raw, q) {
			ids = append(ids, id)
		}
	}

	sort.SliceStable(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if q.SortBy.Path != "" {
			c := compare(lookup(r.docs[a], q.SortBy.Path), lookup(r.docs[b], q.SortBy.Path))
			if c != 0 {
				if q.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		// insertion order breaks ties
		if q.Desc {
			return r.seq[a] > r.seq[b]
		}
		return r.seq[a] < r.seq[b]
	})

	if q.Offset > 0 {
		if q.Offset >= len(ids) {
			return nil
		}
		ids = ids[q.Offset:]
	}
	if q.Limit > 0 && len(ids) > q.Limit {
		ids = ids[:q.Limit]
	}
	return ids
}

func (r *Repository[T]) checkUnique(id string, raw bson.Raw) error {
	for _, f := range r.unique {
		v := lookup(raw, f.Path)
		if v.Type == 0 {
			continue
		}
		if s, ok := v.StringValueOK(); ok && s == "" {
			continue
		}
		for otherID, other := range r.docs {
			if otherID == id {
				continue
			}
			if sameValue(v, lookup(other, f.Path)) {
				return fmt.Errorf("%w: %s", store.ErrDuplicate, f.Path)
			}
		}
	}
	return nil
}

func matches(raw bson.Raw, q store.Query) bool {
	for _, c := range q.Where {
		if !equals(lookup(raw, c.Field.Path), c.Value) {
			return false
		}
	}

	if len(q.AnyOf) > 0 {
		hit := false
		for _, c := range q.AnyOf {
			if equals(lookup(raw, c.Field.Path), c.Value) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	for _, c := range q.Contains {
		if !contains(lookup(raw, c.Field.Path), fmt.Sprint(c.Value)) {
			return false
		}
	}

	if q.Search != "" && len(q.SearchIn) > 0 {
		hit := false
		for _, f := range q.SearchIn {
			if contains(lookup(raw, f.Path), q.Search) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func lookup(raw bson.Raw, path string) bson.RawValue {
	rv, err := raw.LookupErr(strings.Split(path, ".")...)
	if err != nil {
		return bson.RawValue{}
	}
	return rv
}

func equals(rv bson.RawValue, v any) bool {
	t, data, err := bson.MarshalValue(v)
	if err != nil {
		return false
	}
	return rv.Type == t && bytes.Equal(rv.Value, data)
}

func sameValue(a, b bson.RawValue) bool {
	return a.Type == b.Type && bytes.Equal(a.Value, b.Value)
}

func contains(rv bson.RawValue, needle string) bool {
	s, ok := rv.StringValueOK()
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
}

func number(rv bson.RawValue) (float64, bool) {
	switch rv.Type {
	case bson.TypeDouble:
		return rv.DoubleOK()
	case bson.TypeInt32:
		n, ok := rv.Int32OK()
		return float64(n), ok
	case bson.TypeInt64:
		n, ok := rv.Int64OK()
		return float64(n), ok
	}
	return 0, false
}

func compare(a, b bson.RawValue) int {
	if at, ok := a.DateTimeOK(); ok {
		bt, _ := b.DateTimeOK()
		return cmp(at, bt)
	}
	if as, ok := a.StringValueOK(); ok {
		bs, _ := b.StringValueOK()
		return strings.Compare(as, bs)
	}
	if an, ok := number(a); ok {
		bn, _ := number(b)
		return cmp(an, bn)
	}
	return 0
}

func cmp[N int64 | float64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func encode[T any](entity *T) (bson.Raw, string, error) {
	data, err := bson.Marshal(entity)
	if err != nil {
		return nil, "", fmt.Errorf("memory: encode: %w", err)
	}
	raw := bson.Raw(data)
	id, ok := raw.Lookup("_id").StringValueOK()
	if !ok || id == "" {
		return nil, "", fmt.Errorf("memory: document has no string _id")
	}
	return raw, id, nil
}

func decode[T any](raw bson.Raw) (*T, error) {
	var e T
	if err := bson.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("memory: decode: %w", err)
	}
	return &e, nil
}

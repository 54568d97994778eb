package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

type row = map[string]any

type tableSpec struct {
	name     string
	scopeCol string
	mutable  map[string]bool
	defaults row
	notFound error
}

// table keeps rows as JSON objects so that partial updates apply by column name
// exactly like the SQL store does.
type table[T domain.Scoped] struct {
	spec  tableSpec
	feed  *Feed
	clock func() time.Time

	mu    sync.RWMutex
	order []string
	rows  map[string]row
}

func newTable[T domain.Scoped](spec tableSpec, feed *Feed, clock func() time.Time) *table[T] {
	if spec.notFound == nil {
		spec.notFound = domain.ErrNotFound
	}
	return &table[T]{
		spec:  spec,
		feed:  feed,
		clock: clock,
		rows:  make(map[string]row),
	}
}

func (t *table[T]) Name() string { return t.spec.name }

func (t *table[T]) Select(ctx context.Context, q repository.Query) ([]T, error) {
	if q.Scope.IsZero() {
		return nil, domain.ErrMissingScope
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	var matched []row
	for _, id := range t.order {
		r := t.rows[id]
		if toString(r[q.Scope.Column]) != q.Scope.Value {
			continue
		}
		if q.Range != nil && !inRange(r[q.Range.Column], q.Range) {
			continue
		}
		matched = append(matched, cloneRow(r))
	}
	t.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			if q.Desc {
				return less(matched[j][q.OrderBy], matched[i][q.OrderBy])
			}
			return less(matched[i][q.OrderBy], matched[j][q.OrderBy])
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]T, 0, len(matched))
	for _, r := range matched {
		rec, err := decode[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (t *table[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	r, ok := t.rows[id]
	if ok {
		r = cloneRow(r)
	}
	t.mu.RUnlock()
	if !ok {
		return nil, t.spec.notFound
	}
	return decode[T](r)
}

func (t *table[T]) Insert(ctx context.Context, rec *T) (*T, error) {
	if rec == nil {
		return nil, domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := encode(rec)
	if err != nil {
		return nil, err
	}
	if toString(r["id"]) == "" {
		r["id"] = uuid.NewString()
	}
	for col, def := range t.spec.defaults {
		if v, ok := r[col]; !ok || v == nil || v == "" {
			r[col] = def
		}
	}
	now := t.clock().UTC().Format(time.RFC3339Nano)
	for _, col := range []string{"created_at", "updated_at"} {
		if _, ok := r[col]; ok {
			r[col] = now
		}
	}

	id := toString(r["id"])
	t.mu.Lock()
	if _, exists := t.rows[id]; exists {
		t.mu.Unlock()
		return nil, domain.NewError(domain.ErrCodeConflict, "duplicate key")
	}
	t.rows[id] = r
	t.order = append(t.order, id)
	stored := cloneRow(r)
	t.mu.Unlock()

	t.notify(ctx, domain.OpInsert, id, toString(stored[t.spec.scopeCol]))
	return decode[T](stored)
}

func (t *table[T]) Update(ctx context.Context, id string, fields domain.Fields) (*T, error) {
	if len(fields) == 0 {
		return nil, domain.ErrInvalidPayload
	}
	for col := range fields {
		if !t.spec.mutable[col] {
			return nil, domain.Invalid("column " + col + " cannot be updated")
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	patch, err := encode(fields)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	current, ok := t.rows[id]
	if !ok {
		t.mu.Unlock()
		return nil, t.spec.notFound
	}
	oldScope := toString(current[t.spec.scopeCol])
	next := cloneRow(current)
	for col, v := range patch {
		next[col] = v
	}
	if _, ok := next["updated_at"]; ok {
		next["updated_at"] = t.clock().UTC().Format(time.RFC3339Nano)
	}
	t.rows[id] = next
	stored := cloneRow(next)
	t.mu.Unlock()

	newScope := toString(stored[t.spec.scopeCol])
	t.notify(ctx, domain.OpUpdate, id, newScope)
	if oldScope != newScope {
		t.notify(ctx, domain.OpUpdate, id, oldScope)
	}
	return decode[T](stored)
}

func (t *table[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	r, ok := t.rows[id]
	if !ok {
		t.mu.Unlock()
		return t.spec.notFound
	}
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	t.notify(ctx, domain.OpDelete, id, toString(r[t.spec.scopeCol]))
	return nil
}

// find returns the first row whose column equals value.
func (t *table[T]) find(column, value string) (*T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range t.order {
		r := t.rows[id]
		if toString(r[column]) == value {
			rec, err := decode[T](cloneRow(r))
			if err != nil {
				return nil, false
			}
			return rec, true
		}
	}
	return nil, false
}

func (t *table[T]) notify(ctx context.Context, op domain.ChangeOp, id, scopeValue string) {
	if t.feed == nil || scopeValue == "" {
		return
	}
	_ = t.feed.Publish(ctx, domain.ChangeEvent{
		Table: t.spec.name,
		Op:    op,
		RowID: id,
		Scope: domain.Scope{Column: t.spec.scopeCol, Value: scopeValue},
		At:    t.clock(),
	})
}

func encode(v any) (row, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r row
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return r, nil
}

func decode[T any](r row) (*T, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func cloneRow(r row) row {
	out := make(row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}

func parseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	return t, err == nil
}

func inRange(v any, rng *repository.TimeRange) bool {
	t, ok := parseTime(v)
	if !ok {
		return false
	}
	return !t.Before(rng.From) && !t.After(rng.To)
}

func less(a, b any) bool {
	if ta, ok := parseTime(a); ok {
		if tb, ok := parseTime(b); ok {
			return ta.Before(tb)
		}
	}
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case bool:
		bv, _ := b.(bool)
		return !av && bv
	}
	return a == nil && b != nil
}

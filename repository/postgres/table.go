package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/repository"
)

// entity describes how one domain type maps onto its table.
type entity[T any] struct {
	table string
	// columns is the select list; scan reads them in this order.
	columns []string
	// insert lists the columns written on insert; values returns them in the same order.
	insert   []string
	defaults map[string]string
	mutable  map[string]bool
	touch    bool
	notFound error

	id     func(*T) *string
	values func(*T) []interface{}
	scan   func(scanner) (*T, error)
}

type table[T any] struct {
	pool *pgxpool.Pool
	spec entity[T]
	cols map[string]bool
}

func newTable[T any](pool *pgxpool.Pool, spec entity[T]) *table[T] {
	if spec.notFound == nil {
		spec.notFound = domain.ErrNotFound
	}
	cols := make(map[string]bool, len(spec.columns))
	for _, c := range spec.columns {
		cols[c] = true
	}
	return &table[T]{pool: pool, spec: spec, cols: cols}
}

func (t *table[T]) Name() string { return t.spec.table }

func (t *table[T]) selectList() string {
	return strings.Join(t.spec.columns, ", ")
}

func (t *table[T]) Select(ctx context.Context, q repository.Query) ([]T, error) {
	if q.Scope.IsZero() {
		return nil, domain.ErrMissingScope
	}
	if !t.cols[q.Scope.Column] {
		return nil, fmt.Errorf("postgres: %s has no column %q", t.spec.table, q.Scope.Column)
	}

	var (
		sb   strings.Builder
		args = []interface{}{q.Scope.Value}
	)
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE %s = $1", t.selectList(), t.spec.table, q.Scope.Column)
	if q.Range != nil {
		if !t.cols[q.Range.Column] {
			return nil, fmt.Errorf("postgres: %s has no column %q", t.spec.table, q.Range.Column)
		}
		fmt.Fprintf(&sb, " AND %s BETWEEN $2 AND $3", q.Range.Column)
		args = append(args, q.Range.From.UTC(), q.Range.To.UTC())
	}
	if q.OrderBy != "" {
		if !t.cols[q.OrderBy] {
			return nil, fmt.Errorf("postgres: %s has no column %q", t.spec.table, q.OrderBy)
		}
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", q.OrderBy, dir)
	}
	fmt.Fprintf(&sb, " LIMIT %d", clampLimit(q.Limit))

	rows, err := t.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		rec, err := t.spec.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (t *table[T]) Get(ctx context.Context, id string) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", t.selectList(), t.spec.table)
	rec, err := t.spec.scan(t.pool.QueryRow(ctx, query, id))
	return rec, t.mapErr(err)
}

func (t *table[T]) Insert(ctx context.Context, rec *T) (*T, error) {
	if rec == nil {
		return nil, domain.ErrInvalidPayload
	}
	if id := t.spec.id(rec); *id == "" {
		*id = uuid.NewString()
	}

	exprs := make([]string, len(t.spec.insert))
	for i, col := range t.spec.insert {
		exprs[i] = fmt.Sprintf("$%d", i+1)
		if def, ok := t.spec.defaults[col]; ok {
			exprs[i] = fmt.Sprintf("COALESCE(NULLIF($%d, ''), '%s')", i+1, def)
		}
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		t.spec.table, strings.Join(t.spec.insert, ", "), strings.Join(exprs, ", "), t.selectList())

	stored, err := t.spec.scan(t.pool.QueryRow(ctx, query, t.spec.values(rec)...))
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (t *table[T]) Update(ctx context.Context, id string, fields domain.Fields) (*T, error) {
	if len(fields) == 0 {
		return nil, domain.ErrInvalidPayload
	}
	cols := fields.Columns()
	sort.Strings(cols)

	sets := make([]string, 0, len(cols)+1)
	args := []interface{}{id}
	for _, col := range cols {
		if !t.spec.mutable[col] {
			return nil, domain.Invalid("column " + col + " cannot be updated")
		}
		args = append(args, fields[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if t.spec.touch {
		sets = append(sets, "updated_at = NOW()")
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 RETURNING %s",
		t.spec.table, strings.Join(sets, ", "), t.selectList())

	rec, err := t.spec.scan(t.pool.QueryRow(ctx, query, args...))
	return rec, t.mapErr(err)
}

func (t *table[T]) Delete(ctx context.Context, id string) error {
	tag, err := t.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", t.spec.table), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return t.spec.notFound
	}
	return nil
}

func (t *table[T]) mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return t.spec.notFound
	}
	return err
}

func columnSet(cols ...string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}

// Package pgxtest provides in-memory pgx rows for repository tests.
package pgxtest

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Call is one recorded statement.
type Call struct {
	SQL  string
	Args []any
}

// Querier answers every Query and QueryRow with the configured rows.
type Querier struct {
	Rows     [][]any
	Err      error
	Affected int64
	Calls    []Call
}

// Query records the call and returns the configured rows.
func (q *Querier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.Calls = append(q.Calls, Call{SQL: sql, Args: args})
	if q.Err != nil {
		return nil, q.Err
	}
	return &Rows{values: q.Rows, pos: -1}, nil
}

// QueryRow records the call and returns the first configured row, or pgx.ErrNoRows.
func (q *Querier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.Calls = append(q.Calls, Call{SQL: sql, Args: args})
	switch {
	case q.Err != nil:
		return Row{err: q.Err}
	case len(q.Rows) == 0:
		return Row{err: pgx.ErrNoRows}
	}
	return Row{values: q.Rows[0]}
}

// Exec records the call and reports Affected rows.
func (q *Querier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.Calls = append(q.Calls, Call{SQL: sql, Args: args})
	if q.Err != nil {
		return pgconn.CommandTag{}, q.Err
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", q.Affected)), nil
}

// Row is a single result row.
type Row struct {
	values []any
	err    error
}

// Scan copies the row into dest.
func (r Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

// Rows iterates over fixed values.
type Rows struct {
	values [][]any
	pos    int
	closed bool
}

// Close marks the rows closed.
func (r *Rows) Close() { r.closed = true }

// Err always returns nil.
func (r *Rows) Err() error { return nil }

// CommandTag returns an empty tag.
func (r *Rows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

// FieldDescriptions returns nil.
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }

// Next advances to the next row.
func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	return r.pos < len(r.values)
}

// Scan copies the current row into dest.
func (r *Rows) Scan(dest ...any) error { return assign(dest, r.values[r.pos]) }

// Values returns the current row.
func (r *Rows) Values() ([]any, error) { return r.values[r.pos], nil }

// RawValues returns nil.
func (r *Rows) RawValues() [][]byte { return nil }

// Conn returns nil.
func (r *Rows) Conn() *pgx.Conn { return nil }

// assign sets each dest pointer to the matching value. A nil value zeroes the target.
func assign(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return fmt.Errorf("scan: destination %d is not a pointer", i)
		}
		elem := target.Elem()
		if values[i] == nil {
			elem.Set(reflect.Zero(elem.Type()))
			continue
		}
		v := reflect.ValueOf(values[i])
		switch {
		case v.Type().AssignableTo(elem.Type()):
			elem.Set(v)
		case elem.Kind() == reflect.Pointer && v.Type().AssignableTo(elem.Type().Elem()):
			p := reflect.New(elem.Type().Elem())
			p.Elem().Set(v)
			elem.Set(p)
		case v.Type().ConvertibleTo(elem.Type()):
			elem.Set(v.Convert(elem.Type()))
		default:
			return fmt.Errorf("scan: cannot assign %T to destination %d (%s)", values[i], i, elem.Type())
		}
	}
	return nil
}

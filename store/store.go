package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Row is a single record keyed by column name.
type Row map[string]any

// String returns the string value of column, or "" if absent or not a string.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	case [16]byte:
		return uuid.UUID(v).String()
	default:
		return ""
	}
}

// Bool returns the boolean value of column, or false if absent.
func (r Row) Bool(column string) bool {
	b, _ := r[column].(bool)
	return b
}

// Op is a comparison operator in a filter condition.
type Op string

const (
	OpEq  Op = "="
	OpNeq Op = "<>"
	OpIn  Op = "IN"
)

// Cond is a single column comparison.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

// Filter is a conjunction of conditions.
type Filter []Cond

// Eq returns a filter with a single equality condition.
func Eq(column string, value any) Filter {
	return Filter{{Column: column, Op: OpEq, Value: value}}
}

// And returns a copy of f with an equality condition appended.
func (f Filter) And(column string, value any) Filter {
	out := make(Filter, 0, len(f)+1)
	out = append(out, f...)
	return append(out, Cond{Column: column, Op: OpEq, Value: value})
}

// Neq returns a copy of f with an inequality condition appended.
func (f Filter) Neq(column string, value any) Filter {
	out := make(Filter, 0, len(f)+1)
	out = append(out, f...)
	return append(out, Cond{Column: column, Op: OpNeq, Value: value})
}

// String renders the filter for logs. Values are not included.
func (f Filter) String() string {
	parts := make([]string, 0, len(f))
	for _, c := range f {
		parts = append(parts, c.Column+" "+string(c.Op)+" ?")
	}
	return strings.Join(parts, " AND ")
}

// Query describes a filtered read against one table.
type Query struct {
	Table   string
	Columns []string // empty selects all columns
	Where   Filter
	OrderBy string
	Desc    bool
	Limit   int // zero means no limit
}

// Store is the relational store consumed by this module.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Context: every method must honor cancellation/deadlines.
//   - Errors: unique-constraint violations are reported as ErrConflict; unknown
//     tables as ErrUnknownTable. Update and Delete report zero affected rows
//     rather than an error when the scope filter matches nothing.
type Store interface {
	// Query returns the rows of q.Table matching q.Where.
	Query(ctx context.Context, q Query) ([]Row, error)

	// Insert stores row and returns the generated id.
	Insert(ctx context.Context, table string, row Row) (string, error)

	// Update applies patch to the row with the given id, restricted to rows that
	// also match scope. Returns the number of affected rows.
	Update(ctx context.Context, table, id string, patch Row, scope Filter) (int64, error)

	// Delete removes the rows matching scope. Returns the number of affected rows.
	Delete(ctx context.Context, table string, scope Filter) (int64, error)
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// First returns the first row of q, or ErrNoRows.
func First(ctx context.Context, s Store, q Query) (Row, error) {
	q.Limit = 1
	rows, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

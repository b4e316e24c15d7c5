package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a pgx connection pool.
// The pool is owned by the caller.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	return &PostgresStore{pool: pool}, nil
}

// Connect opens a pool for databaseURL. Errors never include the URL.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.New("store: invalid database url")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: open pool: %w", err)
	}
	return pool, nil
}

// Query runs a SELECT built from q.
func (s *PostgresStore) Query(ctx context.Context, q Query) ([]Row, error) {
	sql, args := buildSelect(q)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = Row(m)
	}
	return out, nil
}

// Insert runs an INSERT ... RETURNING id.
func (s *PostgresStore) Insert(ctx context.Context, table string, row Row) (string, error) {
	sql, args := buildInsert(table, row)
	var id any
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return "", translate(err)
	}
	return Row{"id": id}.String("id"), nil
}

// Update runs an UPDATE restricted to id and scope.
func (s *PostgresStore) Update(ctx context.Context, table, id string, patch Row, scope Filter) (int64, error) {
	if len(patch) == 0 {
		return 0, ErrEmptyPatch
	}
	sql, args := buildUpdate(table, id, patch, scope)
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// Delete runs a DELETE restricted to scope.
func (s *PostgresStore) Delete(ctx context.Context, table string, scope Filter) (int64, error) {
	if len(scope) == 0 {
		return 0, ErrUnscoped
	}
	sql, args := buildDelete(table, scope)
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return translate(s.pool.Ping(ctx))
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func buildSelect(q Query) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		cols := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			cols[i] = ident(c)
		}
		b.WriteString(strings.Join(cols, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(ident(q.Table))

	args := make([]any, 0, len(q.Where))
	where, args := buildWhere(q.Where, args)
	b.WriteString(where)

	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(ident(q.OrderBy))
		if q.Desc {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	return b.String(), args
}

func buildInsert(table string, row Row) (string, []any) {
	cols := sortedColumns(row)
	names := make([]string, len(cols))
	params := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = ident(c)
		params[i] = fmt.Sprintf("$%d", i+1)
		args[i] = row[c]
	}
	if len(cols) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", ident(table), ident("id")), nil
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		ident(table), strings.Join(names, ", "), strings.Join(params, ", "), ident("id")), args
}

func buildUpdate(table, id string, patch Row, scope Filter) (string, []any) {
	cols := sortedColumns(patch)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(scope)+1)
	for i, c := range cols {
		args = append(args, patch[c])
		sets[i] = fmt.Sprintf("%s = $%d", ident(c), len(args))
	}
	where, args := buildWhere(Eq("id", id), args)
	extra, args := buildConds(scope, args)
	if extra != "" {
		where += " AND " + extra
	}
	return fmt.Sprintf("UPDATE %s SET %s%s", ident(table), strings.Join(sets, ", "), where), args
}

func buildDelete(table string, scope Filter) (string, []any) {
	where, args := buildWhere(scope, nil)
	return fmt.Sprintf("DELETE FROM %s%s", ident(table), where), args
}

func buildWhere(f Filter, args []any) (string, []any) {
	conds, args := buildConds(f, args)
	if conds == "" {
		return "", args
	}
	return " WHERE " + conds, args
}

func buildConds(f Filter, args []any) (string, []any) {
	parts := make([]string, 0, len(f))
	for _, c := range f {
		args = append(args, c.Value)
		switch c.Op {
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", ident(c.Column), len(args)))
		case OpNeq:
			parts = append(parts, fmt.Sprintf("%s IS DISTINCT FROM $%d", ident(c.Column), len(args)))
		default:
			parts = append(parts, fmt.Sprintf("%s = $%d", ident(c.Column), len(args)))
		}
	}
	return strings.Join(parts, " AND "), args
}

func sortedColumns(row Row) []string {
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

var (
	_ Store  = (*PostgresStore)(nil)
	_ Pinger = (*PostgresStore)(nil)
)

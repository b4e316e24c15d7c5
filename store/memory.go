package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TableSpec declares a MemoryStore table.
type TableSpec struct {
	// Name is the table name.
	Name string

	// Unique lists columns whose non-nil values must be unique across rows.
	Unique []string

	// UniqueTogether lists column sets whose combined values must be unique.
	UniqueTogether [][]string

	// Timestamps maintains created_at and updated_at columns when true.
	Timestamps bool
}

// MemoryStore is a process-local Store. Rows are copied on the way in and out,
// so callers never share maps with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*memTable
	now    func() time.Time
	newID  func() string
}

type memTable struct {
	spec  TableSpec
	rows  map[string]Row
	order []string // insertion order
}

// NewMemoryStore creates a store with the given tables.
func NewMemoryStore(tables ...TableSpec) *MemoryStore {
	s := &MemoryStore{
		tables: make(map[string]*memTable, len(tables)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, spec := range tables {
		s.tables[spec.Name] = &memTable{spec: spec, rows: make(map[string]Row)}
	}
	return s
}

// Seed inserts a row with a caller-chosen id, bypassing id generation.
// It is intended for fixtures.
func (s *MemoryStore) Seed(table string, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	id := row.String("id")
	if id == "" {
		id = s.newID()
	}
	return t.insertLocked(id, row, s.now())
}

// Query returns copies of the matching rows.
func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[q.Table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, q.Table)
	}

	matched := make([]Row, 0)
	for _, id := range t.order {
		if row := t.rows[id]; matches(row, q.Where) {
			matched = append(matched, row)
		}
	}

	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := compare(matched[i][q.OrderBy], matched[j][q.OrderBy])
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]Row, len(matched))
	for i, row := range matched {
		out[i] = project(row, q.Columns)
	}
	return out, nil
}

// Insert stores a copy of row under a generated id.
func (s *MemoryStore) Insert(ctx context.Context, table string, row Row) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	id := s.newID()
	if err := t.insertLocked(id, row, s.now()); err != nil {
		return "", err
	}
	return id, nil
}

// Update applies patch to the row with id when it also matches scope.
func (s *MemoryStore) Update(ctx context.Context, table, id string, patch Row, scope Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(patch) == 0 {
		return 0, ErrEmptyPatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	row, ok := t.rows[id]
	if !ok || !matches(row, scope) {
		return 0, nil
	}

	next := copyRow(row)
	for k, v := range patch {
		next[k] = v
	}
	next["id"] = id
	if err := t.checkUniqueLocked(id, next); err != nil {
		return 0, err
	}
	if t.spec.Timestamps {
		next["updated_at"] = s.now()
	}
	t.rows[id] = next
	return 1, nil
}

// Delete removes every row matching scope. An empty scope is refused.
func (s *MemoryStore) Delete(ctx context.Context, table string, scope Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(scope) == 0 {
		return 0, ErrUnscoped
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	var n int64
	kept := t.order[:0]
	for _, id := range t.order {
		if matches(t.rows[id], scope) {
			delete(t.rows, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
	return n, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (t *memTable) insertLocked(id string, row Row, now time.Time) error {
	if _, exists := t.rows[id]; exists {
		return fmt.Errorf("%w: %s.id", ErrConflict, t.spec.Name)
	}
	next := copyRow(row)
	next["id"] = id
	if err := t.checkUniqueLocked(id, next); err != nil {
		return err
	}
	if t.spec.Timestamps {
		if _, ok := next["created_at"]; !ok {
			next["created_at"] = now
		}
		next["updated_at"] = now
	}
	t.rows[id] = next
	t.order = append(t.order, id)
	return nil
}

func (t *memTable) checkUniqueLocked(id string, row Row) error {
	for _, col := range t.spec.Unique {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		for otherID, other := range t.rows {
			if otherID != id && reflect.DeepEqual(other[col], v) {
				return fmt.Errorf("%w: %s.%s", ErrConflict, t.spec.Name, col)
			}
		}
	}
	for _, cols := range t.spec.UniqueTogether {
		for otherID, other := range t.rows {
			if otherID != id && sameValues(row, other, cols) {
				return fmt.Errorf("%w: %s(%s)", ErrConflict, t.spec.Name, strings.Join(cols, ", "))
			}
		}
	}
	return nil
}

// sameValues reports whether a and b hold equal non-nil values in every
// column of cols.
func sameValues(a, b Row, cols []string) bool {
	for _, col := range cols {
		v := a[col]
		if v == nil || !reflect.DeepEqual(v, b[col]) {
			return false
		}
	}
	return true
}

func matches(row Row, f Filter) bool {
	for _, c := range f {
		v, ok := row[c.Column]
		switch c.Op {
		case OpEq:
			if !ok || !reflect.DeepEqual(v, c.Value) {
				return false
			}
		case OpNeq:
			if ok && reflect.DeepEqual(v, c.Value) {
				return false
			}
		case OpIn:
			if !ok || !containsValue(c.Value, v) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func containsValue(list, v any) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if reflect.DeepEqual(rv.Index(i).Interface(), v) {
			return true
		}
	}
	return false
}

func project(row Row, columns []string) Row {
	if len(columns) == 0 {
		return copyRow(row)
	}
	out := make(Row, len(columns))
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

func copyRow(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// compare orders strings, integers, floats and times; other types compare equal.
func compare(a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	case int:
		if bv, ok := b.(int); ok {
			return av - bv
		}
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	return 0
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Pinger = (*MemoryStore)(nil)
)

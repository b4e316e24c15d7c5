package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/embld/contentcore/store"
)

// AdminLookup reports whether a subject holds the admin privilege.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: an unknown subject is (false, nil), not an error.
type AdminLookup interface {
	IsAdmin(ctx context.Context, id string) (bool, error)
}

// AdminLookupFunc adapts a function to an AdminLookup.
type AdminLookupFunc func(ctx context.Context, id string) (bool, error)

// IsAdmin calls f.
func (f AdminLookupFunc) IsAdmin(ctx context.Context, id string) (bool, error) {
	return f(ctx, id)
}

// StoreAdminLookup reads the admin flag from a users table.
type StoreAdminLookup struct {
	Store store.Store

	// Table defaults to "users".
	Table string

	// Column defaults to "is_admin".
	Column string
}

// IsAdmin implements AdminLookup.
func (l StoreAdminLookup) IsAdmin(ctx context.Context, id string) (bool, error) {
	table, column := l.Table, l.Column
	if table == "" {
		table = "users"
	}
	if column == "" {
		column = "is_admin"
	}

	row, err := store.First(ctx, l.Store, store.Query{
		Table:   table,
		Columns: []string{column},
		Where:   store.Eq("id", id),
	})
	if errors.Is(err, store.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("auth: admin lookup: %w", err)
	}
	return row.Bool(column), nil
}

var (
	_ AdminLookup = AdminLookupFunc(nil)
	_ AdminLookup = StoreAdminLookup{}
)

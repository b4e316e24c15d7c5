package store

import (
	"context"
	"errors"

	"github.com/embld/contentcore/resilience"
)

// ResilientStore runs reads through a retrying executor and writes through
// the same executor without retry. Inserts and scoped updates are not
// idempotent.
type ResilientStore struct {
	inner  Store
	reads  *resilience.Executor
	writes *resilience.Executor
}

// WithResilience wraps inner. exec is used as-is for reads; writes share its
// timeout but never retry.
func WithResilience(inner Store, exec *resilience.Executor) *ResilientStore {
	return &ResilientStore{
		inner:  inner,
		reads:  exec,
		writes: exec.WithoutRetry(),
	}
}

// Query runs inner.Query with retries, the breaker and the timeout.
func (s *ResilientStore) Query(ctx context.Context, q Query) ([]Row, error) {
	var rows []Row
	err := s.reads.Execute(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.inner.Query(ctx, q)
		return err
	})
	return rows, err
}

// Insert runs inner.Insert once, under the breaker and the timeout.
func (s *ResilientStore) Insert(ctx context.Context, table string, row Row) (string, error) {
	var id string
	err := s.writes.Execute(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.inner.Insert(ctx, table, row)
		return err
	})
	return id, err
}

// Update runs inner.Update once, under the breaker and the timeout.
func (s *ResilientStore) Update(ctx context.Context, table, id string, patch Row, scope Filter) (int64, error) {
	var n int64
	err := s.writes.Execute(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.inner.Update(ctx, table, id, patch, scope)
		return err
	})
	return n, err
}

// Delete runs inner.Delete once, under the breaker and the timeout.
func (s *ResilientStore) Delete(ctx context.Context, table string, scope Filter) (int64, error) {
	var n int64
	err := s.writes.Execute(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.inner.Delete(ctx, table, scope)
		return err
	})
	return n, err
}

// IsUnavailable reports whether err blames the backend rather than the
// request. It is the failure predicate for a resilience.Breaker guarding a
// store: missing rows and conflicts never open the breaker.
func IsUnavailable(err error) bool {
	return IsTransient(err) || errors.Is(err, resilience.ErrTimeout)
}

// Ping forwards to the wrapped store when it supports Ping.
func (s *ResilientStore) Ping(ctx context.Context) error {
	if p, ok := s.inner.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

var (
	_ Store  = (*ResilientStore)(nil)
	_ Pinger = (*ResilientStore)(nil)
)

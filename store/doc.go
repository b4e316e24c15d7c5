// Package store defines the relational store boundary consumed by the cache and
// mutation layers.
//
// The Store interface is intentionally narrow: filtered reads, inserts that return
// the generated id, and updates/deletes scoped by an arbitrary filter so that
// ownership checks are applied atomically with the write. Two implementations are
// provided: MemoryStore for tests and single-process development, and
// PostgresStore backed by pgx.
package store

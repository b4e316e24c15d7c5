package store

import (
	"errors"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for store operations.
var (
	ErrNoRows       = errors.New("store: no rows")
	ErrConflict     = errors.New("store: unique constraint violated")
	ErrUnknownTable = errors.New("store: unknown table")
	ErrEmptyPatch   = errors.New("store: empty patch")
	ErrNilPool      = errors.New("store: connection pool is nil")
	ErrUnavailable  = errors.New("store: unavailable")
	ErrUnscoped     = errors.New("store: refusing unscoped delete")

	ErrMissingReference = errors.New("store: referenced row does not exist")
)

// IsTransient reports whether err is a failure worth retrying: connection
// exceptions, serialization failures and deadlocks.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgErr.Code == pgerrcode.SerializationFailure ||
			pgErr.Code == pgerrcode.DeadlockDetected
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// translate maps driver errors onto package sentinels. Connection failures
// become ErrUnavailable, whose message carries no host, user or database
// name; the driver error stays reachable through Unwrap and Detail.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation:
			return &conflictError{constraint: pgErr.ConstraintName, cause: err}
		case pgErr.Code == pgerrcode.ForeignKeyViolation:
			return &redactedError{sentinel: ErrMissingReference, cause: err}
		case pgErr.Code == pgerrcode.InvalidTextRepresentation:
			// A malformed key (such as a non-uuid id) cannot match any row.
			return &redactedError{sentinel: ErrNoRows, cause: err}
		case pgerrcode.IsConnectionException(pgErr.Code):
			return &redactedError{sentinel: ErrUnavailable, cause: err}
		}
		return err
	}
	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.Timeout(err) {
		return &redactedError{sentinel: ErrUnavailable, cause: err}
	}
	return err
}

// Detail returns the driver message behind a translated error. It may name
// hosts and users, so it belongs in logs only.
func Detail(err error) string {
	var r *redactedError
	if errors.As(err, &r) {
		return r.cause.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

type redactedError struct {
	sentinel error
	cause    error
}

func (e *redactedError) Error() string { return e.sentinel.Error() }

func (e *redactedError) Unwrap() error { return e.cause }

func (e *redactedError) Is(target error) bool { return target == e.sentinel }

type conflictError struct {
	constraint string
	cause      error
}

func (e *conflictError) Error() string {
	if e.constraint == "" {
		return ErrConflict.Error()
	}
	return ErrConflict.Error() + ": " + e.constraint
}

func (e *conflictError) Unwrap() error { return e.cause }

func (e *conflictError) Is(target error) bool { return target == ErrConflict }

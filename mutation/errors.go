package mutation

import (
	"errors"
	"fmt"
)

// Kind classifies a mutation failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindStoreError
	KindInvalid
	KindConflict
)

var kindNames = [...]string{
	KindUnknown:         "unknown",
	KindUnauthenticated: "unauthenticated",
	KindForbidden:       "forbidden",
	KindNotFound:        "not_found",
	KindStoreError:      "store_error",
	KindInvalid:         "invalid",
	KindConflict:        "conflict",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// Sentinels matched by errors.Is against an *Error of the same Kind.
var (
	ErrUnauthenticated = errors.New("mutation: unauthenticated")
	ErrForbidden       = errors.New("mutation: forbidden")
	ErrNotFound        = errors.New("mutation: not found")
	ErrStore           = errors.New("mutation: store error")
	ErrInvalid         = errors.New("mutation: invalid request")
	ErrConflict        = errors.New("mutation: conflict")

	ErrNilStore  = errors.New("mutation: store is nil")
	ErrNilSchema = errors.New("mutation: schema is nil")
)

var kindSentinels = map[Kind]error{
	KindUnauthenticated: ErrUnauthenticated,
	KindForbidden:       ErrForbidden,
	KindNotFound:        ErrNotFound,
	KindStoreError:      ErrStore,
	KindInvalid:         ErrInvalid,
	KindConflict:        ErrConflict,
}

// Error is the error returned by Coordinator operations.
type Error struct {
	Kind       Kind
	Op         string // "insert", "update" or "delete"
	Table      string
	ResourceID string
	Err        error // underlying cause, if any
}

// Error returns the error message. Store failures carry the store's message.
func (e *Error) Error() string {
	target := e.Table
	if e.ResourceID != "" {
		target += "/" + e.ResourceID
	}
	msg := fmt.Sprintf("mutation: %s %s: %s", e.Op, target, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && target == s
}

// Outcome labels the error in metrics and spans.
func (e *Error) Outcome() string {
	return e.Kind.String()
}

// Retryable reports whether the caller may retry. Only store failures are
// retryable; denials and missing resources are stable outcomes.
func (e *Error) Retryable() bool {
	return e.Kind == KindStoreError
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is a retryable mutation error.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}

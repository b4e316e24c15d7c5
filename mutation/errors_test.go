package mutation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/embld/contentcore/observe"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	tests := []struct {
		kind Kind
		want error
	}{
		{KindUnauthenticated, ErrUnauthenticated},
		{KindForbidden, ErrForbidden},
		{KindNotFound, ErrNotFound},
		{KindStoreError, ErrStore},
		{KindInvalid, ErrInvalid},
		{KindConflict, ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("handler: %w", &Error{Kind: tt.kind, Op: "update", Table: "ideas"})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.kind, KindOf(err))
			for _, other := range tests {
				if other.kind != tt.kind {
					assert.NotErrorIs(t, err, other.want)
				}
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	cause := errors.New(`duplicate key value violates unique constraint "users_username_key"`)
	err := &Error{Kind: KindStoreError, Op: "update", Table: "users", ResourceID: "u1", Err: cause}

	assert.Equal(t,
		`mutation: update users/u1: store_error: duplicate key value violates unique constraint "users_username_key"`,
		err.Error())
	assert.ErrorIs(t, err, cause)

	denied := &Error{Kind: KindForbidden, Op: "delete", Table: "ideas", ResourceID: "i1"}
	assert.Equal(t, "mutation: delete ideas/i1: forbidden", denied.Error())
}

func TestError_OutcomeAndRetry(t *testing.T) {
	store := &Error{Kind: KindStoreError}
	forbidden := &Error{Kind: KindForbidden}

	assert.Equal(t, "store_error", observe.Outcome(store))
	assert.Equal(t, "forbidden", observe.Outcome(fmt.Errorf("wrapped: %w", forbidden)))

	assert.True(t, IsRetryable(store))
	assert.False(t, IsRetryable(forbidden))
	assert.False(t, IsRetryable(&Error{Kind: KindNotFound}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, "unknown", Kind(99).String())
}

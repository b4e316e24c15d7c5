package resources

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embld/contentcore/auth"
	"github.com/embld/contentcore/mutation"
	"github.com/embld/contentcore/store"
)

func TestCatalog_Comments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice, bob := auth.Principal{ID: "alice"}, auth.Principal{ID: "bob"}
	root := auth.Principal{ID: "root", IsAdmin: true}

	comments, err := env.catalog.ListComments(ctx, "i1")
	require.NoError(t, err)
	assert.Empty(t, comments)

	id, err := env.catalog.AddComment(ctx, bob, "i1", map[string]any{
		"content": "  Would use this  ", "idea_id": "elsewhere", "user_id": "alice",
	})
	require.NoError(t, err)

	comments, err = env.catalog.ListComments(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, comments, 1, "creation evicts the cached list")
	assert.Equal(t, Comment{
		ID: id, IdeaID: "i1", UserID: "bob", Content: "Would use this",
		CreatedAt: comments[0].CreatedAt, UpdatedAt: comments[0].UpdatedAt,
	}, comments[0])

	queries := env.store.count("comments")
	_, err = env.catalog.ListComments(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, queries, env.store.count("comments"), "second read is cached")

	require.NoError(t, env.catalog.UpdateComment(ctx, bob, "i1", id, map[string]any{"content": "Edited"}))
	comments, err = env.catalog.ListComments(ctx, "i1")
	require.NoError(t, err)
	assert.Equal(t, "Edited", comments[0].Content)

	other, err := env.catalog.SaveIdea(ctx, alice, "", ideaPayload("Idea two"))
	require.NoError(t, err)

	err = env.catalog.DeleteComment(ctx, alice, "i1", id)
	assert.ErrorIs(t, err, mutation.ErrForbidden, "the idea owner does not own the comment")
	err = env.catalog.DeleteComment(ctx, bob, other, id)
	assert.ErrorIs(t, err, mutation.ErrNotFound, "comment is scoped to its idea")
	err = env.catalog.UpdateComment(ctx, bob, other, id, map[string]any{"content": "moved"})
	assert.ErrorIs(t, err, mutation.ErrNotFound)

	require.NoError(t, env.catalog.DeleteComment(ctx, root, "i1", id))
	comments, err = env.catalog.ListComments(ctx, "i1")
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestCatalog_CommentRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := auth.Principal{ID: "bob"}

	tests := []struct {
		name    string
		p       auth.Principal
		ideaID  string
		payload map[string]any
		wantErr error
	}{
		{name: "blank content", p: bob, ideaID: "i1", payload: map[string]any{"content": "   "}, wantErr: mutation.ErrInvalid},
		{name: "non-string content", p: bob, ideaID: "i1", payload: map[string]any{"content": 7}, wantErr: mutation.ErrInvalid},
		{name: "anonymous", p: auth.Anonymous(), ideaID: "i1", payload: map[string]any{"content": "hi"}, wantErr: mutation.ErrUnauthenticated},
		{name: "missing idea", p: bob, ideaID: "missing", payload: map[string]any{"content": "hi"}, wantErr: ErrNotFound},
		{name: "empty idea id", p: bob, ideaID: "", payload: map[string]any{"content": "hi"}, wantErr: ErrMissingResource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.catalog.AddComment(ctx, tt.p, tt.ideaID, tt.payload)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := env.catalog.ListComments(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_ToggleWant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := auth.Principal{ID: "bob"}

	state, err := env.catalog.Wants(ctx, auth.Anonymous(), "i1")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{}, state)
	_, err = env.catalog.Wants(ctx, auth.Anonymous(), "i1")
	require.NoError(t, err)
	assert.Equal(t, 1, env.store.count("wants"), "count is cached")

	state, err = env.catalog.ToggleWant(ctx, bob, "i1")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Active: true, Count: 1}, state)

	state, err = env.catalog.Wants(ctx, auth.Anonymous(), "i1")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Count: 1}, state, "toggle evicts the cached count")

	state, err = env.catalog.ToggleWant(ctx, auth.Principal{ID: "alice"}, "i1")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Active: true, Count: 2}, state)

	state, err = env.catalog.ToggleWant(ctx, bob, "i1")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Active: false, Count: 1}, state)

	state, err = env.catalog.Wants(ctx, auth.Principal{ID: "alice"}, "i1")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Active: true, Count: 1}, state)

	_, err = env.catalog.ToggleWant(ctx, auth.Anonymous(), "i1")
	assert.ErrorIs(t, err, mutation.ErrUnauthenticated)
	_, err = env.catalog.ToggleWant(ctx, bob, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.catalog.ToggleWant(ctx, bob, "")
	assert.ErrorIs(t, err, ErrMissingResource)
}

// racingStore lands a reaction row on behalf of a concurrent request and
// then reports the unique conflict the losing insert would see.
type racingStore struct {
	store.Store
	table string
}

func (s *racingStore) Insert(ctx context.Context, table string, row store.Row) (string, error) {
	if table != s.table {
		return s.Store.Insert(ctx, table, row)
	}
	if _, err := s.Store.Insert(ctx, table, row); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: %s(idea_id, user_id)", store.ErrConflict, table)
}

func TestCatalog_ToggleConflictIsIdempotent(t *testing.T) {
	env := newWrappedTestEnv(t, func(s store.Store) store.Store {
		return &racingStore{Store: s, table: "wants"}
	})

	state, err := env.catalog.ToggleWant(context.Background(), auth.Principal{ID: "bob"}, "i1")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Active: true, Count: 1}, state)
}

func TestCatalog_OwnerPostReactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bob := auth.Principal{ID: "bob"}

	state, err := env.catalog.ToggleLike(ctx, bob, "p-public")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Active: true, Count: 1}, state)

	state, err = env.catalog.ToggleSave(ctx, bob, "p-public")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Active: true, Count: 1}, state, "saves are counted apart from likes")

	state, err = env.catalog.Likes(ctx, auth.Anonymous(), "p-public")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Count: 1}, state)

	_, err = env.catalog.ToggleLike(ctx, bob, "p-private")
	assert.ErrorIs(t, err, ErrNotFound, "a private post is invisible to other users")
	_, err = env.catalog.Likes(ctx, auth.Anonymous(), "p-private")
	assert.ErrorIs(t, err, ErrNotFound)

	state, err = env.catalog.ToggleLike(ctx, auth.Principal{ID: "alice"}, "p-private")
	require.NoError(t, err)
	assert.Equal(t, ReactionState{Active: true, Count: 1}, state)
}

// malformedKeyStore fails lookups of one id the way Postgres rejects a
// string that is not a uuid.
type malformedKeyStore struct {
	store.Store
	id string
}

func (s malformedKeyStore) Query(ctx context.Context, q store.Query) ([]store.Row, error) {
	for _, c := range q.Where {
		if c.Column == "id" && c.Value == s.id {
			return nil, fmt.Errorf("%w: invalid input syntax for type uuid", store.ErrNoRows)
		}
	}
	return s.Store.Query(ctx, q)
}

func TestCatalog_MalformedIDIsNotFound(t *testing.T) {
	env := newWrappedTestEnv(t, func(s store.Store) store.Store {
		return malformedKeyStore{Store: s, id: "not-a-uuid"}
	})
	ctx := context.Background()
	alice := auth.Principal{ID: "alice"}

	_, err := env.catalog.GetIdea(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.catalog.SaveIdea(ctx, alice, "not-a-uuid", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, mutation.ErrNotFound)
	assert.NotErrorIs(t, err, mutation.ErrStore)

	err = env.catalog.DeleteIdea(ctx, alice, "not-a-uuid")
	assert.ErrorIs(t, err, mutation.ErrNotFound)
}

package resources

import (
	"context"
	"errors"
	"maps"
	"strings"

	"github.com/embld/contentcore/auth"
	"github.com/embld/contentcore/cache"
	"github.com/embld/contentcore/mutation"
	"github.com/embld/contentcore/store"
)

// ListComments returns the comments on an idea, oldest first, or ErrNotFound
// when the idea does not exist.
func (c *Catalog) ListComments(ctx context.Context, ideaID string) ([]Comment, error) {
	if _, err := c.GetIdea(ctx, ideaID); err != nil {
		return nil, err
	}
	return cache.Fetch(ctx, c.cache, CommentsKey(ideaID), CommentsTTL, []string{IdeaTag(ideaID)},
		func(ctx context.Context) ([]Comment, error) {
			rows, err := c.query(ctx, "list_comments", store.Query{
				Table:   CommentSchema.Table,
				Columns: commentColumns,
				Where:   store.Eq("idea_id", ideaID),
				OrderBy: "created_at",
				Limit:   c.limit,
			})
			if err != nil {
				return nil, err
			}
			comments := make([]Comment, len(rows))
			for i, r := range rows {
				comments[i] = commentFromRow(r)
			}
			return comments, nil
		})
}

// AddComment posts a comment on an idea as p and returns its id.
func (c *Catalog) AddComment(ctx context.Context, p auth.Principal, ideaID string, payload map[string]any) (string, error) {
	if _, err := c.GetIdea(ctx, ideaID); err != nil {
		return "", err
	}
	return c.coord.Upsert(ctx, p, mutation.Request{
		Schema:  CommentSchema,
		Payload: trimContent(payload),
		Assign:  store.Row{"idea_id": ideaID},
		Tags:    []string{IdeaTag(ideaID)},
	})
}

// UpdateComment edits a comment on ideaID. Only its author or an admin may.
func (c *Catalog) UpdateComment(ctx context.Context, p auth.Principal, ideaID, commentID string, payload map[string]any) error {
	if ideaID == "" || commentID == "" {
		return &mutation.Error{Kind: mutation.KindInvalid, Op: "update", Table: CommentSchema.Table, Err: ErrMissingResource}
	}
	_, err := c.coord.Upsert(ctx, p, mutation.Request{
		Schema:     CommentSchema,
		ResourceID: commentID,
		Payload:    trimContent(payload),
		Scope:      store.Eq("idea_id", ideaID),
		Tags:       []string{IdeaTag(ideaID)},
	})
	return err
}

// DeleteComment removes a comment on ideaID. Only its author or an admin may.
func (c *Catalog) DeleteComment(ctx context.Context, p auth.Principal, ideaID, commentID string) error {
	if ideaID == "" {
		return &mutation.Error{Kind: mutation.KindInvalid, Op: "delete", Table: CommentSchema.Table, Err: ErrMissingResource}
	}
	return c.coord.Delete(ctx, p, mutation.Request{
		Schema:     CommentSchema,
		ResourceID: commentID,
		Scope:      store.Eq("idea_id", ideaID),
		Tags:       []string{IdeaTag(ideaID)},
	})
}

// trimContent returns payload with surrounding whitespace removed from a
// string content field, so a blank comment fails validation.
func trimContent(payload map[string]any) map[string]any {
	s, ok := payload["content"].(string)
	if !ok {
		return payload
	}
	out := maps.Clone(payload)
	out["content"] = strings.TrimSpace(s)
	return out
}

// reaction describes a toggled per-principal marker on a parent resource.
type reaction struct {
	schema    *mutation.Schema
	parentCol string
	namespace string
	tag       func(parentID string) string

	// visible returns ErrNotFound when p cannot see the parent.
	visible func(ctx context.Context, c *Catalog, p auth.Principal, parentID string) error
}

var (
	wantReaction = reaction{
		schema:    WantSchema,
		parentCol: "idea_id",
		namespace: WantCountNamespace,
		tag:       IdeaTag,
		visible: func(ctx context.Context, c *Catalog, _ auth.Principal, id string) error {
			_, err := c.GetIdea(ctx, id)
			return err
		},
	}
	likeReaction = reaction{
		schema:    OwnerPostLikeSchema,
		parentCol: "post_id",
		namespace: LikeCountNamespace,
		tag:       OwnerPostTag,
		visible:   ownerPostVisible,
	}
	saveReaction = reaction{
		schema:    OwnerPostSaveSchema,
		parentCol: "post_id",
		namespace: SaveCountNamespace,
		tag:       OwnerPostTag,
		visible:   ownerPostVisible,
	}
)

func ownerPostVisible(ctx context.Context, c *Catalog, p auth.Principal, id string) error {
	_, err := c.GetOwnerPost(ctx, p, id)
	return err
}

// ToggleWant flips p's want on an idea and returns the resulting state.
func (c *Catalog) ToggleWant(ctx context.Context, p auth.Principal, ideaID string) (ReactionState, error) {
	return c.toggle(ctx, p, wantReaction, ideaID)
}

// Wants returns the want count of an idea and whether p wants it.
func (c *Catalog) Wants(ctx context.Context, p auth.Principal, ideaID string) (ReactionState, error) {
	return c.reactionState(ctx, p, wantReaction, ideaID)
}

// ToggleLike flips p's like on an owner post and returns the resulting state.
func (c *Catalog) ToggleLike(ctx context.Context, p auth.Principal, postID string) (ReactionState, error) {
	return c.toggle(ctx, p, likeReaction, postID)
}

// Likes returns the like count of an owner post and whether p likes it.
func (c *Catalog) Likes(ctx context.Context, p auth.Principal, postID string) (ReactionState, error) {
	return c.reactionState(ctx, p, likeReaction, postID)
}

// ToggleSave flips p's bookmark on an owner post and returns the resulting
// state.
func (c *Catalog) ToggleSave(ctx context.Context, p auth.Principal, postID string) (ReactionState, error) {
	return c.toggle(ctx, p, saveReaction, postID)
}

// toggle deletes p's reaction row if present and creates it otherwise. A
// unique conflict on create, or a missing row on delete, means a concurrent
// toggle already reached the same state and is not an error.
func (c *Catalog) toggle(ctx context.Context, p auth.Principal, r reaction, parentID string) (ReactionState, error) {
	if p.IsAnonymous() {
		return ReactionState{}, &mutation.Error{Kind: mutation.KindUnauthenticated, Op: "toggle", Table: r.schema.Table}
	}
	if parentID == "" {
		return ReactionState{}, ErrMissingResource
	}
	if err := r.visible(ctx, c, p, parentID); err != nil {
		return ReactionState{}, err
	}

	owner := r.schema.Owner()
	row, err := c.first(ctx, "find_"+r.schema.Table, store.Query{
		Table:   r.schema.Table,
		Columns: []string{mutation.IDColumn},
		Where:   store.Eq(r.parentCol, parentID).And(owner, p.ID),
	})
	tags := []string{r.tag(parentID)}
	switch {
	case err == nil:
		err = c.coord.Delete(ctx, p, mutation.Request{
			Schema:     r.schema,
			ResourceID: row.String(mutation.IDColumn),
			Scope:      store.Eq(r.parentCol, parentID),
			Tags:       tags,
		})
		if mutation.KindOf(err) == mutation.KindNotFound {
			err = nil
		}
	case errors.Is(err, ErrNotFound):
		_, err = c.coord.Upsert(ctx, p, mutation.Request{
			Schema: r.schema,
			Assign: store.Row{r.parentCol: parentID},
			Tags:   tags,
		})
		if mutation.KindOf(err) == mutation.KindConflict {
			err = nil
		}
	}
	if err != nil {
		return ReactionState{}, err
	}
	return c.reactionState(ctx, p, r, parentID)
}

// reactionState reads the cached count and, for a signed-in principal, their
// own row uncached.
func (c *Catalog) reactionState(ctx context.Context, p auth.Principal, r reaction, parentID string) (ReactionState, error) {
	if parentID == "" {
		return ReactionState{}, ErrMissingResource
	}
	if err := r.visible(ctx, c, p, parentID); err != nil {
		return ReactionState{}, err
	}

	count, err := cache.Fetch(ctx, c.cache, cache.Key(r.namespace, parentID), ReactionCountTTL, []string{r.tag(parentID)},
		func(ctx context.Context) (int, error) {
			rows, err := c.query(ctx, "count_"+r.schema.Table, store.Query{
				Table:   r.schema.Table,
				Columns: []string{mutation.IDColumn},
				Where:   store.Eq(r.parentCol, parentID),
			})
			return len(rows), err
		})
	if err != nil {
		return ReactionState{}, err
	}

	state := ReactionState{Count: count}
	if p.IsAnonymous() {
		return state, nil
	}
	_, err = c.first(ctx, "find_"+r.schema.Table, store.Query{
		Table:   r.schema.Table,
		Columns: []string{mutation.IDColumn},
		Where:   store.Eq(r.parentCol, parentID).And(r.schema.Owner(), p.ID),
	})
	switch {
	case err == nil:
		state.Active = true
	case !errors.Is(err, ErrNotFound):
		return ReactionState{}, err
	}
	return state, nil
}

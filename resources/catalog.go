package resources

import (
	"context"
	"errors"

	"github.com/embld/contentcore/auth"
	"github.com/embld/contentcore/cache"
	"github.com/embld/contentcore/mutation"
	"github.com/embld/contentcore/observe"
	"github.com/embld/contentcore/store"
)

// Errors returned by the Catalog.
var (
	ErrNotFound        = errors.New("resources: not found")
	ErrNilCache        = errors.New("resources: cache is nil")
	ErrNilStore        = errors.New("resources: store is nil")
	ErrNilCoordinator  = errors.New("resources: coordinator is nil")
	ErrMissingResource = errors.New("resources: resource id is required")
)

// DefaultListLimit caps list queries when Config.ListLimit is zero.
const DefaultListLimit = 100

// Config configures a Catalog.
type Config struct {
	Cache       cache.Cache
	Store       store.Store
	Coordinator *mutation.Coordinator

	// Middleware instruments store reads made on cache misses.
	Middleware *observe.Middleware

	// Keyer derives keys for filtered lists. Default: cache.DefaultKeyer.
	Keyer cache.Keyer

	// ListLimit caps list queries. Default: DefaultListLimit.
	ListLimit int
}

// IdeaFilter narrows ListIdeas.
type IdeaFilter struct {
	Category string `json:"category,omitempty"`
}

// Catalog serves cached reads and coordinated writes for the content
// resources.
//
// Slices returned by list methods are shared with the cache and must not be
// modified.
type Catalog struct {
	cache cache.Cache
	store store.Store
	coord *mutation.Coordinator
	mw    *observe.Middleware
	keyer cache.Keyer
	limit int
}

// NewCatalog creates a Catalog.
func NewCatalog(cfg Config) (*Catalog, error) {
	switch {
	case cfg.Cache == nil:
		return nil, ErrNilCache
	case cfg.Store == nil:
		return nil, ErrNilStore
	case cfg.Coordinator == nil:
		return nil, ErrNilCoordinator
	}
	c := &Catalog{
		cache: cfg.Cache,
		store: cfg.Store,
		coord: cfg.Coordinator,
		mw:    cfg.Middleware,
		keyer: cfg.Keyer,
		limit: cfg.ListLimit,
	}
	if c.mw == nil {
		c.mw = observe.NewMiddleware(nil, nil, nil)
	}
	if c.keyer == nil {
		c.keyer = cache.NewDefaultKeyer()
	}
	if c.limit <= 0 {
		c.limit = DefaultListLimit
	}
	return c, nil
}

// ListIdeas returns the newest ideas.
func (c *Catalog) ListIdeas(ctx context.Context, f IdeaFilter) ([]Idea, error) {
	key := IdeasListKey
	where := store.Filter(nil)
	if f != (IdeaFilter{}) {
		k, err := c.keyer.Key(IdeasListKey, f)
		if err != nil {
			return nil, err
		}
		key = k
		where = store.Eq("category", f.Category)
	}

	return cache.Fetch(ctx, c.cache, key, IdeasListTTL, []string{TagIdeas},
		func(ctx context.Context) ([]Idea, error) {
			rows, err := c.query(ctx, "list_ideas", store.Query{
				Table:   IdeaSchema.Table,
				Columns: ideaColumns,
				Where:   where,
				OrderBy: "created_at",
				Desc:    true,
				Limit:   c.limit,
			})
			if err != nil {
				return nil, err
			}
			ideas := make([]Idea, len(rows))
			for i, r := range rows {
				ideas[i] = ideaFromRow(r)
			}
			return ideas, nil
		})
}

// GetIdea returns one idea or ErrNotFound.
func (c *Catalog) GetIdea(ctx context.Context, id string) (Idea, error) {
	if id == "" {
		return Idea{}, ErrMissingResource
	}
	return cache.Fetch(ctx, c.cache, IdeaDetailKey(id), IdeaDetailTTL, []string{TagIdea, IdeaTag(id)},
		func(ctx context.Context) (Idea, error) {
			row, err := c.first(ctx, "get_idea", store.Query{
				Table:   IdeaSchema.Table,
				Columns: ideaColumns,
				Where:   store.Eq("id", id),
			})
			if err != nil {
				return Idea{}, err
			}
			return ideaFromRow(row), nil
		})
}

// SaveIdea creates an idea when id is empty and updates it otherwise.
func (c *Catalog) SaveIdea(ctx context.Context, p auth.Principal, id string, payload map[string]any) (string, error) {
	return c.coord.Upsert(ctx, p, mutation.Request{Schema: IdeaSchema, ResourceID: id, Payload: payload})
}

// DeleteIdea deletes an idea.
func (c *Catalog) DeleteIdea(ctx context.Context, p auth.Principal, id string) error {
	return c.coord.Delete(ctx, p, mutation.Request{Schema: IdeaSchema, ResourceID: id})
}

// GetProfile returns the public profile of a user or ErrNotFound.
func (c *Catalog) GetProfile(ctx context.Context, id string) (Profile, error) {
	if id == "" {
		return Profile{}, ErrMissingResource
	}
	return cache.Fetch(ctx, c.cache, ProfileKey(id), ProfileTTL, []string{TagProfile, ProfileTag(id)},
		func(ctx context.Context) (Profile, error) {
			row, err := c.first(ctx, "get_profile", store.Query{
				Table:   ProfileSchema.Table,
				Columns: profileColumns,
				Where:   store.Eq("id", id),
			})
			if err != nil {
				return Profile{}, err
			}
			return profileFromRow(row), nil
		})
}

// UpdateProfile edits a user's own profile. A taken username is reported as
// mutation.ErrConflict by the store's unique constraint.
func (c *Catalog) UpdateProfile(ctx context.Context, p auth.Principal, id string, payload map[string]any) error {
	if id == "" {
		return &mutation.Error{Kind: mutation.KindInvalid, Op: "update", Table: ProfileSchema.Table, Err: ErrMissingResource}
	}
	_, err := c.coord.Upsert(ctx, p, mutation.Request{Schema: ProfileSchema, ResourceID: id, Payload: payload})
	return err
}

// ListOwnerPosts returns the newest public owner posts.
func (c *Catalog) ListOwnerPosts(ctx context.Context) ([]OwnerPost, error) {
	return cache.Fetch(ctx, c.cache, OwnerPostsKey, OwnerPostsTTL, []string{TagOwnerPosts},
		func(ctx context.Context) ([]OwnerPost, error) {
			rows, err := c.query(ctx, "list_owner_posts", store.Query{
				Table:   OwnerPostSchema.Table,
				Columns: postColumns,
				Where:   store.Eq("is_public", true),
				OrderBy: "created_at",
				Desc:    true,
				Limit:   c.limit,
			})
			if err != nil {
				return nil, err
			}
			posts := make([]OwnerPost, len(rows))
			for i, r := range rows {
				posts[i] = postFromRow(r)
			}
			return posts, nil
		})
}

// GetOwnerPost returns a post visible to p. Public posts are served from the
// cache; a private post is read uncached and only for its owner or an admin.
func (c *Catalog) GetOwnerPost(ctx context.Context, p auth.Principal, id string) (OwnerPost, error) {
	if id == "" {
		return OwnerPost{}, ErrMissingResource
	}
	post, err := cache.Fetch(ctx, c.cache, OwnerPostKey(id), OwnerPostTTL, []string{TagOwnerPosts, OwnerPostTag(id)},
		func(ctx context.Context) (OwnerPost, error) {
			row, err := c.first(ctx, "get_owner_post", store.Query{
				Table:   OwnerPostSchema.Table,
				Columns: postColumns,
				Where:   store.Eq("id", id).And("is_public", true),
			})
			if err != nil {
				return OwnerPost{}, err
			}
			return postFromRow(row), nil
		})
	if !errors.Is(err, ErrNotFound) || p.IsAnonymous() {
		return post, err
	}

	where := store.Eq("id", id)
	if !auth.IsAdmin(p) {
		where = where.And(OwnerPostSchema.Owner(), p.ID)
	}
	row, err := c.first(ctx, "get_private_owner_post", store.Query{
		Table:   OwnerPostSchema.Table,
		Columns: postColumns,
		Where:   where,
	})
	if err != nil {
		return OwnerPost{}, err
	}
	return postFromRow(row), nil
}

// SaveOwnerPost creates a post when id is empty and updates it otherwise.
func (c *Catalog) SaveOwnerPost(ctx context.Context, p auth.Principal, id string, payload map[string]any) (string, error) {
	return c.coord.Upsert(ctx, p, mutation.Request{Schema: OwnerPostSchema, ResourceID: id, Payload: payload})
}

// DeleteOwnerPost deletes a post.
func (c *Catalog) DeleteOwnerPost(ctx context.Context, p auth.Principal, id string) error {
	return c.coord.Delete(ctx, p, mutation.Request{Schema: OwnerPostSchema, ResourceID: id})
}

func (c *Catalog) query(ctx context.Context, name string, q store.Query) ([]store.Row, error) {
	var rows []store.Row
	err := c.mw.Run(ctx, observe.OpMeta{Component: "resources", Name: name, Table: q.Table}, func(ctx context.Context) error {
		var err error
		rows, err = c.store.Query(ctx, q)
		return err
	})
	return rows, err
}

func (c *Catalog) first(ctx context.Context, name string, q store.Query) (store.Row, error) {
	q.Limit = 1
	rows, err := c.query(ctx, name, q)
	if errors.Is(err, store.ErrNoRows) {
		// A key the store cannot parse, such as a non-uuid id.
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Warm populates the list caches. It is used at startup so the first
// requests are served from the cache.
func (c *Catalog) Warm(ctx context.Context) error {
	if _, err := c.ListIdeas(ctx, IdeaFilter{}); err != nil {
		return err
	}
	if _, err := c.ListOwnerPosts(ctx); err != nil {
		return err
	}
	return nil
}
